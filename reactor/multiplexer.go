// File: reactor/multiplexer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Multiplexer owns the handle registry and runs the poll loop.

package reactor

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/pkg/errors"

	"github.com/momentics/wsreactor/api"
)

// ErrHandleRegistered is returned by Add for a descriptor that is already watched.
var ErrHandleRegistered = errors.New("reactor: handle already registered")

type entry struct {
	id ID
	fd int // captured at Add; Close may invalidate h.Fd()
	h  Handle
	w  Watcher // nil selects the default watcher

	// batch is the number of completed waits when the entry was added.
	// Readiness from a wait that finished earlier belongs to a previous
	// holder of the descriptor.
	batch uint64
}

// Multiplexer is a single-threaded reactor. All methods except Submit, Stop
// and Close must be called from the goroutine running Poll, or before Poll
// is first called.
type Multiplexer struct {
	p      poller
	def    Watcher
	log    *slog.Logger
	ready  []readiness
	lastID ID
	batch  uint64

	entries   map[ID]*entry
	byFd      map[int]ID
	byWatcher map[Watcher][]ID

	mu    sync.Mutex
	tasks *queue.Queue
	stop  atomic.Bool
}

// Option customizes a Multiplexer.
type Option func(*options)

type options struct {
	log       *slog.Logger
	maxEvents int
}

// WithLogger sets the logger used for callback panics and registry changes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMaxEvents sets how many readiness events a single wait may return.
func WithMaxEvents(n int) Option {
	return func(o *options) { o.maxEvents = n }
}

// New creates a multiplexer backed by the platform wait primitive. def
// receives callbacks for handles registered without their own watcher.
func New(def Watcher, opts ...Option) (*Multiplexer, error) {
	o := options{log: slog.Default(), maxEvents: DefaultMaxEvents}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxEvents <= 0 {
		o.maxEvents = DefaultMaxEvents
	}
	p, err := newPoller(o.maxEvents)
	if err != nil {
		return nil, err
	}
	return newMultiplexer(p, def, o), nil
}

func newMultiplexer(p poller, def Watcher, o options) *Multiplexer {
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.maxEvents <= 0 {
		o.maxEvents = DefaultMaxEvents
	}
	return &Multiplexer{
		p:         p,
		def:       def,
		log:       o.log.With("component", "reactor"),
		ready:     make([]readiness, o.maxEvents),
		entries:   make(map[ID]*entry),
		byFd:      make(map[int]ID),
		byWatcher: make(map[Watcher][]ID),
		tasks:     queue.New(),
	}
}

// SetDefaultWatcher replaces the fallback watcher.
func (m *Multiplexer) SetDefaultWatcher(w Watcher) { m.def = w }

// Add registers h. A zero or already used id is replaced by a generated one;
// the effective id is returned. w may be nil to use the default watcher.
func (m *Multiplexer) Add(h Handle, id ID, w Watcher) (ID, error) {
	if h == nil {
		return 0, errors.Wrap(api.ErrInvalidArgument, "reactor add: nil handle")
	}
	fd := h.Fd()
	if _, dup := m.byFd[fd]; dup {
		return 0, errors.Wrapf(ErrHandleRegistered, "fd %d", fd)
	}
	if id == 0 || m.Has(id) {
		id = m.generateID()
	}
	if err := m.p.add(fd); err != nil {
		return 0, err
	}
	m.entries[id] = &entry{id: id, fd: fd, h: h, w: w, batch: m.batch}
	m.byFd[fd] = id
	if w != nil {
		m.byWatcher[w] = append(m.byWatcher[w], id)
	}
	return id, nil
}

func (m *Multiplexer) generateID() ID {
	for {
		m.lastID++
		if m.lastID != 0 && !m.Has(m.lastID) {
			return m.lastID
		}
	}
}

// Remove unregisters id without closing its handle. Unknown ids are ignored.
func (m *Multiplexer) Remove(id ID) {
	e, ok := m.entries[id]
	if !ok {
		return
	}
	delete(m.entries, id)
	fd := e.fd
	if m.byFd[fd] == id {
		delete(m.byFd, fd)
	}
	if e.w != nil {
		ids := m.byWatcher[e.w]
		for i, v := range ids {
			if v == id {
				ids = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
		if len(ids) == 0 {
			delete(m.byWatcher, e.w)
		} else {
			m.byWatcher[e.w] = ids
		}
	}
	// The descriptor may already be closed, which removes it from epoll.
	if err := m.p.remove(fd); err != nil {
		m.log.Debug("deregister", "id", id, "fd", fd, "error", err)
	}
}

// Has reports whether id is registered.
func (m *Multiplexer) Has(id ID) bool {
	_, ok := m.entries[id]
	return ok
}

// Handle returns the handle registered under id.
func (m *Multiplexer) Handle(id ID) (Handle, bool) {
	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return e.h, true
}

// Watcher returns the explicit watcher registered under id, nil when the
// default watcher applies.
func (m *Multiplexer) Watcher(id ID) Watcher {
	if e, ok := m.entries[id]; ok {
		return e.w
	}
	return nil
}

// LookupHandle resolves a handle to its id.
func (m *Multiplexer) LookupHandle(h Handle) (ID, bool) {
	if h == nil {
		return 0, false
	}
	id, ok := m.byFd[h.Fd()]
	return id, ok
}

// LookupWatcher resolves a watcher to the first id registered with it.
func (m *Multiplexer) LookupWatcher(w Watcher) (ID, bool) {
	ids := m.byWatcher[w]
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// Lookup resolves an ID, Handle or Watcher to the canonical id.
func (m *Multiplexer) Lookup(key any) (ID, bool) {
	switch k := key.(type) {
	case ID:
		return k, m.Has(k)
	case Handle:
		return m.LookupHandle(k)
	case Watcher:
		return m.LookupWatcher(k)
	}
	return 0, false
}

// Len returns the number of registered handles.
func (m *Multiplexer) Len() int { return len(m.entries) }

// Submit queues fn to run on the poll loop and wakes it. Safe for concurrent use.
func (m *Multiplexer) Submit(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.tasks.Add(fn)
	m.mu.Unlock()
	if err := m.p.wake(); err != nil {
		m.log.Warn("wake failed", "error", err)
	}
}

// Stop makes the current or next Poll return PollInterrupted. Safe for concurrent use.
func (m *Multiplexer) Stop() {
	m.stop.Store(true)
	if err := m.p.wake(); err != nil {
		m.log.Warn("wake failed", "error", err)
	}
}

// Close releases the OS wait primitive. Registered handles are left open.
func (m *Multiplexer) Close() error {
	return m.p.close()
}

// Poll runs the loop until the timeout elapses with nothing ready, no handles
// remain, the wait primitive fails, or Stop is called. A negative timeout
// (NoTimeout) waits indefinitely.
func (m *Multiplexer) Poll(timeout time.Duration) (PollResult, error) {
	for {
		m.runTasks()
		if m.stop.CompareAndSwap(true, false) {
			return PollInterrupted, nil
		}
		if len(m.entries) == 0 {
			return PollStopped, nil
		}

		n, woken, err := m.p.wait(m.ready, timeout)
		if err != nil {
			return PollError, errors.Wrap(err, "reactor poll")
		}
		m.batch++
		if n == 0 && !woken {
			return PollTimeout, nil
		}
		for i := 0; i < n; i++ {
			m.dispatch(m.ready[i])
		}
	}
}

func (m *Multiplexer) dispatch(r readiness) {
	id, ok := m.byFd[r.fd]
	if !ok {
		// Removed by an earlier callback in this batch.
		return
	}
	e := m.entries[id]
	if e.batch == m.batch {
		// Registered by an earlier callback of this batch, reusing the fd.
		return
	}
	w := e.w
	if w == nil {
		w = m.def
	}

	if r.hangup && m.p.peerClosed(r.fd) {
		if err := e.h.Close(); err != nil {
			m.log.Debug("close handle", "id", id, "error", err)
		}
		m.Remove(id)
		if w != nil {
			m.invoke(id, func() { w.Closed(id, e.h) })
		}
		return
	}
	if w == nil {
		m.log.Warn("ready handle has no watcher", "id", id)
		return
	}
	m.invoke(id, func() { w.Ready(id, e.h) })
}

// invoke runs a watcher callback, keeping the loop alive on panic.
func (m *Multiplexer) invoke(id ID, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("watcher panic", "id", id, "panic", r)
		}
	}()
	fn()
}

func (m *Multiplexer) runTasks() {
	m.mu.Lock()
	n := m.tasks.Length()
	if n == 0 {
		m.mu.Unlock()
		return
	}
	batch := make([]func(), 0, n)
	for m.tasks.Length() > 0 {
		batch = append(batch, m.tasks.Remove().(func()))
	}
	m.mu.Unlock()

	for _, fn := range batch {
		m.invoke(0, fn)
	}
}
