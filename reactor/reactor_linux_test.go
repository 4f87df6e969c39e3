//go:build linux

package reactor_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/momentics/wsreactor/reactor"
	"github.com/momentics/wsreactor/transport"
)

type sockWatcher struct {
	ready  int
	closed int
	data   []byte
}

func (w *sockWatcher) Ready(_ reactor.ID, h reactor.Handle) {
	w.ready++
	buf := make([]byte, 64)
	n, _ := h.(*transport.Socket).Read(buf)
	w.data = append(w.data, buf[:n]...)
}

func (w *sockWatcher) Closed(reactor.ID, reactor.Handle) { w.closed++ }

func newMux(t *testing.T, def reactor.Watcher) *reactor.Multiplexer {
	t.Helper()
	m, err := reactor.New(def, reactor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func pair(t *testing.T) (*transport.Socket, *transport.Socket) {
	t.Helper()
	a, b, err := transport.SocketPair()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func TestEpollReadable(t *testing.T) {
	w := &sockWatcher{}
	m := newMux(t, w)
	local, remote := pair(t)
	if _, err := m.Add(local, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := remote.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	res, err := m.Poll(50 * time.Millisecond)
	if err != nil || res != reactor.PollTimeout {
		t.Fatalf("Poll = %v, %v", res, err)
	}
	if string(w.data) != "ping" || w.closed != 0 {
		t.Errorf("data %q closed %d", w.data, w.closed)
	}
}

func TestEpollPeerClose(t *testing.T) {
	w := &sockWatcher{}
	m := newMux(t, nil)
	local, remote := pair(t)
	id, _ := m.Add(local, 0, w)
	remote.Close()

	res, err := m.Poll(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if res != reactor.PollStopped {
		t.Fatalf("Poll = %v, want stopped once the only handle is gone", res)
	}
	if w.closed != 1 || m.Has(id) {
		t.Errorf("closed callbacks %d, registered %v", w.closed, m.Has(id))
	}
	if local.Fd() != -1 {
		t.Error("handle not closed by the reactor")
	}
}

func TestEpollDataBeforeCloseIsDelivered(t *testing.T) {
	w := &sockWatcher{}
	m := newMux(t, nil)
	local, remote := pair(t)
	m.Add(local, 0, w)
	remote.Write([]byte("last words"))
	remote.Close()

	deadline := time.Now().Add(time.Second)
	for w.closed == 0 && time.Now().Before(deadline) {
		if _, err := m.Poll(10 * time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	if string(w.data) != "last words" {
		t.Errorf("data %q", w.data)
	}
	if w.closed != 1 {
		t.Errorf("closed callbacks %d", w.closed)
	}
}

func TestEpollSubmitFromOtherGoroutine(t *testing.T) {
	m := newMux(t, &sockWatcher{})
	local, _ := pair(t)
	m.Add(local, 0, nil)

	ran := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		m.Submit(func() { close(ran) })
		m.Stop()
	}()
	res, err := m.Poll(reactor.NoTimeout)
	if err != nil || res != reactor.PollInterrupted {
		t.Fatalf("Poll = %v, %v", res, err)
	}
	select {
	case <-ran:
	default:
		t.Error("submitted task did not run")
	}
}
