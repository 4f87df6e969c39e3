// Package server wires the listener, reactor and connection engine into a
// WebSocket server.
// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"
	"slices"

	"github.com/pkg/errors"

	"github.com/momentics/wsreactor/adapters"
	"github.com/momentics/wsreactor/api"
	"github.com/momentics/wsreactor/internal/event"
	"github.com/momentics/wsreactor/pool"
	"github.com/momentics/wsreactor/protocol"
	"github.com/momentics/wsreactor/reactor"
	"github.com/momentics/wsreactor/transport"
)

// Metric keys published through Control().Stats().
const (
	MetricConnectionsActive  = "connections_active"
	MetricConnectionsTotal   = "connections_total"
	MetricHandshakesRejected = "handshakes_rejected"
	MetricMessagesIn         = "messages_in"
	MetricMessagesOut        = "messages_out"
	MetricBytesIn            = "bytes_in"
	MetricBytesOut           = "bytes_out"
	MetricProtocolErrors     = "protocol_errors"
)

// New builds a server. Call Listen and Serve, or Start, to run it.
func New(cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := *cfg

	s := &Server{
		cfg:     &c,
		log:     slog.Default(),
		events:  event.NewDispatcher(),
		pending: make(map[reactor.ID]*pendingHandshake),
		conns:   make(map[api.ConnID]*protocol.Connection),
	}
	for _, o := range opts {
		o(s)
	}
	if s.control == nil {
		s.control = adapters.NewControlAdapter()
	}
	chunk := s.cfg.ReadChunk
	if chunk <= 0 {
		chunk = protocol.DefaultReadChunk
	}
	s.buffers = pool.NewBytePool(chunk)
	s.readBuf = make([]byte, chunk)
	s.pollTimeout = s.cfg.pollTimeout()
	s.forward = api.ListenerFunc(s.forwardEvent)

	mux, err := reactor.New(s,
		reactor.WithLogger(s.log),
		reactor.WithMaxEvents(s.cfg.MaxEvents))
	if err != nil {
		return nil, errors.Wrap(err, "server reactor")
	}
	s.mux = mux
	s.connLog = s.log
	s.log = s.log.With("component", "server")

	for _, k := range []string{
		MetricConnectionsActive, MetricConnectionsTotal, MetricHandshakesRejected,
		MetricMessagesIn, MetricMessagesOut, MetricBytesIn, MetricBytesOut, MetricProtocolErrors,
	} {
		s.control.SetMetric(k, int64(0))
	}
	s.control.RegisterDebugProbe("reactor.handles", func() any { return s.handles.Load() })
	s.control.RegisterDebugProbe("server.connections", func() any { return s.active.Load() })
	s.control.RegisterDebugProbe("pool.buffers_in_use", func() any { return s.buffers.InUse() })
	s.control.RegisterDebugProbe("server.poll_timeout_ms", func() any { return s.polling.Load() })
	s.control.OnReload(func() {
		values := s.control.GetConfig()
		s.mux.Submit(func() { s.applyReload(values) })
	})
	return s, nil
}

// Config returns the effective configuration.
func (s *Server) Config() Config { return *s.cfg }

// Control exposes runtime config, metrics and debug probes.
func (s *Server) Control() api.Control { return s.control }

// Debug exposes the debug probes alone. Safe for concurrent use.
func (s *Server) Debug() api.Debug { return s.control }

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Subscribe adds a listener for every server event.
func (s *Server) Subscribe(l api.Listener) { s.events.Subscribe(l) }

// OnConnected subscribes fn to Connected events.
func (s *Server) OnConnected(fn func(c api.Conn)) {
	s.Subscribe(api.ListenerFunc(func(ev api.Event) {
		if e, ok := ev.(api.Connected); ok {
			fn(e.Conn)
		}
	}))
}

// OnMessage subscribes fn to Message events.
func (s *Server) OnMessage(fn func(m api.Message)) {
	s.Subscribe(api.ListenerFunc(func(ev api.Event) {
		if e, ok := ev.(api.Message); ok {
			fn(e)
		}
	}))
}

// OnDisconnected subscribes fn to Disconnected events.
func (s *Server) OnDisconnected(fn func(c api.Conn)) {
	s.Subscribe(api.ListenerFunc(func(ev api.Event) {
		if e, ok := ev.(api.Disconnected); ok {
			fn(e.Conn)
		}
	}))
}

// OnHandshake subscribes fn to Handshake events. fn may reject the request
// or pick a sub-protocol.
func (s *Server) OnHandshake(fn func(r api.HandshakeRequest)) {
	s.Subscribe(api.ListenerFunc(func(ev api.Event) {
		if e, ok := ev.(api.Handshake); ok {
			fn(e.Request)
		}
	}))
}

// Connection returns a live connection by id.
func (s *Server) Connection(id api.ConnID) (*protocol.Connection, bool) {
	c, ok := s.conns[id]
	return c, ok
}

// Connections returns the live connections ordered by id.
func (s *Server) Connections() []*protocol.Connection {
	out := make([]*protocol.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *protocol.Connection) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

// Submit runs fn on the reactor goroutine. Safe for concurrent use.
func (s *Server) Submit(fn func()) { s.mux.Submit(fn) }

// forwardEvent relays connection events to server listeners and keeps the
// connection table in sync.
func (s *Server) forwardEvent(ev api.Event) {
	if e, ok := ev.(api.Disconnected); ok {
		if c, ok := e.Conn.(*protocol.Connection); ok {
			s.forget(c)
		}
	}
	s.events.Emit(ev)
}

func (s *Server) forget(c *protocol.Connection) {
	if _, ok := s.conns[c.ID()]; !ok {
		return
	}
	delete(s.conns, c.ID())
	st := c.Stats()
	s.closedStats.BytesIn += st.BytesIn
	s.closedStats.BytesOut += st.BytesOut
	s.closedStats.FramesIn += st.FramesIn
	s.closedStats.MessagesIn += st.MessagesIn
	s.closedStats.MessagesOut += st.MessagesOut
	if err := c.Err(); err != nil && errors.Is(err, protocol.ErrProtocol) {
		s.control.AddMetric(MetricProtocolErrors, 1)
	}
	s.log.Debug("connection closed", "conn_id", uint64(c.ID()), "remote", c.RemoteAddr())
	s.flushMetrics()
}

// flushMetrics publishes counters. Runs on the reactor goroutine.
func (s *Server) flushMetrics() {
	t := s.closedStats
	for _, c := range s.conns {
		st := c.Stats()
		t.BytesIn += st.BytesIn
		t.BytesOut += st.BytesOut
		t.MessagesIn += st.MessagesIn
		t.MessagesOut += st.MessagesOut
	}
	s.control.SetMetric(MetricConnectionsActive, int64(len(s.conns)))
	s.control.SetMetric(MetricMessagesIn, int64(t.MessagesIn))
	s.control.SetMetric(MetricMessagesOut, int64(t.MessagesOut))
	s.control.SetMetric(MetricBytesIn, int64(t.BytesIn))
	s.control.SetMetric(MetricBytesOut, int64(t.BytesOut))
	s.active.Store(int64(len(s.conns)))
	s.handles.Store(int64(s.mux.Len()))
}

// Listen binds addr. A bare port binds all interfaces.
func (s *Server) Listen(addr string) error {
	if s.closed.Load() {
		return api.ErrServerClosed
	}
	if s.ln != nil {
		return errors.Wrap(api.ErrAlreadyRunning, "listen")
	}
	if addr == "" {
		addr = s.cfg.ListenAddr
	}
	ln, err := transport.Listen(addr)
	if err != nil {
		return err
	}
	id, err := s.mux.Add(ln, 0, nil)
	if err != nil {
		_ = ln.Close()
		return err
	}
	s.ln, s.lnID = ln, id
	s.handles.Store(int64(s.mux.Len()))
	s.log.Info("listening", "addr", s.Addr())
	return nil
}
