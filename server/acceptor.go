// File: server/acceptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The server is the reactor's default watcher: it accepts sockets and
// drives the HTTP upgrade until a Connection takes over the handle.

package server

import (
	"net/http"

	"github.com/momentics/wsreactor/api"
	"github.com/momentics/wsreactor/protocol"
	"github.com/momentics/wsreactor/reactor"
	"github.com/momentics/wsreactor/transport"
)

// acceptBatch bounds accepts per listener readiness event.
const acceptBatch = 64

var _ reactor.Watcher = (*Server)(nil)

// Ready implements reactor.Watcher.
func (s *Server) Ready(id reactor.ID, _ reactor.Handle) {
	if id == s.lnID && s.ln != nil {
		s.accept()
		return
	}
	p, ok := s.pending[id]
	if !ok {
		s.log.Warn("readiness for unknown handle", "id", uint64(id))
		return
	}
	s.readHandshake(id, p)
}

// Closed implements reactor.Watcher. The reactor has already closed the handle.
func (s *Server) Closed(id reactor.ID, _ reactor.Handle) {
	if id == s.lnID {
		s.log.Error("listener closed unexpectedly")
		s.ln = nil
		return
	}
	delete(s.pending, id)
	s.handles.Store(int64(s.mux.Len()))
}

func (s *Server) accept() {
	for i := 0; i < acceptBatch; i++ {
		sock, err := s.ln.Accept()
		if err == transport.ErrWouldBlock {
			return
		}
		if err != nil {
			s.log.Warn("accept failed", "error", err)
			return
		}
		id, err := s.mux.Add(sock, 0, nil)
		if err != nil {
			s.log.Warn("register failed", "remote", sock.RemoteAddr(), "error", err)
			_ = sock.Close()
			continue
		}
		s.pending[id] = &pendingHandshake{
			sock:   sock,
			reader: protocol.NewRequestReader(s.cfg.MaxHandshakeSize),
		}
		s.handles.Store(int64(s.mux.Len()))
	}
}

func (s *Server) readHandshake(id reactor.ID, p *pendingHandshake) {
	n, err := p.sock.Read(s.readBuf)
	if err != nil {
		s.dropPending(id, p)
		return
	}
	if n == 0 {
		return
	}
	complete, err := p.reader.Feed(s.readBuf[:n])
	if err != nil {
		hs := protocol.NewHandshake(nil, p.sock.RemoteAddr())
		hs.Reject(http.StatusRequestHeaderFieldsTooLarge, "")
		s.finishHandshake(id, p, hs)
		return
	}
	if !complete {
		return
	}

	hs := protocol.ParseHandshake(p.reader.Header(), p.sock.RemoteAddr())
	if hs.Accepted() && s.cfg.MaxConnections > 0 && len(s.conns) >= s.cfg.MaxConnections {
		hs.Reject(http.StatusServiceUnavailable, "")
	}
	if hs.Accepted() {
		s.events.Emit(api.Handshake{Request: hs})
	}
	s.finishHandshake(id, p, hs)
}

func (s *Server) finishHandshake(id reactor.ID, p *pendingHandshake, hs *protocol.Handshake) {
	if _, err := hs.WriteResponse(p.sock); err != nil {
		s.log.Debug("handshake response failed", "remote", p.sock.RemoteAddr(), "error", err)
		s.dropPending(id, p)
		return
	}
	if !hs.Accepted() {
		status, reason := hs.Status()
		s.control.AddMetric(MetricHandshakesRejected, 1)
		s.log.Debug("handshake rejected", "remote", p.sock.RemoteAddr(), "status", status, "reason", reason)
		s.dropPending(id, p)
		return
	}
	s.upgrade(id, p)
}

func (s *Server) dropPending(id reactor.ID, p *pendingHandshake) {
	delete(s.pending, id)
	s.mux.Remove(id)
	_ = p.sock.Close()
	s.handles.Store(int64(s.mux.Len()))
}

// upgrade hands the socket over to a Connection registered under the same id.
func (s *Server) upgrade(id reactor.ID, p *pendingHandshake) {
	delete(s.pending, id)
	s.mux.Remove(id)

	conn := protocol.NewConnection(api.ConnID(id), p.sock,
		protocol.WithRemoteAddr(p.sock.RemoteAddr()),
		protocol.WithMaxMessageSize(s.cfg.MaxMessageSize),
		protocol.WithAutoPong(s.cfg.AutoPong),
		protocol.WithBufferPool(s.buffers),
		protocol.WithCloseHook(s.closeConnection),
		protocol.WithLogger(s.connLog))
	if _, err := s.mux.Add(p.sock, id, conn); err != nil {
		s.log.Warn("register connection failed", "remote", p.sock.RemoteAddr(), "error", err)
		_ = p.sock.Close()
		return
	}
	s.conns[conn.ID()] = conn
	conn.Subscribe(s.forward)
	s.control.AddMetric(MetricConnectionsTotal, 1)
	s.flushMetrics()
	s.log.Debug("connection upgraded", "conn_id", uint64(conn.ID()), "remote", conn.RemoteAddr())

	s.events.Emit(api.Connected{Conn: conn})
	if left := p.reader.Leftover(); len(left) > 0 && !conn.IsClosed() {
		conn.Receive(left)
	}
}

// closeConnection deregisters and closes the socket of a connection torn
// down by the application or by a protocol error.
func (s *Server) closeConnection(c *protocol.Connection) error {
	s.mux.Remove(reactor.ID(c.ID()))
	return c.Socket().Close()
}
