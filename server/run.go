// File: server/run.go
// Package server implements the reactor loop and graceful shutdown.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/pkg/errors"

	"github.com/momentics/wsreactor/affinity"
	"github.com/momentics/wsreactor/api"
	"github.com/momentics/wsreactor/reactor"
)

// Start binds addr and runs the reactor until Shutdown.
func (s *Server) Start(addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve()
}

// Serve runs the reactor on the calling goroutine. It returns nil after
// Shutdown and a wrapped error if the wait primitive fails.
func (s *Server) Serve() error {
	if s.ln == nil {
		return api.ErrNotListening
	}
	if !s.running.CompareAndSwap(false, true) {
		return api.ErrAlreadyRunning
	}
	defer s.running.Store(false)
	if s.closed.Load() {
		s.close()
		return api.ErrServerClosed
	}
	if s.cfg.PinCPU >= 0 {
		restore, err := affinity.Pin(s.cfg.PinCPU)
		if err != nil {
			s.log.Warn("cpu pinning failed", "cpu", s.cfg.PinCPU, "error", err)
		} else {
			defer restore()
			s.log.Info("reactor pinned", "cpu", s.cfg.PinCPU)
		}
	}

	for {
		ms := int64(-1)
		if s.pollTimeout >= 0 {
			ms = s.pollTimeout.Milliseconds()
		}
		s.polling.Store(ms)
		res, err := s.mux.Poll(s.pollTimeout)
		switch res {
		case reactor.PollTimeout:
			s.flushMetrics()
			continue
		case reactor.PollInterrupted:
			if !s.closed.Load() {
				// A reload changed the poll timeout.
				continue
			}
			s.log.Info("reactor stopped", "result", res.String())
			s.close()
			return nil
		case reactor.PollError:
			s.log.Error("reactor failed", "error", err)
			s.close()
			return errors.Wrap(err, "serve")
		default:
			s.log.Info("reactor stopped", "result", res.String())
			s.close()
			return nil
		}
	}
}

// Shutdown stops Serve, closes every connection and releases the listener.
// Safe for concurrent use.
func (s *Server) Shutdown() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.running.Load() {
		s.mux.Stop()
		return nil
	}
	s.close()
	return nil
}

// close runs once, on the reactor goroutine or after it has exited.
func (s *Server) close() {
	s.teardown.Do(func() {
		for _, c := range s.Connections() {
			_ = c.Close()
		}
		for id, p := range s.pending {
			s.dropPending(id, p)
		}
		if s.ln != nil {
			s.mux.Remove(s.lnID)
			if err := s.ln.Close(); err != nil {
				s.log.Debug("listener close", "error", err)
			}
		}
		s.flushMetrics()
		if err := s.mux.Close(); err != nil {
			s.log.Debug("reactor close", "error", err)
		}
	})
}
