// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"

	"github.com/momentics/wsreactor/adapters"
	"github.com/momentics/wsreactor/api"
)

// Option customizes server initialization.
type Option func(*Server)

// WithLogger sets the logger shared by the server, reactor and connections.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithListener subscribes l to server events.
func WithListener(l api.Listener) Option {
	return func(s *Server) {
		s.events.Subscribe(l)
	}
}

// WithControl shares an existing control adapter.
func WithControl(c *adapters.ControlAdapter) Option {
	return func(s *Server) {
		if c != nil {
			s.control = c
		}
	}
}

// WithMaxConnections overrides Config.MaxConnections.
func WithMaxConnections(n int) Option {
	return func(s *Server) {
		s.cfg.MaxConnections = n
	}
}
