// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"github.com/momentics/wsreactor/control"
)

// Keys accepted by Control().SetConfig at runtime.
const (
	KeyMaxMessageSize = "max_message_size"
	KeyAutoPong       = "auto_pong"
	KeyPollTimeoutMs  = "poll_timeout_ms"
)

// LoadConfig reads a JSON config file. Missing fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := control.LoadJSON(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyReload runs on the reactor goroutine.
func (s *Server) applyReload(values map[string]any) {
	if v, ok := values[KeyMaxMessageSize]; ok {
		if n, ok := control.Number(v); ok && n >= 0 {
			s.cfg.MaxMessageSize = uint64(n)
			for _, c := range s.conns {
				c.SetMaxMessageSize(s.cfg.MaxMessageSize)
			}
		}
	}
	if v, ok := values[KeyAutoPong].(bool); ok {
		s.cfg.AutoPong = v
		for _, c := range s.conns {
			c.SetAutoPong(v)
		}
	}
	if v, ok := values[KeyPollTimeoutMs]; ok {
		if n, ok := control.Number(v); ok {
			s.cfg.PollTimeout = control.Duration(time.Duration(n) * time.Millisecond)
			if t := s.cfg.pollTimeout(); t != s.pollTimeout {
				s.pollTimeout = t
				// The running Poll keeps its old timeout until it returns.
				s.mux.Stop()
			}
		}
	}
	s.log.Info("config reloaded",
		"max_message_size", s.cfg.MaxMessageSize,
		"auto_pong", s.cfg.AutoPong,
		"poll_timeout", s.pollTimeout)
}
