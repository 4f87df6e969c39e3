// File: api/control.go
// Package api defines the runtime control surface of a server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control is the runtime view of a running server: a key/value config that
// can be changed while serving, plus counters and debug probe output.
type Control interface {
	// GetConfig returns a snapshot of the runtime config values.
	GetConfig() map[string]any

	// SetConfig merges cfg into the runtime config and runs reload hooks.
	// The server reacts to "max_message_size", "auto_pong" and
	// "poll_timeout_ms".
	SetConfig(cfg map[string]any) error

	// Stats merges config, metrics and probe output. Probe values are
	// prefixed with "debug.".
	Stats() map[string]any

	// OnReload adds a hook called after every SetConfig.
	OnReload(fn func())

	// RegisterDebugProbe adds a named probe evaluated on every Stats call.
	RegisterDebugProbe(name string, fn func() any)
}
