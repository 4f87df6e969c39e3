// File: api/debug.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Probe-only diagnostics, without the config and metrics of Control.

package api

// Debug exposes the registered debug probes of a server. Probe functions
// may be called from any goroutine and must only read atomics or locked state.
type Debug interface {
	// DumpState evaluates every probe, keyed by probe name.
	DumpState() map[string]any

	// RegisterProbe adds or replaces a named probe.
	RegisterProbe(name string, fn func() any)
}
