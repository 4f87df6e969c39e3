// File: control/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Named probe functions evaluated on demand.

package control

import "sync"

// DebugProbes holds registered probe functions. The server registers
// "reactor.handles", "server.connections", "server.poll_timeout_ms" and
// "pool.buffers_in_use"; RegisterPlatformProbes adds the "platform.*" keys.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates an empty probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: make(map[string]func() any)}
}

// RegisterProbe adds or replaces a probe. A nil fn removes it.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if fn == nil {
		delete(dp.probes, name)
		return
	}
	dp.probes[name] = fn
}

// DumpState evaluates every probe. Probes run without the registry lock
// held, so a probe may itself register probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	fns := make(map[string]func() any, len(dp.probes))
	for k, fn := range dp.probes {
		fns[k] = fn
	}
	dp.mu.RUnlock()

	out := make(map[string]any, len(fns))
	for k, fn := range fns {
		out[k] = fn()
	}
	return out
}
