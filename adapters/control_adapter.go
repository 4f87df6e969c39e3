// File: adapters/control_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"github.com/momentics/wsreactor/api"
	"github.com/momentics/wsreactor/control"
)

var (
	_ api.Control = (*ControlAdapter)(nil)
	_ api.Debug   = (*ControlAdapter)(nil)
)

// ControlAdapter joins the config store, metrics registry and debug probes.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

func NewControlAdapter() *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// SetConfig merges cfg and runs reload hooks synchronously.
func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	if cfg == nil {
		return api.ErrInvalidArgument
	}
	c.config.SetConfig(cfg)
	return nil
}

// Stats merges metrics, config values and probe output (prefixed "debug.").
func (c *ControlAdapter) Stats() map[string]any {
	combined := c.config.GetSnapshot()
	for k, v := range c.metrics.GetSnapshot() {
		combined[k] = v
	}
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

// StatsJSON renders Stats as JSON.
func (c *ControlAdapter) StatsJSON() ([]byte, error) {
	return control.MarshalStats(c.Stats())
}

func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}

func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

// AddMetric increments a counter.
func (c *ControlAdapter) AddMetric(key string, delta int64) int64 {
	return c.metrics.Add(key, delta)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// DumpState implements api.Debug.
func (c *ControlAdapter) DumpState() map[string]any {
	return c.debug.DumpState()
}

// RegisterProbe implements api.Debug.
func (c *ControlAdapter) RegisterProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}
