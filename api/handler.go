// File: api/handler.go
// Package api defines Listener interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Listener receives events in subscription order.
type Listener interface {
	HandleEvent(ev Event)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(ev Event)

// HandleEvent calls f(ev).
func (f ListenerFunc) HandleEvent(ev Event) { f(ev) }
