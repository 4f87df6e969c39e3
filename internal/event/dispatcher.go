// File: internal/event/dispatcher.go
// Package event implements ordered listener dispatch for api.Event values.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatch is re-entrancy safe: an event emitted by a listener while another
// event is being delivered is queued and delivered once the current event has
// reached every listener. Listeners therefore observe events in the order in
// which they occurred. Not safe for concurrent use; owned by the reactor thread.

package event

import (
	"github.com/eapache/queue"

	"github.com/momentics/wsreactor/api"
)

// Dispatcher fans events out to an ordered list of listeners.
type Dispatcher struct {
	listeners   []api.Listener
	pending     *queue.Queue
	dispatching bool
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{pending: queue.New()}
}

// Subscribe appends l to the listener list.
func (d *Dispatcher) Subscribe(l api.Listener) {
	if l == nil {
		return
	}
	d.listeners = append(d.listeners, l)
}

// Len returns the number of subscribed listeners.
func (d *Dispatcher) Len() int { return len(d.listeners) }

// Emit delivers ev to every listener. When called outside a dispatch it
// returns only after ev and everything it triggered has been delivered.
func (d *Dispatcher) Emit(ev api.Event) {
	d.pending.Add(ev)
	if d.dispatching {
		return
	}
	d.dispatching = true
	defer func() { d.dispatching = false }()

	for d.pending.Length() > 0 {
		next := d.pending.Remove().(api.Event)
		// Subscriptions made during delivery apply from the next event on.
		for _, l := range d.listeners {
			l.HandleEvent(next)
		}
	}
}
