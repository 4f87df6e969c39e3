// File: api/events.go
// Package api defines the event variants raised by the WebSocket server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// EventKind tags an Event variant.
type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventMessage
	EventDisconnected
	EventHandshake
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventMessage:
		return "message"
	case EventDisconnected:
		return "disconnected"
	case EventHandshake:
		return "handshake"
	default:
		return "unknown"
	}
}

// Event is one of Connected, Message, Disconnected or Handshake.
// Events are delivered by value and must not be mutated by listeners.
type Event interface {
	Kind() EventKind
}

// Connected is emitted once the upgrade handshake has been accepted.
type Connected struct {
	Conn Conn
}

// Message carries one fully reassembled message.
// Payload is owned by the event; the engine never reuses it.
type Message struct {
	Conn    Conn
	Payload []byte
	Binary  bool
}

// Text returns the payload as a string.
func (m Message) Text() string { return string(m.Payload) }

// Disconnected is emitted exactly once per connection.
type Disconnected struct {
	Conn Conn
}

// Handshake is emitted before the upgrade response is written.
// Listeners may call Request.Reject or Request.SetProtocol.
type Handshake struct {
	Request HandshakeRequest
}

func (Connected) Kind() EventKind    { return EventConnected }
func (Message) Kind() EventKind      { return EventMessage }
func (Disconnected) Kind() EventKind { return EventDisconnected }
func (Handshake) Kind() EventKind    { return EventHandshake }
