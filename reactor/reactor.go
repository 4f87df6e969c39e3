// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral types shared by the multiplexer and its OS backends.

package reactor

import "time"

// NoTimeout makes Poll block until a handle is ready or Stop is called.
const NoTimeout time.Duration = -1

// DefaultMaxEvents is the number of readiness events fetched per wait call.
const DefaultMaxEvents = 128

// ID identifies a registered handle. Zero is never assigned.
type ID uint64

// Handle is a pollable OS resource, usually a socket.
type Handle interface {
	// Fd returns the OS descriptor used for readiness notification.
	Fd() int

	// Close releases the descriptor.
	Close() error
}

// Watcher receives readiness callbacks for the handles it is registered with.
// Watchers are used as map keys and must be comparable (pointer types).
type Watcher interface {
	// Ready is called when h has data (or a pending accept) available.
	Ready(id ID, h Handle)

	// Closed is called once the peer has closed h. The multiplexer has already
	// closed and deregistered the handle.
	Closed(id ID, h Handle)
}

// PollResult explains why Poll returned.
type PollResult int

const (
	// PollTimeout: the timeout elapsed without any handle becoming ready.
	PollTimeout PollResult = iota
	// PollStopped: no handles are registered any more.
	PollStopped
	// PollError: the OS wait primitive failed.
	PollError
	// PollInterrupted: Stop was called.
	PollInterrupted
)

func (r PollResult) String() string {
	switch r {
	case PollTimeout:
		return "timeout"
	case PollStopped:
		return "stopped"
	case PollError:
		return "error"
	case PollInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// readiness is one ready descriptor reported by a backend. hangup only
// means the peer may be gone; the multiplexer confirms it at dispatch time,
// since an earlier callback in the same batch may have reused the descriptor.
type readiness struct {
	fd     int
	hangup bool
}

// poller is the OS wait primitive.
type poller interface {
	add(fd int) error
	remove(fd int) error
	// wait fills out with ready descriptors. woken is true when wake was
	// called since the previous wait.
	wait(out []readiness, timeout time.Duration) (n int, woken bool, err error)
	wake() error
	close() error
	// peerClosed reports end-of-stream once no unread bytes remain on fd.
	peerClosed(fd int) bool
}
