// File: api/websocket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Defines the connection and handshake contracts exposed to host applications.

package api

// ConnID identifies a connection. It is minted once, when the connection's
// socket is first registered with the reactor, and never reused while live.
type ConnID uint64

// Conn is a live WebSocket session as seen by listeners.
type Conn interface {
	// ID returns the identifier assigned at registration.
	ID() ConnID

	// RemoteAddr returns the peer address, or "" if unknown.
	RemoteAddr() string

	// SendMessage writes one unfragmented text or binary frame and
	// returns the number of bytes handed to the socket.
	SendMessage(payload []byte, binary bool) (int, error)

	// SendText is SendMessage for a text payload.
	SendText(text string) (int, error)

	// Close tears the session down. It is idempotent.
	Close() error

	// IsClosed reports whether the session has been torn down.
	IsClosed() bool
}

// HandshakeRequest is a pending HTTP upgrade request.
type HandshakeRequest interface {
	// Path returns the request target, e.g. "/chat?room=1".
	Path() string

	// Header returns the first value of the named header (case-insensitive).
	Header(name string) string

	// RemoteAddr returns the peer address, or "" if unknown.
	RemoteAddr() string

	// Protocols returns the sub-protocols offered by the client, in order.
	Protocols() []string

	// Protocol returns the sub-protocol that will be echoed back.
	Protocol() string

	// SetProtocol selects the sub-protocol to echo back.
	SetProtocol(p string)

	// Reject aborts the upgrade with the given HTTP status.
	Reject(status int, reason string)

	// Rejected reports whether the request will be refused.
	Rejected() bool
}
