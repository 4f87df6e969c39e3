// File: transport/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral socket types and address helpers.

package transport

import (
	"net"
	"strings"

	"github.com/pkg/errors"
)

// ErrWouldBlock is returned when a non-blocking operation has nothing to do.
var ErrWouldBlock = errors.New("transport: operation would block")

// ErrClosed is returned by operations on a closed socket.
var ErrClosed = errors.New("transport: socket closed")

// Socket is a connected, non-blocking stream socket.
//
// Read returns (0, nil) when no data is available and io.EOF once the peer
// has closed its side. Write performs a single send and may be partial.
type Socket struct {
	fd     int
	remote string
}

// Fd returns the descriptor, -1 once closed.
func (s *Socket) Fd() int { return s.fd }

// RemoteAddr returns the peer address.
func (s *Socket) RemoteAddr() string { return s.remote }

// Listener is a non-blocking listening socket.
type Listener struct {
	fd   int
	addr *net.TCPAddr
}

// Fd returns the descriptor, -1 once closed.
func (l *Listener) Fd() int { return l.fd }

// Addr returns the bound address, with the kernel-chosen port for ":0".
func (l *Listener) Addr() *net.TCPAddr { return l.addr }

// NormalizeAddr turns a bare port ("8088") into "0.0.0.0:8088".
func NormalizeAddr(addr string) string {
	if addr == "" {
		return "0.0.0.0:0"
	}
	if strings.Trim(addr, "0123456789") == "" {
		return "0.0.0.0:" + addr
	}
	return addr
}
