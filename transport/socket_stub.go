//go:build !linux
// +build !linux

// File: transport/socket_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub implementation for unsupported platforms.

package transport

import (
	"github.com/pkg/errors"

	"github.com/momentics/wsreactor/api"
)

// Listen is not supported on this platform.
func Listen(addr string) (*Listener, error) {
	return nil, errors.Wrap(api.ErrNotSupported, "transport listen")
}

// Accept is not supported on this platform.
func (l *Listener) Accept() (*Socket, error) { return nil, api.ErrNotSupported }

// Close is a no-op on this platform.
func (l *Listener) Close() error { return nil }

// Read is not supported on this platform.
func (s *Socket) Read(p []byte) (int, error) { return 0, api.ErrNotSupported }

// Write is not supported on this platform.
func (s *Socket) Write(p []byte) (int, error) { return 0, api.ErrNotSupported }

// Close is a no-op on this platform.
func (s *Socket) Close() error { return nil }

// SocketPair is not supported on this platform.
func SocketPair() (*Socket, *Socket, error) {
	return nil, nil, errors.Wrap(api.ErrNotSupported, "transport socketpair")
}
