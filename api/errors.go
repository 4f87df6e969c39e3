// File: api/errors.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Common error types and error handling utilities for wsreactor.

package api

import "github.com/pkg/errors"

// Common errors used across the library.
var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrServerClosed     = errors.New("server is closed")
	ErrAlreadyRunning   = errors.New("server already running")
	ErrNotListening     = errors.New("server is not listening")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotSupported     = errors.New("operation not supported on this platform")
)
