// Copyright (c) 2025
// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package transport provides raw non-blocking TCP sockets for the reactor:
// a listening socket with non-blocking accept, and connected sockets whose
// Read and Write never block. Descriptors are exposed through Fd so they can
// be registered with reactor.Multiplexer.
package transport
