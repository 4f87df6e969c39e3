// Copyright (c) 2025
// File: reactor/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package reactor provides the single-threaded readiness multiplexer that
// drives every socket of the server. Handles are registered under an ID
// together with a Watcher; Poll blocks on the OS wait primitive (epoll on
// Linux) and dispatches Ready/Closed callbacks on the calling goroutine, so
// registry and connection state need no locking. Other goroutines reach the
// loop only through Submit and Stop.
package reactor
