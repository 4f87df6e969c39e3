// Package protocol
// File: protocol/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Implements the WebSocket protocol engine (RFC 6455) for wsreactor.
//
// Includes:
//   - Incremental frame decoding that tolerates arbitrary read boundaries
//   - Unmasked, unfragmented server frame encoding
//   - The per-connection engine reassembling fragments into messages
//   - Ping/Pong/Close control frame handling
//   - The HTTP upgrade handshake (request accumulation, validation, accept key)
//
// Nothing in this package performs blocking I/O or starts goroutines; it is
// driven from the reactor's poll loop.
package protocol
