// Package pool
// File: pool/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Buffer pooling for connection read chunks.
// See bytepool.go and objpool.go for implementation details.
package pool
