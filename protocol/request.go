// File: protocol/request.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Accumulates the HTTP upgrade request from non-blocking reads.

package protocol

import (
	"bufio"
	"bytes"
	"net/http"

	"github.com/pkg/errors"
)

// MaxHandshakeHeadersSize bounds the request line plus headers.
const MaxHandshakeHeadersSize = 8192

// ErrRequestTooLarge is returned when the header block exceeds the limit.
var ErrRequestTooLarge = errors.New("handshake: request headers too large")

var headerTerminator = []byte("\r\n\r\n")

// RequestReader buffers bytes until the blank line ending the header block.
type RequestReader struct {
	buf   []byte
	limit int
	end   int // index just past the terminator, 0 while incomplete
}

// NewRequestReader creates a reader accepting at most limit header bytes.
// A non-positive limit selects MaxHandshakeHeadersSize.
func NewRequestReader(limit int) *RequestReader {
	if limit <= 0 {
		limit = MaxHandshakeHeadersSize
	}
	return &RequestReader{limit: limit}
}

// Feed appends p and reports whether the header block is complete.
func (r *RequestReader) Feed(p []byte) (bool, error) {
	if r.end > 0 {
		r.buf = append(r.buf, p...)
		return true, nil
	}
	// The terminator may straddle the previous chunk.
	from := len(r.buf) - (len(headerTerminator) - 1)
	if from < 0 {
		from = 0
	}
	r.buf = append(r.buf, p...)
	if i := bytes.Index(r.buf[from:], headerTerminator); i >= 0 {
		r.end = from + i + len(headerTerminator)
	}
	if (r.end == 0 && len(r.buf) > r.limit) || r.end > r.limit {
		return false, ErrRequestTooLarge
	}
	return r.end > 0, nil
}

// Complete reports whether the header block has been received.
func (r *RequestReader) Complete() bool { return r.end > 0 }

// Header returns the raw header block including the terminating blank line.
func (r *RequestReader) Header() []byte {
	if r.end == 0 {
		return nil
	}
	return r.buf[:r.end]
}

// Leftover returns bytes received after the header block.
func (r *RequestReader) Leftover() []byte {
	if r.end == 0 || r.end == len(r.buf) {
		return nil
	}
	return r.buf[r.end:]
}

// ParseRequest parses a complete header block.
func ParseRequest(raw []byte) (*http.Request, error) {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, errors.Wrap(err, "handshake read request")
	}
	return req, nil
}
