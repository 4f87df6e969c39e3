// File: protocol/handshake.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server side of the HTTP upgrade: request validation, Sec-WebSocket-Accept
// computation and the raw response bytes.

package protocol

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	HeaderConnection         = "Connection"
	HeaderUpgrade            = "Upgrade"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	HeaderSecWebSocketProto  = "Sec-WebSocket-Protocol"
	HeaderSecWebSocketAccept = "Sec-WebSocket-Accept"
	RequiredWebSocketVersion = "13"
)

// ComputeAcceptKey computes the Sec-WebSocket-Accept value from the client's key.
// This implements the algorithm specified in RFC6455 Section 1.3.
func ComputeAcceptKey(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// Handshake is a pending upgrade request together with the response that
// will be written for it. It implements api.HandshakeRequest.
type Handshake struct {
	req       *http.Request
	remote    string
	status    int
	reason    string
	key       string
	protocols []string
	protocol  string
	extra     http.Header
}

// NewHandshake wraps a parsed request. Call Validate before use.
func NewHandshake(req *http.Request, remote string) *Handshake {
	return &Handshake{req: req, remote: remote, extra: make(http.Header)}
}

// ParseHandshake parses a raw header block. A malformed request yields a
// handshake already rejected with 400 Bad Request.
func ParseHandshake(raw []byte, remote string) *Handshake {
	req, err := ParseRequest(raw)
	if err != nil {
		h := NewHandshake(nil, remote)
		h.Reject(http.StatusBadRequest, "Bad Request")
		return h
	}
	h := NewHandshake(req, remote)
	h.Validate()
	return h
}

// Validate checks the upgrade request and prepares a 101 or 400 response.
// It returns true when the upgrade may proceed.
func (h *Handshake) Validate() bool {
	if h.Rejected() {
		return false
	}
	r := h.req
	switch {
	case r == nil || r.Method != http.MethodGet || r.Proto != "HTTP/1.1" ||
		!strings.HasPrefix(r.RequestURI, "/"):
		h.Reject(http.StatusBadRequest, "Bad Request")
	case !containsFold(r.Header.Values(HeaderUpgrade), "websocket"):
		h.Reject(http.StatusBadRequest, "Unrecognised Upgrade header")
	case !containsFold(r.Header.Values(HeaderConnection), "upgrade"):
		h.Reject(http.StatusBadRequest, "Unrecognised Connection header")
	case r.Header.Get(HeaderSecWebSocketVer) != RequiredWebSocketVersion:
		h.extra.Set(HeaderSecWebSocketVer, RequiredWebSocketVersion)
		h.Reject(http.StatusBadRequest, "Unrecognised Sec-WebSocket-Version header")
	case r.Header.Get(HeaderSecWebSocketKey) == "":
		h.Reject(http.StatusBadRequest, "Unrecognised Sec-WebSocket-Key")
	default:
		h.key = r.Header.Get(HeaderSecWebSocketKey)
		h.protocols = splitTokens(r.Header.Values(HeaderSecWebSocketProto))
		if len(h.protocols) > 0 {
			h.protocol = h.protocols[0]
		}
		h.status = http.StatusSwitchingProtocols
		h.reason = "Switching Protocols"
		return true
	}
	return false
}

// Request returns the parsed HTTP request, nil if it was malformed.
func (h *Handshake) Request() *http.Request { return h.req }

// Path returns the request target.
func (h *Handshake) Path() string {
	if h.req == nil {
		return ""
	}
	return h.req.RequestURI
}

// Header returns the first value of the named request header.
func (h *Handshake) Header(name string) string {
	if h.req == nil {
		return ""
	}
	// net/http moves Host out of the header map.
	if strings.EqualFold(name, "Host") {
		return h.req.Host
	}
	return h.req.Header.Get(name)
}

// RemoteAddr returns the peer address.
func (h *Handshake) RemoteAddr() string { return h.remote }

// Key returns the client's Sec-WebSocket-Key.
func (h *Handshake) Key() string { return h.key }

// Protocols returns the offered sub-protocols.
func (h *Handshake) Protocols() []string { return h.protocols }

// Protocol returns the sub-protocol to echo.
func (h *Handshake) Protocol() string { return h.protocol }

// SetProtocol selects the sub-protocol to echo.
func (h *Handshake) SetProtocol(p string) { h.protocol = p }

// Reject refuses the upgrade. A zero status means 400; an empty reason uses
// the standard status text.
func (h *Handshake) Reject(status int, reason string) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	if reason == "" {
		reason = http.StatusText(status)
	}
	h.status = status
	h.reason = reason
}

// Rejected reports whether the response will refuse the upgrade.
func (h *Handshake) Rejected() bool {
	return h.status != 0 && h.status != http.StatusSwitchingProtocols
}

// Accepted reports whether the response will switch protocols.
func (h *Handshake) Accepted() bool { return h.status == http.StatusSwitchingProtocols }

// Status returns the response status code and reason phrase.
func (h *Handshake) Status() (int, string) { return h.status, h.reason }

// Response renders the HTTP response bytes.
func (h *Handshake) Response() []byte {
	var b bytes.Buffer
	status, reason := h.status, h.reason
	if status == 0 {
		status, reason = http.StatusBadRequest, http.StatusText(http.StatusBadRequest)
	}
	b.WriteString("HTTP/1.1 " + strconv.Itoa(status) + " " + reason + "\r\n")
	if h.Accepted() {
		writeHeader(&b, HeaderUpgrade, "websocket")
		writeHeader(&b, HeaderConnection, "Upgrade")
		writeHeader(&b, HeaderSecWebSocketAccept, ComputeAcceptKey(h.key))
		if h.protocol != "" {
			writeHeader(&b, HeaderSecWebSocketProto, h.protocol)
		}
	} else {
		for k, vs := range h.extra {
			for _, v := range vs {
				writeHeader(&b, k, v)
			}
		}
		writeHeader(&b, HeaderConnection, "close")
		writeHeader(&b, "Content-Length", "0")
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// WriteResponse writes Response to w.
func (h *Handshake) WriteResponse(w io.Writer) (int, error) {
	return w.Write(h.Response())
}

func writeHeader(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

// containsFold reports whether any value contains sub, case-insensitively.
func containsFold(values []string, sub string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), sub) {
			return true
		}
	}
	return false
}

func splitTokens(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
