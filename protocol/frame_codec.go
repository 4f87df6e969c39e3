// File: protocol/frame_codec.go
// Package protocol implements server-side frame encoding.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frames emitted by the server are always final and never masked.

package protocol

import "encoding/binary"

// AppendFrame appends a final, unmasked frame carrying payload to dst.
func AppendFrame(dst []byte, op Opcode, payload []byte) []byte {
	n := len(payload)
	var hdr [10]byte
	hdr[0] = FinBit | byte(op&OpcodeBits)

	var header []byte
	switch {
	case n <= MaxControlPayloadLen:
		header = hdr[:2]
		header[1] = byte(n)
	case n <= 0xFFFF:
		header = hdr[:4]
		header[1] = len16Marker
		binary.BigEndian.PutUint16(header[2:], uint16(n))
	default:
		header = hdr[:10]
		header[1] = len64Marker
		u := uint64(n)
		binary.BigEndian.PutUint32(header[2:], uint32(u>>32))
		binary.BigEndian.PutUint32(header[6:], uint32(u))
	}

	dst = append(dst, header...)
	return append(dst, payload...)
}

// EncodeFrame returns a new final, unmasked frame.
func EncodeFrame(op Opcode, payload []byte) []byte {
	return AppendFrame(make([]byte, 0, headerLen(len(payload))+len(payload)), op, payload)
}

// EncodeMessage builds a text or binary frame for a whole message.
func EncodeMessage(payload []byte, isBinary bool) []byte {
	if isBinary {
		return EncodeFrame(OpcodeBinary, payload)
	}
	return EncodeFrame(OpcodeText, payload)
}

// EncodeClose builds a close frame with a status code and optional reason.
// The reason is truncated so the payload fits a control frame.
func EncodeClose(code uint16, reason string) []byte {
	if len(reason) > MaxControlPayloadLen-2 {
		reason = reason[:MaxControlPayloadLen-2]
	}
	p := make([]byte, 2, 2+len(reason))
	binary.BigEndian.PutUint16(p, code)
	p = append(p, reason...)
	return EncodeFrame(OpcodeClose, p)
}

// ParseClosePayload splits a close payload into status code and reason.
// ok is false when the payload carries no status code.
func ParseClosePayload(p []byte) (code uint16, reason string, ok bool) {
	if len(p) < 2 {
		return 0, "", false
	}
	return binary.BigEndian.Uint16(p), string(p[2:]), true
}

// MaskBytes XORs b with key starting at key position pos and returns the
// position for the next call. Applying it twice restores the input.
func MaskBytes(key [4]byte, pos int, b []byte) int {
	for i := range b {
		b[i] ^= key[pos&3]
		pos++
	}
	return pos & 3
}

func headerLen(n int) int {
	switch {
	case n <= MaxControlPayloadLen:
		return 2
	case n <= 0xFFFF:
		return 4
	default:
		return 10
	}
}
