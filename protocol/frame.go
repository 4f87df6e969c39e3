// File: protocol/frame.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Incremental WebSocket frame decoder.
//
// A Frame is fed raw bytes as they arrive from the socket, in chunks of any
// size. Once the header and the full payload are buffered it becomes complete:
// the payload is unmasked in place and the frame is immutable. Bytes received
// past the frame boundary are kept aside as extra data for the next frame.

package protocol

import "encoding/binary"

const maxInt = int(^uint(0) >> 1)

// Direction tells the decoder who produced the frame, which decides the
// masking requirement.
type Direction int

const (
	FromClient Direction = iota
	FromServer
)

// Frame is one wire unit under construction or fully received.
type Frame struct {
	dir    Direction
	limit  uint64 // max payload length, 0 = unlimited
	final  bool
	opcode Opcode
	masked bool
	length uint64
	key    [4]byte

	// partial state
	buf          []byte
	offset       int
	headerParsed bool
	complete     bool
	err          error

	payload []byte
	extra   []byte
}

// NewFrame returns an empty frame expecting data from dir.
func NewFrame(dir Direction) *Frame {
	return &Frame{dir: dir}
}

// SetLimit bounds the payload length accepted by this frame. Zero disables the check.
func (f *Frame) SetLimit(n uint64) { f.limit = n }

// Feed appends p to the frame. It returns true once the frame is complete.
// A returned error is a *FrameError and is sticky: the frame is unusable.
func (f *Frame) Feed(p []byte) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.complete {
		f.extra = append(f.extra, p...)
		return true, nil
	}
	f.buf = append(f.buf, p...)

	ok, err := f.parseHeader()
	if err != nil {
		f.err = err
		f.buf = nil
		return false, err
	}
	if !ok {
		return false, nil
	}

	end := f.offset + int(f.length)
	if len(f.buf) < end {
		return false, nil
	}
	if len(f.buf) > end {
		f.extra = append([]byte(nil), f.buf[end:]...)
	}
	f.payload = f.buf[f.offset:end:end]
	f.buf = nil
	if f.masked {
		MaskBytes(f.key, 0, f.payload)
	}
	f.complete = true
	return true, nil
}

// parseHeader is idempotent; it returns false while more bytes are needed.
func (f *Frame) parseHeader() (bool, error) {
	if f.headerParsed {
		return true, nil
	}
	b := f.buf
	if len(b) < 2 {
		return false, nil
	}

	if b[0]&RsvBits != 0 {
		return false, newFrameError(ErrKindReservedBits, "reserved bits set without a negotiated extension")
	}
	f.final = b[0]&FinBit != 0
	f.opcode = Opcode(b[0] & OpcodeBits)
	if !f.opcode.Valid() {
		return false, newFrameError(ErrKindReservedOpcode, "reserved opcode "+f.opcode.hex())
	}
	f.masked = b[1]&MaskBit != 0
	f.length = uint64(b[1] & LenBits)
	offset := 2

	switch f.length {
	case len16Marker:
		if len(b) < offset+2 {
			return false, nil
		}
		f.length = uint64(binary.BigEndian.Uint16(b[offset:]))
		offset += 2
	case len64Marker:
		if len(b) < offset+8 {
			return false, nil
		}
		// Two 32-bit halves, so the arithmetic never relies on a native 64-bit int.
		hi := binary.BigEndian.Uint32(b[offset:])
		lo := binary.BigEndian.Uint32(b[offset+4:])
		if hi&0x80000000 != 0 {
			return false, newFrameError(ErrKindLengthOverflow, "64-bit frame length has the most significant bit set")
		}
		f.length = uint64(hi)<<32 | uint64(lo)
		offset += 8
	}

	if f.opcode.IsControl() {
		if f.length > MaxControlPayloadLen {
			return false, newFrameError(ErrKindControlTooLong, "control frame too long")
		}
		if !f.final {
			return false, newFrameError(ErrKindControlFragmented, "control frame is fragmented")
		}
	}
	if f.limit > 0 && f.length > f.limit {
		return false, newFrameError(ErrKindTooLarge, "frame payload exceeds the configured limit")
	}

	if f.masked {
		if len(b) < offset+4 {
			return false, nil
		}
		copy(f.key[:], b[offset:offset+4])
		offset += 4
	}
	if !f.masked && f.dir == FromClient {
		return false, newFrameError(ErrKindUnmasked, "frames from the client must be masked")
	}

	if f.length > uint64(maxInt-offset) {
		return false, newFrameError(ErrKindLengthOverflow, "frame length not representable on this platform")
	}

	f.offset = offset
	f.headerParsed = true
	return true, nil
}

// IsComplete reports whether header and payload have been fully received.
func (f *Frame) IsComplete() bool { return f.complete }

// HeaderParsed reports whether the header has been decoded.
func (f *Frame) HeaderParsed() bool { return f.headerParsed }

// IsFinal returns the FIN bit. Valid once the header is parsed.
func (f *Frame) IsFinal() bool { return f.final }

// Opcode returns the frame type. Valid once the header is parsed.
func (f *Frame) Opcode() Opcode { return f.opcode }

// IsControl reports whether this is a close, ping or pong frame.
func (f *Frame) IsControl() bool { return f.opcode.IsControl() }

// Masked reports the MASK bit as it appeared on the wire.
func (f *Frame) Masked() bool { return f.masked }

// Length returns the declared payload length. Valid once the header is parsed.
func (f *Frame) Length() uint64 { return f.length }

// Direction returns who produced the frame.
func (f *Frame) Direction() Direction { return f.dir }

// Payload returns the unmasked payload of a complete frame, nil otherwise.
func (f *Frame) Payload() []byte { return f.payload }

// ExtraData returns the bytes fed past this frame's boundary. They belong to
// the next frame and must be fed into a new Frame.
func (f *Frame) ExtraData() []byte { return f.extra }

func (op Opcode) hex() string {
	const digits = "0123456789abcdef"
	return "0x" + string(digits[op&0x0F])
}
