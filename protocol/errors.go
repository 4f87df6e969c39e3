// File: protocol/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Protocol violation errors returned by the frame decoder and connection engine.

package protocol

import "github.com/pkg/errors"

// ErrProtocol matches every *FrameError via errors.Is.
var ErrProtocol = errors.New("websocket: protocol violation")

// FrameErrorKind classifies a protocol violation.
type FrameErrorKind int

const (
	ErrKindUnmasked FrameErrorKind = iota + 1
	ErrKindControlTooLong
	ErrKindControlFragmented
	ErrKindLengthOverflow
	ErrKindReservedOpcode
	ErrKindReservedBits
	ErrKindTooLarge
	ErrKindUnexpectedContinuation
	ErrKindInterleavedMessage
)

func (k FrameErrorKind) String() string {
	switch k {
	case ErrKindUnmasked:
		return "unmasked"
	case ErrKindControlTooLong:
		return "control_too_long"
	case ErrKindControlFragmented:
		return "control_fragmented"
	case ErrKindLengthOverflow:
		return "length_overflow"
	case ErrKindReservedOpcode:
		return "reserved_opcode"
	case ErrKindReservedBits:
		return "reserved_bits"
	case ErrKindTooLarge:
		return "too_large"
	case ErrKindUnexpectedContinuation:
		return "unexpected_continuation"
	case ErrKindInterleavedMessage:
		return "interleaved_message"
	default:
		return "unknown"
	}
}

// FrameError is a fatal protocol violation. The connection that produced it
// must be closed.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
}

func newFrameError(kind FrameErrorKind, msg string) *FrameError {
	return &FrameError{Kind: kind, Msg: msg}
}

func (e *FrameError) Error() string { return "websocket: " + e.Msg }

// Is makes errors.Is(err, ErrProtocol) true for every FrameError.
func (e *FrameError) Is(target error) bool { return target == ErrProtocol }

// CloseCode returns the close status to report to the peer.
func (e *FrameError) CloseCode() uint16 {
	if e.Kind == ErrKindTooLarge {
		return CloseMessageTooBig
	}
	return CloseProtocolError
}
