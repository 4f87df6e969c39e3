// File: protocol/constants.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WebSocket wire protocol constants

package protocol

// Opcode is the 4-bit frame type.
type Opcode byte

const (
	OpcodeContinuation Opcode = 0x0
	OpcodeText         Opcode = 0x1
	OpcodeBinary       Opcode = 0x2
	OpcodeClose        Opcode = 0x8
	OpcodePing         Opcode = 0x9
	OpcodePong         Opcode = 0xA
)

const (
	// Frame limit settings
	MaxControlPayloadLen = 125
	MaxFrameHeaderLen    = 14 // for extended payloads with masking

	// Bit masks
	FinBit     = 0x80
	RsvBits    = 0x70
	OpcodeBits = 0x0F
	MaskBit    = 0x80
	LenBits    = 0x7F

	// Length markers in the 7-bit length field
	len16Marker = 126
	len64Marker = 127
)

// Close codes
const (
	CloseNormalClosure      = 1000
	CloseGoingAway          = 1001
	CloseProtocolError      = 1002
	CloseUnsupportedData    = 1003
	CloseNoStatusRcvd       = 1005
	CloseAbnormalClosure    = 1006
	CloseInvalidPayloadData = 1007
	ClosePolicyViolation    = 1008
	CloseMessageTooBig      = 1009
	CloseMissingExtension   = 1010
	CloseInternalServerErr  = 1011
)

// IsControl reports whether op is close, ping or pong.
func (op Opcode) IsControl() bool { return op&0x8 != 0 }

// IsData reports whether op carries message data (continuation, text, binary).
func (op Opcode) IsData() bool { return op <= OpcodeBinary }

// Valid reports whether op is defined by RFC 6455.
func (op Opcode) Valid() bool {
	switch op {
	case OpcodeContinuation, OpcodeText, OpcodeBinary, OpcodeClose, OpcodePing, OpcodePong:
		return true
	}
	return false
}

func (op Opcode) String() string {
	switch op {
	case OpcodeContinuation:
		return "continuation"
	case OpcodeText:
		return "text"
	case OpcodeBinary:
		return "binary"
	case OpcodeClose:
		return "close"
	case OpcodePing:
		return "ping"
	case OpcodePong:
		return "pong"
	default:
		return "reserved"
	}
}
