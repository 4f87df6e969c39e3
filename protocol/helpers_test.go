package protocol_test

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/momentics/wsreactor/protocol"
)

var testKey = [4]byte{0x37, 0xfa, 0x21, 0x3d}

// clientFrame builds a masked frame the way a browser would.
func clientFrame(fin bool, op protocol.Opcode, payload []byte) []byte {
	return rawFrame(fin, op, payload, true)
}

func rawFrame(fin bool, op protocol.Opcode, payload []byte, masked bool) []byte {
	var b []byte
	b0 := byte(op)
	if fin {
		b0 |= protocol.FinBit
	}
	b = append(b, b0)
	var mask byte
	if masked {
		mask = protocol.MaskBit
	}
	n := len(payload)
	switch {
	case n <= 125:
		b = append(b, mask|byte(n))
	case n <= 0xFFFF:
		b = append(b, mask|126, 0, 0)
		binary.BigEndian.PutUint16(b[2:], uint16(n))
	default:
		b = append(b, mask|127, 0, 0, 0, 0, 0, 0, 0, 0)
		binary.BigEndian.PutUint64(b[2:], uint64(n))
	}
	if !masked {
		return append(b, payload...)
	}
	b = append(b, testKey[:]...)
	start := len(b)
	b = append(b, payload...)
	protocol.MaskBytes(testKey, 0, b[start:])
	return b
}

// fakeSocket is an in-memory protocol.Socket.
type fakeSocket struct {
	in         bytes.Buffer
	out        bytes.Buffer
	closed     int
	writeLimit int // 0 = unlimited
	writeErr   error
}

func (s *fakeSocket) Read(p []byte) (int, error) {
	if s.in.Len() == 0 {
		return 0, io.EOF
	}
	return s.in.Read(p)
}

func (s *fakeSocket) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	if s.writeLimit > 0 && len(p) > s.writeLimit {
		p = p[:s.writeLimit]
	}
	return s.out.Write(p)
}

func (s *fakeSocket) Close() error {
	s.closed++
	return nil
}
