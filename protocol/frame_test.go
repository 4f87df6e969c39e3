package protocol_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/gobwas/ws"
	"github.com/pkg/errors"

	"github.com/momentics/wsreactor/protocol"
)

var payloadSizes = []int{0, 1, 125, 126, 127, 1000, 65535, 65536, 70000}

func randomPayload(n int) []byte {
	p := make([]byte, n)
	rand.New(rand.NewSource(int64(n))).Read(p)
	return p
}

func feedAll(t *testing.T, f *protocol.Frame, data []byte) {
	t.Helper()
	complete, err := f.Feed(data)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if !complete {
		t.Fatal("frame incomplete")
	}
}

func wantKind(t *testing.T, err error, kind protocol.FrameErrorKind) {
	t.Helper()
	var fe *protocol.FrameError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FrameError", err)
	}
	if fe.Kind != kind {
		t.Fatalf("kind = %v, want %v", fe.Kind, kind)
	}
	if !errors.Is(err, protocol.ErrProtocol) {
		t.Error("FrameError does not match ErrProtocol")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, n := range payloadSizes {
		p := randomPayload(n)
		for _, op := range []protocol.Opcode{protocol.OpcodeText, protocol.OpcodeBinary} {
			f := protocol.NewFrame(protocol.FromServer)
			feedAll(t, f, protocol.EncodeFrame(op, p))
			if f.Opcode() != op || !f.IsFinal() || f.Masked() {
				t.Errorf("n=%d: header %v final=%v masked=%v", n, f.Opcode(), f.IsFinal(), f.Masked())
			}
			if f.Length() != uint64(n) || !bytes.Equal(f.Payload(), p) {
				t.Errorf("n=%d: payload mismatch", n)
			}
			if f.ExtraData() != nil {
				t.Errorf("n=%d: unexpected extra data", n)
			}
		}
	}
}

func TestHeaderLengthTiers(t *testing.T) {
	cases := []struct {
		n      int
		header int
	}{{125, 2}, {126, 4}, {65535, 4}, {65536, 10}}
	for _, c := range cases {
		got := len(protocol.EncodeFrame(protocol.OpcodeBinary, make([]byte, c.n))) - c.n
		if got != c.header {
			t.Errorf("len %d: header %d bytes, want %d", c.n, got, c.header)
		}
	}
}

func TestMaskingInvolution(t *testing.T) {
	orig := randomPayload(1021)
	b := append([]byte(nil), orig...)
	protocol.MaskBytes(testKey, 0, b)
	if bytes.Equal(b, orig) {
		t.Fatal("masking changed nothing")
	}
	protocol.MaskBytes(testKey, 0, b)
	if !bytes.Equal(b, orig) {
		t.Fatal("masking twice did not restore the payload")
	}

	whole := append([]byte(nil), orig...)
	protocol.MaskBytes(testKey, 0, whole)
	split := append([]byte(nil), orig...)
	pos := protocol.MaskBytes(testKey, 0, split[:7])
	protocol.MaskBytes(testKey, pos, split[7:])
	if !bytes.Equal(whole, split) {
		t.Error("chunked masking differs from one-shot masking")
	}
}

func TestDecodeByteByByte(t *testing.T) {
	p := randomPayload(300)
	data := clientFrame(true, protocol.OpcodeBinary, p)
	f := protocol.NewFrame(protocol.FromClient)
	for i, b := range data {
		complete, err := f.Feed([]byte{b})
		if err != nil {
			t.Fatalf("byte %d: %v", i, err)
		}
		if last := i == len(data)-1; complete != last {
			t.Fatalf("byte %d: complete=%v", i, complete)
		}
		if i < 3 && f.HeaderParsed() {
			t.Fatalf("header parsed after %d bytes", i+1)
		}
	}
	if !bytes.Equal(f.Payload(), p) {
		t.Error("payload mismatch")
	}
}

func TestDecodeBurstWithExtraData(t *testing.T) {
	var burst []byte
	want := []string{"one", "two", "three"}
	for _, s := range want {
		burst = append(burst, clientFrame(true, protocol.OpcodeText, []byte(s))...)
	}
	var got []string
	for data := burst; len(data) > 0; {
		f := protocol.NewFrame(protocol.FromClient)
		feedAll(t, f, data)
		got = append(got, string(f.Payload()))
		data = f.ExtraData()
	}
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtraDataIsCopied(t *testing.T) {
	data := append(clientFrame(true, protocol.OpcodeText, []byte("a")), 0x81, 0x85)
	f := protocol.NewFrame(protocol.FromClient)
	feedAll(t, f, data)
	data[len(data)-1] = 0
	if extra := f.ExtraData(); !bytes.Equal(extra, []byte{0x81, 0x85}) {
		t.Errorf("extra = %x", extra)
	}
	if complete, err := f.Feed([]byte{0x01}); !complete || err != nil {
		t.Fatalf("feed after completion: %v %v", complete, err)
	}
	if extra := f.ExtraData(); !bytes.Equal(extra, []byte{0x81, 0x85, 0x01}) {
		t.Errorf("extra after feed = %x", extra)
	}
}

func TestControlFrameLimits(t *testing.T) {
	f := protocol.NewFrame(protocol.FromClient)
	feedAll(t, f, clientFrame(true, protocol.OpcodePing, make([]byte, 125)))
	if !f.IsControl() {
		t.Error("ping not reported as control")
	}

	_, err := protocol.NewFrame(protocol.FromClient).Feed(clientFrame(true, protocol.OpcodePing, make([]byte, 126)))
	wantKind(t, err, protocol.ErrKindControlTooLong)

	_, err = protocol.NewFrame(protocol.FromClient).Feed(clientFrame(false, protocol.OpcodeClose, nil))
	wantKind(t, err, protocol.ErrKindControlFragmented)
}

func TestUnmaskedClientFrameRejected(t *testing.T) {
	frame := rawFrame(true, protocol.OpcodeText, []byte("hi"), false)
	_, err := protocol.NewFrame(protocol.FromClient).Feed(frame)
	wantKind(t, err, protocol.ErrKindUnmasked)

	f := protocol.NewFrame(protocol.FromServer)
	feedAll(t, f, frame)
	if string(f.Payload()) != "hi" {
		t.Errorf("server frame payload %q", f.Payload())
	}
}

func TestReservedBitsAndOpcodes(t *testing.T) {
	_, err := protocol.NewFrame(protocol.FromClient).Feed([]byte{0xC1, 0x80})
	wantKind(t, err, protocol.ErrKindReservedBits)

	for _, op := range []byte{0x3, 0x7, 0xB, 0xF} {
		_, err := protocol.NewFrame(protocol.FromClient).Feed([]byte{0x80 | op, 0x80})
		wantKind(t, err, protocol.ErrKindReservedOpcode)
	}
}

func TestLengthMostSignificantBit(t *testing.T) {
	hdr := []byte{0x82, 0xFF, 0x80, 0, 0, 0, 0, 0, 0, 1}
	_, err := protocol.NewFrame(protocol.FromClient).Feed(hdr)
	wantKind(t, err, protocol.ErrKindLengthOverflow)
}

func TestFrameLimit(t *testing.T) {
	f := protocol.NewFrame(protocol.FromClient)
	f.SetLimit(10)
	_, err := f.Feed(clientFrame(true, protocol.OpcodeText, make([]byte, 11)))
	wantKind(t, err, protocol.ErrKindTooLarge)
	var fe *protocol.FrameError
	errors.As(err, &fe)
	if fe.CloseCode() != protocol.CloseMessageTooBig {
		t.Errorf("close code = %d", fe.CloseCode())
	}
	if _, again := f.Feed([]byte{0}); again != err {
		t.Error("error is not sticky")
	}
}

func TestDecodeGobwasClientFrames(t *testing.T) {
	for _, n := range payloadSizes {
		p := randomPayload(n)
		// MaskFrame ciphers the payload in place.
		raw, err := ws.CompileFrame(ws.MaskFrame(ws.NewBinaryFrame(append([]byte(nil), p...))))
		if err != nil {
			t.Fatal(err)
		}
		f := protocol.NewFrame(protocol.FromClient)
		feedAll(t, f, raw)
		if !f.Masked() || f.Opcode() != protocol.OpcodeBinary || !bytes.Equal(f.Payload(), p) {
			t.Errorf("n=%d: decode mismatch", n)
		}
	}
}

func TestGobwasReadsEncodedFrames(t *testing.T) {
	for _, n := range payloadSizes {
		p := randomPayload(n)
		got, err := ws.ReadFrame(bytes.NewReader(protocol.EncodeMessage(p, false)))
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if got.Header.OpCode != ws.OpText || !got.Header.Fin || got.Header.Masked {
			t.Errorf("n=%d: header %+v", n, got.Header)
		}
		if !bytes.Equal(got.Payload, p) {
			t.Errorf("n=%d: payload mismatch", n)
		}
	}
}

func TestEncodeClose(t *testing.T) {
	frame := protocol.EncodeClose(protocol.CloseGoingAway, "bye")
	got, err := ws.ReadFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatal(err)
	}
	code, reason := ws.ParseCloseFrameData(got.Payload)
	if code != ws.StatusGoingAway || reason != "bye" {
		t.Errorf("close %d %q", code, reason)
	}

	long := protocol.EncodeClose(protocol.CloseNormalClosure, string(make([]byte, 300)))
	if len(long) != 2+protocol.MaxControlPayloadLen {
		t.Errorf("close frame length %d", len(long))
	}

	c, r, ok := protocol.ParseClosePayload([]byte{0x03, 0xE8, 'o', 'k'})
	if !ok || c != 1000 || r != "ok" {
		t.Errorf("ParseClosePayload = %d %q %v", c, r, ok)
	}
	if _, _, ok := protocol.ParseClosePayload(nil); ok {
		t.Error("empty payload reported a code")
	}
}
