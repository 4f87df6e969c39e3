//go:build linux

package transport_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/momentics/wsreactor/transport"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"8088":           "0.0.0.0:8088",
		"":               "0.0.0.0:0",
		":9000":          ":9000",
		"127.0.0.1:1234": "127.0.0.1:1234",
	}
	for in, want := range cases {
		if got := transport.NormalizeAddr(in); got != want {
			t.Errorf("NormalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListenAcceptReadWrite(t *testing.T) {
	ln, err := transport.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if ln.Addr().Port == 0 {
		t.Fatal("ephemeral port not resolved")
	}
	if _, err := ln.Accept(); err != transport.ErrWouldBlock {
		t.Fatalf("Accept on idle listener = %v", err)
	}

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	var sock *transport.Socket
	deadline := time.Now().Add(time.Second)
	for sock == nil && time.Now().Before(deadline) {
		sock, err = ln.Accept()
		if err == transport.ErrWouldBlock {
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if sock == nil {
		t.Fatal("no connection accepted")
	}
	defer sock.Close()
	if sock.RemoteAddr() != client.LocalAddr().String() {
		t.Errorf("remote %q, want %q", sock.RemoteAddr(), client.LocalAddr())
	}

	buf := make([]byte, 16)
	if n, err := sock.Read(buf); n != 0 || err != nil {
		t.Errorf("empty read = %d, %v", n, err)
	}
	client.Write([]byte("hello"))
	var got []byte
	for len(got) < 5 && time.Now().Before(deadline) {
		n, err := sock.Read(buf)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != "hello" {
		t.Errorf("read %q", got)
	}

	if n, err := sock.Write([]byte("world")); n != 5 || err != nil {
		t.Fatalf("Write = %d, %v", n, err)
	}
	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	reply := make([]byte, 5)
	if _, err := io.ReadFull(client, reply); err != nil || string(reply) != "world" {
		t.Errorf("client read %q, %v", reply, err)
	}

	client.Close()
	var rerr error
	for rerr == nil && time.Now().Before(deadline) {
		_, rerr = sock.Read(buf)
	}
	if rerr != io.EOF {
		t.Errorf("read after peer close = %v", rerr)
	}
}

func TestSocketCloseIdempotent(t *testing.T) {
	a, b, err := transport.SocketPair()
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second close = %v", err)
	}
	if _, err := a.Write([]byte("x")); err != transport.ErrClosed {
		t.Errorf("write after close = %v", err)
	}
}
