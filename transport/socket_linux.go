//go:build linux
// +build linux

// File: transport/socket_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux sockets over golang.org/x/sys/unix.

package transport

import (
	"io"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Listen binds a non-blocking TCP listener on addr (host:port or bare port).
func Listen(addr string) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", NormalizeAddr(addr))
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", addr)
	}

	family, sa := sockaddrOf(tcpAddr)
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errors.Wrap(err, "socket create")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "setsockopt SO_REUSEADDR")
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "bind %s", tcpAddr)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "listen %s", tcpAddr)
	}

	bound := tcpAddr
	if local, err := unix.Getsockname(fd); err == nil {
		if a := tcpAddrOf(local); a != nil {
			bound = a
		}
	}
	return &Listener{fd: fd, addr: bound}, nil
}

// Accept returns the next pending connection, or ErrWouldBlock if none.
func (l *Listener) Accept() (*Socket, error) {
	if l.fd < 0 {
		return nil, ErrClosed
	}
	nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR || err == unix.ECONNABORTED {
			return nil, ErrWouldBlock
		}
		return nil, errors.Wrap(err, "accept")
	}
	_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	remote := ""
	if a := tcpAddrOf(sa); a != nil {
		remote = a.String()
	}
	return &Socket{fd: nfd, remote: remote}, nil
}

// Close closes the listening socket.
func (l *Listener) Close() error {
	if l.fd < 0 {
		return nil
	}
	fd := l.fd
	l.fd = -1
	return unix.Close(fd)
}

// Read performs one non-blocking read.
func (s *Socket) Read(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	n, err := unix.Read(s.fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return 0, nil
		}
		return 0, errors.Wrap(err, "read")
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write performs one non-blocking send and returns the bytes accepted by the kernel.
func (s *Socket) Write(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	n, err := unix.SendmsgN(s.fd, p, nil, nil, unix.MSG_NOSIGNAL)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, ErrWouldBlock
		}
		return n, errors.Wrap(err, "write")
	}
	return n, nil
}

// Close closes the socket. Further calls are no-ops.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = -1
	return unix.Close(fd)
}

// SocketPair returns two connected non-blocking unix stream sockets.
func SocketPair() (*Socket, *Socket, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, errors.Wrap(err, "socketpair")
	}
	return &Socket{fd: fds[0], remote: "pair"}, &Socket{fd: fds[1], remote: "pair"}, nil
}

func sockaddrOf(a *net.TCPAddr) (int, unix.Sockaddr) {
	if ip4 := a.IP.To4(); ip4 != nil || a.IP == nil {
		sa := &unix.SockaddrInet4{Port: a.Port}
		if ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return unix.AF_INET, sa
	}
	sa := &unix.SockaddrInet6{Port: a.Port}
	copy(sa.Addr[:], a.IP.To16())
	if a.Zone != "" {
		if ifi, err := net.InterfaceByName(a.Zone); err == nil {
			sa.ZoneId = uint32(ifi.Index)
		} else if id, err := strconv.Atoi(a.Zone); err == nil {
			sa.ZoneId = uint32(id)
		}
	}
	return unix.AF_INET6, sa
}

func tcpAddrOf(sa unix.Sockaddr) *net.TCPAddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), v.Addr[:]...)), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), v.Addr[:]...)), Port: v.Port}
	}
	return nil
}
