//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7) backend with an eventfd(2) used to wake a blocked wait.

package reactor

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// epollPoller is a level-triggered epoll instance.
type epollPoller struct {
	epfd   int
	wakefd int
	events []unix.EpollEvent
}

func newPoller(maxEvents int) (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll create")
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, errors.Wrap(err, "eventfd create")
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, errors.Wrap(err, "epoll ctl add eventfd")
	}
	return &epollPoller{
		epfd:   epfd,
		wakefd: wakefd,
		events: make([]unix.EpollEvent, maxEvents),
	}, nil
}

func (p *epollPoller) add(fd int) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return errors.Wrap(err, "epoll ctl add")
	}
	return nil
}

func (p *epollPoller) remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return errors.Wrap(err, "epoll ctl del")
	}
	return nil
}

func (p *epollPoller) wait(out []readiness, timeout time.Duration) (int, bool, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
		if ms == 0 && timeout > 0 {
			ms = 1
		}
	}
	limit := len(p.events)
	if len(out) < limit {
		limit = len(out)
	}

	var n int
	var err error
	for {
		n, err = unix.EpollWait(p.epfd, p.events[:limit], ms)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "epoll wait")
	}

	k := 0
	woken := false
	for i := 0; i < n; i++ {
		ev := p.events[i]
		fd := int(ev.Fd)
		if fd == p.wakefd {
			p.drainWake()
			woken = true
			continue
		}
		hangup := ev.Events&(unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0
		out[k] = readiness{fd: fd, hangup: hangup}
		k++
	}
	return k, woken, nil
}

func (p *epollPoller) wake() error {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], 1)
	if _, err := unix.Write(p.wakefd, b[:]); err != nil && err != unix.EAGAIN {
		return errors.Wrap(err, "eventfd write")
	}
	return nil
}

func (p *epollPoller) drainWake() {
	var b [8]byte
	_, _ = unix.Read(p.wakefd, b[:])
}

func (p *epollPoller) close() error {
	err1 := unix.Close(p.wakefd)
	err2 := unix.Close(p.epfd)
	if err1 != nil {
		return errors.Wrap(err1, "close eventfd")
	}
	if err2 != nil {
		return errors.Wrap(err2, "close epoll")
	}
	return nil
}

// peerClosed reports end-of-stream once no unread bytes remain. Buffered
// data is still delivered through Ready first; a pending socket error also
// counts as closed.
func (p *epollPoller) peerClosed(fd int) bool {
	var b [1]byte
	n, _, err := unix.Recvfrom(fd, b[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
	if err != nil {
		return err != unix.EAGAIN && err != unix.EINTR
	}
	return n == 0
}
