// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

//go:build unix

// Package reactor provides a single-threaded readiness loop built on
// poll(2). It is the host loop a vnc.Client registers its socket with:
// every callback, both fd readiness and posted work, runs on the goroutine
// that calls Run.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned when using a loop after Close.
var ErrClosed = errors.New("reactor: loop closed")

type watch struct {
	fd int
	fn func()
}

// Loop multiplexes read readiness of file descriptors and posted
// functions onto one goroutine.
type Loop struct {
	mu      sync.Mutex
	nextID  int
	watches map[int]watch
	posted  []func()
	closed  bool
	running bool
	wakeR   int
	wakeW   int
}

// New creates a loop. Close releases its wake pipe.
func New() (*Loop, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("reactor: create wake pipe: %w", err)
	}
	for _, fd := range p {
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("reactor: wake pipe nonblock: %w", err)
		}
		unix.CloseOnExec(fd)
	}
	return &Loop{
		watches: make(map[int]watch),
		wakeR:   p[0],
		wakeW:   p[1],
	}, nil
}

// WatchRead calls fn on the loop goroutine each time fd is readable, has
// hung up or reports an error. The returned cancel stops the watch and may
// be called more than once.
func (l *Loop) WatchRead(fd uintptr, fn func()) (cancel func(), err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	l.nextID++
	id := l.nextID
	l.watches[id] = watch{fd: int(fd), fn: fn}
	l.wakeLocked()
	return func() {
		l.mu.Lock()
		delete(l.watches, id)
		l.mu.Unlock()
	}, nil
}

// Post queues fn to run on the loop goroutine. It is safe to call from any
// goroutine. Functions posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.posted = append(l.posted, fn)
	l.wakeLocked()
}

func (l *Loop) wakeLocked() {
	if l.wakeW < 0 {
		return
	}
	// A full pipe already guarantees a wakeup.
	_, _ = unix.Write(l.wakeW, []byte{0})
}

func (l *Loop) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(l.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Run dispatches callbacks until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.running {
		l.mu.Unlock()
		return errors.New("reactor: loop already running")
	}
	l.running = true
	l.mu.Unlock()
	defer l.exit()

	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.wakeLocked()
		l.mu.Unlock()
	})
	defer stop()

	ids := make([]int, 0, 8)
	fds := make([]unix.PollFd, 0, 8)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return ErrClosed
		}
		ids = ids[:0]
		fds = append(fds[:0], unix.PollFd{Fd: int32(l.wakeR), Events: unix.POLLIN})
		for id, w := range l.watches {
			ids = append(ids, id)
			fds = append(fds, unix.PollFd{Fd: int32(w.fd), Events: unix.POLLIN})
		}
		l.mu.Unlock()

		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("reactor: poll: %w", err)
		}

		if fds[0].Revents != 0 {
			l.drainWake()
		}
		l.runPosted()

		for i, id := range ids {
			if fds[i+1].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) == 0 {
				continue
			}
			// Earlier callbacks may have cancelled this watch.
			l.mu.Lock()
			w, ok := l.watches[id]
			l.mu.Unlock()
			if ok {
				w.fn()
			}
		}
	}
}

func (l *Loop) exit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = false
	if l.closed && l.wakeR >= 0 {
		unix.Close(l.wakeR)
		l.wakeR = -1
	}
}

func (l *Loop) runPosted() {
	l.mu.Lock()
	posted := l.posted
	l.posted = nil
	l.mu.Unlock()
	for _, fn := range posted {
		fn()
	}
}

// Close stops the loop and releases the wake pipe. Pending posted
// functions are discarded.
func (l *Loop) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.posted = nil
	l.watches = map[int]watch{}
	l.wakeLocked()
	err := unix.Close(l.wakeW)
	l.wakeW = -1
	// A running loop closes the read end itself once it observes closed.
	if !l.running {
		unix.Close(l.wakeR)
		l.wakeR = -1
	}
	return err
}
