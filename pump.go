// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Pump makes progress on incoming data: it reads from the socket once
// when the buffered bytes cannot complete a message, then decodes at most
// one message. A read timeout is not an error. When more complete data is
// left over, a follow-up decode is posted to the reactor; without a
// reactor, call Pump again while Pending reports true.
//
// A non-nil error means the connection was dropped.
func (c *Client) Pump() error {
	if c.state != StateConnected {
		return nil
	}
	if !c.Pending() {
		n, err := c.fill()
		if err != nil {
			return c.fail("Pump", err)
		}
		if n == 0 {
			return nil
		}
	}
	return c.decodeOne()
}

// Pending reports whether buffered data may hold a complete message.
func (c *Client) Pending() bool {
	return len(c.buf) > 0 && len(c.buf) >= c.want
}

// pumpBuffered decodes already-buffered data without touching the socket.
func (c *Client) pumpBuffered() {
	if c.state != StateConnected {
		return
	}
	_ = c.decodeOne()
}

func (c *Client) schedule() {
	if c.config.Reactor == nil || c.posted {
		return
	}
	c.posted = true
	gen := c.generation
	c.config.Reactor.Post(func() {
		if c.generation != gen {
			return
		}
		c.posted = false
		c.pumpBuffered()
	})
}

// fill performs one bounded read into the buffer.
func (c *Client) fill() (int, error) {
	need := c.config.ReadChunkSize
	if short := c.want - len(c.buf); short > need {
		need = short
	}
	if cap(c.buf)-len(c.buf) < need {
		grown := make([]byte, len(c.buf), len(c.buf)+need)
		copy(grown, c.buf)
		c.buf = grown
	}

	if c.config.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout)); err != nil {
			return 0, networkError("Pump", "failed to set read deadline", err)
		}
	}
	start := len(c.buf)
	n, err := c.conn.Read(c.buf[start : start+need])
	c.buf = c.buf[:start+n]
	if err != nil {
		switch {
		case isTimeout(err):
			return n, nil
		case errors.Is(err, io.EOF):
			return n, networkError("Pump", "server closed the connection", err)
		default:
			return n, networkError("Pump", "failed to read from server", err)
		}
	}
	return n, nil
}

// decodeOne decodes and handles the first buffered message, if complete.
func (c *Client) decodeOne() error {
	if !c.Pending() {
		return nil
	}

	r := newMsgReader(c.buf)
	var msgType uint8
	if err := r.read(&msgType); err != nil {
		return nil
	}
	proto, ok := c.messages[msgType]
	if !ok {
		return c.fail("Pump", protocolError("Pump",
			fmt.Sprintf("unsupported server message type %d", msgType), nil))
	}

	msg, err := proto.Read(c, r)
	if err != nil {
		if want, ok := incomplete(err); ok {
			if want <= len(c.buf) {
				want = len(c.buf) + 1
			}
			c.want = want
			return nil
		}
		return c.fail("Pump", err)
	}

	if err := msg.handle(c); err != nil {
		return c.fail("Pump", err)
	}
	// A viewer may have disconnected us.
	if c.state != StateConnected {
		return nil
	}

	c.consume(r.consumed())
	if c.Pending() {
		c.schedule()
	}
	return nil
}

// consume drops n decoded bytes from the front of the buffer.
func (c *Client) consume(n int) {
	rest := copy(c.buf, c.buf[n:])
	c.buf = c.buf[:rest]
	c.want = 0
}
