// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"fmt"
	"math"

	"github.com/tenthirtyam/go-vncdisplay/keysym"
)

// MouseButtons is the set of local mouse buttons held during a pointer
// event.
type MouseButtons uint8

// Local mouse buttons.
const (
	MouseLeft MouseButtons = 1 << iota
	MouseRight
	MouseMiddle
	MouseWheelUp
	MouseWheelDown
)

// Mask converts local buttons to the RFB button mask.
func (b MouseButtons) Mask() ButtonMask {
	var m ButtonMask
	if b&MouseLeft != 0 {
		m |= ButtonLeft
	}
	if b&MouseMiddle != 0 {
		m |= ButtonMiddle
	}
	if b&MouseRight != 0 {
		m |= ButtonRight
	}
	if b&MouseWheelUp != 0 {
		m |= Button4
	}
	if b&MouseWheelDown != 0 {
		m |= Button5
	}
	return m
}

// connected reports whether input can be sent, logging a warning when it
// cannot.
func (c *Client) connected(op string) bool {
	if c.state == StateConnected {
		return true
	}
	c.logger.Warn("Dropping input while not connected",
		Field{Key: "op", Value: op},
		Field{Key: "state", Value: c.state})
	return false
}

// SendKeysym sends one KeyEvent. Input sent while not connected is
// dropped with a warning.
func (c *Client) SendKeysym(sym keysym.Keysym, pressed bool) error {
	if !c.connected("SendKeysym") {
		return nil
	}
	c.logger.Debug("Key event",
		Field{Key: "keysym", Value: fmt.Sprintf("0x%04x", uint32(sym))},
		Field{Key: "down", Value: pressed})
	return c.write("SendKeysym", buildKeyEvent(uint32(sym), pressed))
}

// SendKey sends a press or release of a named key. A key with no keysym
// is not sent and yields an ErrUnmappedInput error; the connection stays
// up.
func (c *Client) SendKey(key keysym.Key, pressed bool) error {
	if !c.connected("SendKey") {
		return nil
	}
	sym, ok := keysym.FromKey(key)
	if !ok {
		c.logger.Warn("No keysym for key", Field{Key: "key", Value: fmt.Sprintf("0x%08x", uint32(key))})
		return unmappedInputError("SendKey", fmt.Sprintf("no keysym for key 0x%08x", uint32(key)))
	}
	return c.SendKeysym(sym, pressed)
}

// SendChar types a character as a press followed by a release. A
// character with no keysym is not sent and yields an ErrUnmappedInput
// error; the connection stays up.
func (c *Client) SendChar(r rune) error {
	if !c.connected("SendChar") {
		return nil
	}
	sym, ok := keysym.FromRune(r)
	if !ok {
		c.logger.Warn("No keysym for character",
			Field{Key: "char", Value: fmt.Sprintf("%q", r)},
			Field{Key: "code", Value: fmt.Sprintf("U+%04X", r)})
		return unmappedInputError("SendChar", fmt.Sprintf("no keysym for %U", r))
	}
	if err := c.SendKeysym(sym, true); err != nil {
		return err
	}
	return c.SendKeysym(sym, false)
}

// SendText types every character of s, stopping at the first failure.
func (c *Client) SendText(s string) error {
	for _, r := range s {
		if err := c.SendChar(r); err != nil {
			return err
		}
	}
	return nil
}

// SendMouseEvent sends the pointer position in framebuffer pixels and the
// buttons held. Positions are truncated and clamped to the framebuffer.
func (c *Client) SendMouseEvent(x, y float64, buttons MouseButtons) error {
	if !c.connected("SendMouseEvent") {
		return nil
	}
	w, h := c.ScreenSize()
	px, py := clampCoord(x, w), clampCoord(y, h)
	return c.write("SendMouseEvent", buildPointerEvent(buttons.Mask(), px, py))
}

func clampCoord(v float64, limit int) uint16 {
	if math.IsNaN(v) || v < 0 || limit <= 0 {
		return 0
	}
	if v >= float64(limit) {
		return uint16(limit - 1)
	}
	return uint16(math.Floor(v))
}
