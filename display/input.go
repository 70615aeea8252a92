// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package display

import (
	"errors"

	"golang.org/x/text/unicode/norm"

	vnc "github.com/tenthirtyam/go-vncdisplay"
	"github.com/tenthirtyam/go-vncdisplay/keysym"
	"github.com/tenthirtyam/go-vncdisplay/scaler"
)

// HoverMove reports pointer motion with no button held. It is forwarded
// even over the margins so the remote cursor follows the local one.
func (s *Surface) HoverMove(x, y float64) error {
	if s.client == nil {
		return nil
	}
	p := s.SurfaceToSource(scaler.Point{X: x, Y: y})
	return s.client.SendMouseEvent(p.X, p.Y, 0)
}

// PointerMove reports motion with buttons held. Events over the margins
// are dropped.
func (s *Surface) PointerMove(x, y float64, buttons vnc.MouseButtons) error {
	return s.sendPointer(x, y, buttons)
}

// PointerPress reports a button press; buttons is the set held after it.
func (s *Surface) PointerPress(x, y float64, buttons vnc.MouseButtons) error {
	return s.sendPointer(x, y, buttons)
}

// PointerRelease reports a button release; buttons is the set still held.
func (s *Surface) PointerRelease(x, y float64, buttons vnc.MouseButtons) error {
	return s.sendPointer(x, y, buttons)
}

// Wheel scrolls once at (x, y), as a press and release of the wheel
// button on top of the buttons held.
func (s *Surface) Wheel(x, y float64, up bool, buttons vnc.MouseButtons) error {
	wheel := vnc.MouseWheelDown
	if up {
		wheel = vnc.MouseWheelUp
	}
	if err := s.sendPointer(x, y, buttons|wheel); err != nil {
		return err
	}
	return s.sendPointer(x, y, buttons)
}

func (s *Surface) sendPointer(x, y float64, buttons vnc.MouseButtons) error {
	if s.client == nil || !s.painted(x, y) {
		return nil
	}
	p := s.SurfaceToSource(scaler.Point{X: x, Y: y})
	return s.client.SendMouseEvent(p.X, p.Y, buttons)
}

// painted reports whether (x, y) is inside the painted rectangle, edges
// included.
func (s *Surface) painted(x, y float64) bool {
	r := s.view.SurfacePaintedRect
	if r.Empty() {
		return false
	}
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// KeyPress forwards a key press.
func (s *Surface) KeyPress(key keysym.Key) error {
	if s.client == nil {
		return nil
	}
	return s.client.SendKey(key, true)
}

// KeyRelease forwards a key release.
func (s *Surface) KeyRelease(key keysym.Key) error {
	if s.client == nil {
		return nil
	}
	return s.client.SendKey(key, false)
}

// CommitText types text produced by an input method. The text is
// composed to NFC first, so combining sequences reach the server as the
// precomposed characters keysyms exist for. Characters without a keysym
// are skipped and reported in the returned error.
func (s *Surface) CommitText(text string) error {
	if s.client == nil {
		return nil
	}
	var errs []error
	for _, r := range norm.NFC.String(text) {
		if err := s.client.SendChar(r); err != nil {
			if !vnc.IsVNCError(err, vnc.ErrUnmappedInput) {
				return errors.Join(append(errs, err)...)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
