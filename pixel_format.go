// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PixelFormat describes how pixel values are laid out on the wire
// (RFC 6143 section 7.4).
type PixelFormat struct {
	// BPP is the number of bits per pixel on the wire: 8, 16 or 32.
	BPP uint8

	// Depth is the number of useful bits within each pixel value.
	Depth uint8

	// BigEndian selects the byte order of multi-byte pixels.
	BigEndian bool

	// TrueColor selects direct RGB values instead of colour map indices.
	TrueColor bool

	RedMax, GreenMax, BlueMax       uint16
	RedShift, GreenShift, BlueShift uint8
}

// ClientPixelFormat is the only format the client requests: 32 bits per
// pixel, depth 24, little endian, true colour with 8 bits per channel.
// Each pixel arrives as the bytes B, G, R, X.
var ClientPixelFormat = PixelFormat{
	BPP:        32,
	Depth:      24,
	BigEndian:  false,
	TrueColor:  true,
	RedMax:     255,
	GreenMax:   255,
	BlueMax:    255,
	RedShift:   16,
	GreenShift: 8,
	BlueShift:  0,
}

// BytesPerPixel returns the wire size of one pixel.
func (pf PixelFormat) BytesPerPixel() int {
	return int(pf.BPP) / 8
}

// wirePixelFormat is the 16-byte encoding of a PixelFormat.
type wirePixelFormat struct {
	BPP, Depth, BigEndian, TrueColor uint8
	RedMax, GreenMax, BlueMax        uint16
	RedShift, GreenShift, BlueShift  uint8
	_                                [3]byte
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// readPixelFormat reads the 16-byte PIXEL_FORMAT structure.
func readPixelFormat(r io.Reader) (PixelFormat, error) {
	var w wirePixelFormat
	if err := binary.Read(r, binary.BigEndian, &w); err != nil {
		return PixelFormat{}, err
	}
	return PixelFormat{
		BPP:        w.BPP,
		Depth:      w.Depth,
		BigEndian:  w.BigEndian != 0,
		TrueColor:  w.TrueColor != 0,
		RedMax:     w.RedMax,
		GreenMax:   w.GreenMax,
		BlueMax:    w.BlueMax,
		RedShift:   w.RedShift,
		GreenShift: w.GreenShift,
		BlueShift:  w.BlueShift,
	}, nil
}

// writePixelFormat writes the 16-byte PIXEL_FORMAT structure.
func writePixelFormat(w io.Writer, pf PixelFormat) error {
	return binary.Write(w, binary.BigEndian, wirePixelFormat{
		BPP:        pf.BPP,
		Depth:      pf.Depth,
		BigEndian:  boolByte(pf.BigEndian),
		TrueColor:  boolByte(pf.TrueColor),
		RedMax:     pf.RedMax,
		GreenMax:   pf.GreenMax,
		BlueMax:    pf.BlueMax,
		RedShift:   pf.RedShift,
		GreenShift: pf.GreenShift,
		BlueShift:  pf.BlueShift,
	})
}

// Validate checks the fields that must hold for any server format.
func (pf PixelFormat) Validate() error {
	switch pf.BPP {
	case 8, 16, 32:
	default:
		return validationError("PixelFormat.Validate", fmt.Sprintf("bits per pixel must be 8, 16 or 32, got %d", pf.BPP), nil)
	}
	if pf.Depth == 0 || pf.Depth > pf.BPP {
		return validationError("PixelFormat.Validate", fmt.Sprintf("depth %d invalid for %d bits per pixel", pf.Depth, pf.BPP), nil)
	}
	if pf.TrueColor && pf.RedMax == 0 && pf.GreenMax == 0 && pf.BlueMax == 0 {
		return validationError("PixelFormat.Validate", "true colour format with all channel maxima zero", nil)
	}
	return nil
}
