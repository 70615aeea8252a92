// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// RawEncoding carries the pixels of a rectangle uncompressed, row by row,
// in ClientPixelFormat.
type RawEncoding struct {
	// Pixels aliases the client's receive buffer and is only valid until
	// the message has been applied.
	Pixels []byte
}

// Type returns EncodingRaw.
func (*RawEncoding) Type() int32 {
	return EncodingRaw
}

// Read takes width*height*4 bytes from r.
func (*RawEncoding) Read(c *Client, rect *Rectangle, r *msgReader) (Encoding, error) {
	n := int(rect.Width) * int(rect.Height) * ClientPixelFormat.BytesPerPixel()
	pixels, err := r.take(n)
	if err != nil {
		return nil, err
	}
	return &RawEncoding{Pixels: pixels}, nil
}

// Apply copies the pixels into the framebuffer and notifies viewers.
func (enc *RawEncoding) Apply(c *Client, rect *Rectangle) error {
	if c.fb == nil {
		return protocolError("RawEncoding.Apply", "pixel data before framebuffer exists", nil)
	}
	w, h := c.fb.Width(), c.fb.Height()
	if err := validateRectangle(rect.X, rect.Y, rect.Width, rect.Height, uint16(w), uint16(h)); err != nil {
		return protocolError("RawEncoding.Apply", "rectangle outside framebuffer", err)
	}
	if rect.Width == 0 || rect.Height == 0 {
		return nil
	}
	c.fb.applyRaw(rect.Bounds(), enc.Pixels)
	c.notifyUpdated(rect.Bounds())
	return nil
}
