// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// DesktopSizePseudoEncoding announces a new framebuffer size. The
// rectangle's width and height are the new size; it carries no payload.
type DesktopSizePseudoEncoding struct {
	Width, Height uint16
}

// Type returns EncodingDesktopSize.
func (*DesktopSizePseudoEncoding) Type() int32 {
	return EncodingDesktopSize
}

// IsPseudo returns true.
func (*DesktopSizePseudoEncoding) IsPseudo() bool {
	return true
}

// Read validates the announced size.
func (*DesktopSizePseudoEncoding) Read(c *Client, rect *Rectangle, r *msgReader) (Encoding, error) {
	if err := validateFramebufferSize(rect.Width, rect.Height); err != nil {
		return nil, protocolError("DesktopSizePseudoEncoding.Read", "invalid desktop size", err)
	}
	return &DesktopSizePseudoEncoding{Width: rect.Width, Height: rect.Height}, nil
}

// Apply reallocates the framebuffer.
func (enc *DesktopSizePseudoEncoding) Apply(c *Client, rect *Rectangle) error {
	c.resize(int(enc.Width), int(enc.Height))
	return nil
}
