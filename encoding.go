// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// Encoding types negotiated with SetEncodings.
const (
	EncodingRaw         int32 = 0
	EncodingDesktopSize int32 = -223
)

// Encoding decodes and applies one rectangle of a FramebufferUpdate.
type Encoding interface {
	Type() int32

	// Read decodes the rectangle payload. It must not touch the
	// framebuffer, since the whole message is decoded before any of it is
	// applied.
	Read(c *Client, rect *Rectangle, r *msgReader) (Encoding, error)

	// Apply updates the client with the decoded rectangle.
	Apply(c *Client, rect *Rectangle) error
}

// PseudoEncoding marks encodings that carry metadata rather than pixels.
type PseudoEncoding interface {
	Encoding

	IsPseudo() bool
}

// supportedEncodings lists the encodings the client sends in SetEncodings,
// in preference order.
func supportedEncodings() []Encoding {
	return []Encoding{&RawEncoding{}, &DesktopSizePseudoEncoding{}}
}

func encodingTypes(encs []Encoding) []int32 {
	types := make([]int32, len(encs))
	for i, e := range encs {
		types[i] = e.Type()
	}
	return types
}
