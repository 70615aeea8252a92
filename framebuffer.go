// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"image"
)

// Framebuffer is the client's copy of the remote screen. It is owned by
// the Client and reallocated whenever the server changes geometry;
// viewers must treat it as read-only and re-fetch it after
// FramebufferResized.
type Framebuffer struct {
	img *image.RGBA
}

func newFramebuffer(width, height int) *Framebuffer {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	// Opaque black until the first update arrives.
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return &Framebuffer{img: img}
}

// Image returns the pixels. The returned image is only valid until the
// next resize.
func (fb *Framebuffer) Image() *image.RGBA {
	return fb.img
}

// Bounds returns the framebuffer rectangle, anchored at the origin.
func (fb *Framebuffer) Bounds() image.Rectangle {
	return fb.img.Rect
}

// Width returns the width in pixels.
func (fb *Framebuffer) Width() int { return fb.img.Rect.Dx() }

// Height returns the height in pixels.
func (fb *Framebuffer) Height() int { return fb.img.Rect.Dy() }

// applyRaw copies a rectangle of ClientPixelFormat pixels (B, G, R, X per
// pixel, row-major, no padding) into the framebuffer. r must already have
// been validated against the bounds.
func (fb *Framebuffer) applyRaw(r image.Rectangle, data []byte) {
	const bpp = 4
	w := r.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := data[(y-r.Min.Y)*w*bpp : (y-r.Min.Y+1)*w*bpp]
		off := fb.img.PixOffset(r.Min.X, y)
		dst := fb.img.Pix[off : off+w*bpp]
		for i := 0; i < len(src); i += bpp {
			dst[i+0] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i+0]
			dst[i+3] = 0xff
		}
	}
}
