// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Package display renders a VNC framebuffer into a local drawing area of
// any size and turns local input into protocol events.
//
// A Surface is attached to at most one client. It keeps its own zoom and
// pan, refits the view whenever the framebuffer, its own size or the
// requested view changes, and paints the visible part of the framebuffer
// into the painted rectangle on Paint. Like the client, a Surface is not
// safe for concurrent use.
package display

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	vnc "github.com/tenthirtyam/go-vncdisplay"
	"github.com/tenthirtyam/go-vncdisplay/keysym"
	"github.com/tenthirtyam/go-vncdisplay/scaler"
)

// MaxScale is the largest zoom factor a Surface accepts.
const MaxScale = 2.0

// Client is the part of a vnc.Client a Surface drives.
type Client interface {
	Attach(v vnc.Viewer)
	Detach(v vnc.Viewer)
	Image() *image.RGBA
	SendKey(key keysym.Key, pressed bool) error
	SendChar(r rune) error
	SendMouseEvent(x, y float64, buttons vnc.MouseButtons) error
}

var _ Client = (*vnc.Client)(nil)

// Change reports which observable properties of a Surface changed.
type Change uint8

// Change flags.
const (
	ChangeScale Change = 1 << iota
	ChangeCenter
	ChangeRemoteSize
	ChangeMargins
	// ChangeContent means the surface needs repainting.
	ChangeContent
)

// Option configures a Surface.
type Option func(*Surface)

// WithSurfaceLogger sets the logger.
func WithSurfaceLogger(logger vnc.Logger) Option {
	return func(s *Surface) {
		s.logger = logger
	}
}

// WithInterpolator sets the resampler used by Paint when the view is
// scaled. The default is draw.ApproxBiLinear.
func WithInterpolator(interp draw.Interpolator) Option {
	return func(s *Surface) {
		s.interp = interp
	}
}

// WithChangeHandler sets a callback invoked after the view or the
// content changes.
func WithChangeHandler(fn func(Change)) Option {
	return func(s *Surface) {
		s.onChange = fn
	}
}

// Surface displays one client's framebuffer.
type Surface struct {
	logger   vnc.Logger
	interp   draw.Interpolator
	onChange func(Change)

	client Client
	size   scaler.Size
	source scaler.Size

	requestedScale float64
	// center is the effective pan of the last fit; requests overwrite it.
	center scaler.Point
	view   scaler.View
}

var _ vnc.Viewer = (*Surface)(nil)

// New creates a surface of the given size with no client.
func New(width, height int, opts ...Option) *Surface {
	s := &Surface{
		logger: &vnc.NoOpLogger{},
		interp: draw.ApproxBiLinear,
		size:   scaler.Size{W: float64(width), H: float64(height)},
		view:   scaler.Neutral(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetClient attaches the surface to c, detaching it from its previous
// client. A nil c leaves the surface empty.
func (s *Surface) SetClient(c Client) {
	if c == s.client {
		return
	}
	if s.client != nil {
		s.client.Detach(s)
	}
	s.client = c
	s.setSource(scaler.Size{})
	if c != nil {
		// Attach reports the current framebuffer size, if any.
		c.Attach(s)
	}
}

// Client returns the attached client.
func (s *Surface) Client() Client {
	return s.client
}

// SetSize resizes the drawing area.
func (s *Surface) SetSize(width, height int) {
	size := scaler.Size{W: float64(width), H: float64(height)}
	if size == s.size {
		return
	}
	s.size = size
	s.update(0)
}

// Size returns the drawing area size.
func (s *Surface) Size() (width, height int) {
	return int(s.size.W), int(s.size.H)
}

// SetRequestedScale sets the zoom. Values above MaxScale are clamped;
// zero, negative and NaN values select the fit scale.
func (s *Surface) SetRequestedScale(scale float64) {
	switch {
	case math.IsNaN(scale) || scale < 0:
		scale = 0
	case scale > MaxScale:
		scale = MaxScale
	}
	s.requestedScale = scale
	s.update(0)
}

// RequestedScale returns the zoom last requested.
func (s *Surface) RequestedScale() float64 {
	return s.requestedScale
}

// Scale returns the effective zoom, or 0 when nothing is displayed.
func (s *Surface) Scale() float64 {
	return s.view.Scale
}

// MinScale returns the zoom at which the whole framebuffer fits.
func (s *Surface) MinScale() float64 {
	return s.view.MinScale
}

// SetCenter pans to center, an offset in framebuffer pixels from the
// middle of the framebuffer. The pan is clamped so no area outside the
// framebuffer is revealed.
func (s *Surface) SetCenter(center scaler.Point) {
	s.center = center
	s.update(0)
}

// Center returns the effective pan.
func (s *Surface) Center() scaler.Point {
	return s.center
}

// RemoteScreenSize returns the framebuffer size as last reported by the
// client.
func (s *Surface) RemoteScreenSize() (width, height int) {
	return int(s.source.W), int(s.source.H)
}

// View returns the current fit.
func (s *Surface) View() scaler.View {
	return s.view
}

// TopMargin returns the unpainted height above the framebuffer.
func (s *Surface) TopMargin() float64 {
	return s.view.SurfacePaintedRect.Y
}

// LeftMargin returns the unpainted width left of the framebuffer.
func (s *Surface) LeftMargin() float64 {
	return s.view.SurfacePaintedRect.X
}

// RightMargin returns the unpainted width right of the framebuffer.
func (s *Surface) RightMargin() float64 {
	return s.size.W - s.view.SurfacePaintedRect.Right()
}

// BottomMargin returns the unpainted height below the framebuffer.
func (s *Surface) BottomMargin() float64 {
	return s.size.H - s.view.SurfacePaintedRect.Bottom()
}

// SurfaceToSource maps a surface point to framebuffer coordinates.
func (s *Surface) SurfaceToSource(p scaler.Point) scaler.Point {
	return s.view.SurfaceToSource.Map(p)
}

// SourceToSurface maps a framebuffer point to surface coordinates.
func (s *Surface) SourceToSurface(p scaler.Point) scaler.Point {
	return s.view.SourceToSurface.Map(p)
}

// FramebufferResized implements vnc.Viewer.
func (s *Surface) FramebufferResized(width, height int) {
	s.setSource(scaler.Size{W: float64(width), H: float64(height)})
}

func (s *Surface) setSource(size scaler.Size) {
	if size == s.source {
		s.update(0)
		return
	}
	s.source = size
	s.update(ChangeRemoteSize)
}

// FramebufferUpdated implements vnc.Viewer.
func (s *Surface) FramebufferUpdated(image.Rectangle) {
	s.notify(ChangeContent)
}

// Paint draws the visible part of the framebuffer into dst, offset by
// dst's origin. It draws nothing when there is no framebuffer.
func (s *Surface) Paint(dst draw.Image) {
	if s.client == nil {
		return
	}
	img := s.client.Image()
	if img == nil {
		return
	}
	if size := scaler.SizeOf(img.Bounds()); size != s.source {
		s.logger.Debug("Framebuffer size changed before notification",
			vnc.Field{Key: "width", Value: size.W},
			vnc.Field{Key: "height", Value: size.H})
		s.setSource(size)
	}
	if s.view.SurfacePaintedRect.Empty() {
		return
	}

	dr := s.view.SurfacePaintedRect.Image().Add(dst.Bounds().Min)
	sr := s.view.SourceVisibleRect.Image().Intersect(img.Bounds())
	if dr.Size() == sr.Size() {
		draw.Copy(dst, dr.Min, img, sr, draw.Src, nil)
		return
	}
	s.interp.Scale(dst, dr, img, sr, draw.Src, nil)
}

// update refits the view and reports what changed, plus extra.
func (s *Surface) update(extra Change) {
	old := s.view
	oldCenter := s.center

	view, err := scaler.Fit(scaler.Input{
		SourceSize:      s.source,
		SurfaceSize:     s.size,
		RequestedScale:  s.requestedScale,
		RequestedCenter: s.center,
	})
	if err != nil {
		s.logger.Debug("Nothing to display",
			vnc.Field{Key: "source", Value: s.source},
			vnc.Field{Key: "surface", Value: s.size})
	}
	s.view = view
	s.center = view.Center

	change := extra | ChangeContent
	if view.Scale != old.Scale {
		change |= ChangeScale
	}
	if s.center != oldCenter {
		change |= ChangeCenter
	}
	if view.SurfacePaintedRect != old.SurfacePaintedRect {
		change |= ChangeMargins
	}
	s.notify(change)
}

func (s *Surface) notify(change Change) {
	if s.onChange != nil {
		s.onChange(change)
	}
}
