// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Package scaler fits a remote framebuffer into a local display surface.
//
// Fit takes the size of the remote screen (the source), the size of the
// surface it is shown on, and the viewer's requested zoom and pan, and
// produces a View: the effective zoom, the pair of transforms between
// surface and source pixel space, and the rectangles to blit.
//
// The source is never shown smaller than its aspect-preserving fit (or
// larger than 1:1 when that fit would upscale), and the view never reveals
// space outside the source unless the whole source axis already fits, in
// which case it is centred.
package scaler

import (
	"errors"
	"math"
)

// ErrEmptySize is returned by Fit when the source or surface has a zero
// dimension.
var ErrEmptySize = errors.New("scaler: empty source or surface size")

// Input describes the requested view.
type Input struct {
	// SourceSize is the size of the remote framebuffer.
	SourceSize Size

	// SurfaceSize is the size of the local drawing area.
	SurfaceSize Size

	// RequestedScale is the desired zoom factor. Values below the
	// minimum fit scale, including zero, select the minimum.
	RequestedScale float64

	// RequestedCenter is the desired pan, as an offset in source pixels
	// from the centre of the source.
	RequestedCenter Point
}

// View is the result of fitting a source into a surface.
type View struct {
	// SourceVisibleRect is the part of the source that is shown.
	SourceVisibleRect Rect

	// SurfacePaintedRect is where on the surface the visible part lands.
	SurfacePaintedRect Rect

	// Scale is the effective zoom factor (surface pixels per source pixel).
	Scale float64

	// MinScale is the smallest zoom factor that Fit would honour.
	MinScale float64

	// Center is the effective pan, after clamping, as an offset from the
	// source centre.
	Center Point

	// SurfaceToSource maps surface coordinates into source coordinates.
	SurfaceToSource Transform

	// SourceToSurface is the inverse of SurfaceToSource.
	SourceToSurface Transform
}

// Neutral returns the view used when nothing can be shown.
func Neutral() View {
	return View{
		SurfaceToSource: Identity(),
		SourceToSurface: Identity(),
	}
}

// Fit computes the view for in. It is pure and deterministic. When either
// size is empty it returns the neutral view and ErrEmptySize.
func Fit(in Input) (View, error) {
	if in.SourceSize.Empty() || in.SurfaceSize.Empty() {
		return Neutral(), ErrEmptySize
	}

	minScale := FitScale(in.SourceSize, in.SurfaceSize)
	scale := math.Max(in.RequestedScale, minScale)

	sourceRect := RectOf(in.SourceSize)
	surfaceRect := RectOf(in.SurfaceSize)
	sourceCenter := sourceRect.Center()
	surfaceCenter := surfaceRect.Center()

	toSource := Translation(-surfaceCenter.X, -surfaceCenter.Y).
		Then(Scaling(1/scale, 1/scale)).
		Then(Translation(sourceCenter.X+in.RequestedCenter.X, sourceCenter.Y+in.RequestedCenter.Y))

	offset := fitOffset(toSource.MapRect(surfaceRect), in.SourceSize)
	toSource = toSource.Then(Translation(offset.X, offset.Y))

	toSurface, ok := toSource.Invert()
	if !ok {
		return Neutral(), ErrEmptySize
	}

	painted := toSurface.MapRect(sourceRect).Intersect(surfaceRect)
	visible := toSource.MapRect(painted)

	return View{
		SourceVisibleRect:  visible,
		SurfacePaintedRect: painted,
		Scale:              scale,
		MinScale:           minScale,
		Center:             in.RequestedCenter.Add(offset),
		SurfaceToSource:    toSource,
		SourceToSurface:    toSurface,
	}, nil
}

// FitScale returns the zoom factor at which source fits inside surface with
// its aspect ratio preserved, capped at 1.
func FitScale(source, surface Size) float64 {
	if source.Empty() || surface.Empty() {
		return 0
	}
	fitted := surface.W
	if w := surface.H * source.W / source.H; w <= surface.W {
		fitted = w
	}
	return math.Min(fitted/source.W, 1)
}

// fitOffset returns the translation, in source pixels, that moves view so
// that it does not reveal space outside a source of size limit. Along an
// axis where view is wider than the source, the source is centred instead.
//
// view is the surface rectangle already mapped into source space; limit is
// the source size. Swapping the two yields a plausible but wrong result.
func fitOffset(view Rect, limit Size) Point {
	return Point{
		X: fitAxis(view.X, view.W, limit.W),
		Y: fitAxis(view.Y, view.H, limit.H),
	}
}

func fitAxis(pos, length, limit float64) float64 {
	if length > limit {
		return -pos - (length-limit)/2
	}
	if near := -pos; near > 0 {
		return near
	}
	if far := pos + length - limit; far > 0 {
		return -far
	}
	return 0
}
