// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package scaler

import (
	"image"
	"math"
)

// Point is a position in either surface or source pixel space.
type Point struct {
	X, Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Size is a width and height in pixels.
type Size struct {
	W, H float64
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// SizeOf converts an integer image rectangle's dimensions into a Size.
func SizeOf(r image.Rectangle) Size {
	return Size{W: float64(r.Dx()), H: float64(r.Dy())}
}

// Rect is an axis-aligned rectangle with a floating point origin and size.
type Rect struct {
	X, Y, W, H float64
}

// RectOf returns the rectangle anchored at the origin with size s.
func RectOf(s Size) Rect {
	return Rect{W: s.W, H: s.H}
}

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size {
	return Size{W: r.W, H: r.H}
}

// Intersect returns the largest rectangle contained by both r and s.
// The zero Rect is returned if they do not overlap.
func (r Rect) Intersect(s Rect) Rect {
	x0 := math.Max(r.X, s.X)
	y0 := math.Max(r.Y, s.Y)
	x1 := math.Min(r.Right(), s.Right())
	y1 := math.Min(r.Bottom(), s.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Contains reports whether s lies within r, allowing eps of slack on
// every edge.
func (r Rect) Contains(s Rect, eps float64) bool {
	return s.X >= r.X-eps && s.Y >= r.Y-eps &&
		s.Right() <= r.Right()+eps && s.Bottom() <= r.Bottom()+eps
}

// Image rounds every edge to the nearest integer.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.Right())), int(math.Round(r.Bottom())),
	)
}

// Transform is a 2-D affine transform. A point is mapped as
//
//	x' = M11*x + M21*y + Dx
//	y' = M12*x + M22*y + Dy
type Transform struct {
	M11, M12 float64
	M21, M22 float64
	Dx, Dy   float64
}

// Identity returns the transform that maps every point to itself.
func Identity() Transform {
	return Transform{M11: 1, M22: 1}
}

// Translation returns a transform that shifts points by (dx, dy).
func Translation(dx, dy float64) Transform {
	return Transform{M11: 1, M22: 1, Dx: dx, Dy: dy}
}

// Scaling returns a transform that scales points about the origin.
func Scaling(sx, sy float64) Transform {
	return Transform{M11: sx, M22: sy}
}

// Then returns the transform that applies t first and u second.
func (t Transform) Then(u Transform) Transform {
	return Transform{
		M11: u.M11*t.M11 + u.M21*t.M12,
		M12: u.M12*t.M11 + u.M22*t.M12,
		M21: u.M11*t.M21 + u.M21*t.M22,
		M22: u.M12*t.M21 + u.M22*t.M22,
		Dx:  u.M11*t.Dx + u.M21*t.Dy + u.Dx,
		Dy:  u.M12*t.Dx + u.M22*t.Dy + u.Dy,
	}
}

// Determinant returns the determinant of the linear part.
func (t Transform) Determinant() float64 {
	return t.M11*t.M22 - t.M21*t.M12
}

// Invert returns the inverse transform. ok is false, and the identity is
// returned, when t is singular.
func (t Transform) Invert() (inv Transform, ok bool) {
	det := t.Determinant()
	if det == 0 {
		return Identity(), false
	}
	return Transform{
		M11: t.M22 / det,
		M12: -t.M12 / det,
		M21: -t.M21 / det,
		M22: t.M11 / det,
		Dx:  (t.M21*t.Dy - t.M22*t.Dx) / det,
		Dy:  (t.M12*t.Dx - t.M11*t.Dy) / det,
	}, true
}

// Map applies the transform to p.
func (t Transform) Map(p Point) Point {
	return Point{
		X: t.M11*p.X + t.M21*p.Y + t.Dx,
		Y: t.M12*p.X + t.M22*p.Y + t.Dy,
	}
}

// MapRect returns the bounding rectangle of r's four mapped corners.
func (t Transform) MapRect(r Rect) Rect {
	corners := [4]Point{
		t.Map(Point{X: r.X, Y: r.Y}),
		t.Map(Point{X: r.Right(), Y: r.Y}),
		t.Map(Point{X: r.X, Y: r.Bottom()}),
		t.Map(Point{X: r.Right(), Y: r.Bottom()}),
	}
	x0, y0 := corners[0].X, corners[0].Y
	x1, y1 := x0, y0
	for _, c := range corners[1:] {
		x0 = math.Min(x0, c.X)
		y0 = math.Min(y0, c.Y)
		x1 = math.Max(x1, c.X)
		y1 = math.Max(y1, c.Y)
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
