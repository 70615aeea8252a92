// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package display

import (
	"image"
	"image/color"
	"math"
	"testing"

	"golang.org/x/image/draw"

	vnc "github.com/tenthirtyam/go-vncdisplay"
	"github.com/tenthirtyam/go-vncdisplay/keysym"
	"github.com/tenthirtyam/go-vncdisplay/scaler"
)

type pointerEvent struct {
	x, y    float64
	buttons vnc.MouseButtons
}

type keyEvent struct {
	key     keysym.Key
	pressed bool
}

// fakeClient records what a Surface sends.
type fakeClient struct {
	img     *image.RGBA
	viewers []vnc.Viewer

	pointer []pointerEvent
	keys    []keyEvent
	chars   []rune
}

func newFakeClient(w, h int) *fakeClient {
	return &fakeClient{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (c *fakeClient) Attach(v vnc.Viewer) {
	c.viewers = append(c.viewers, v)
	if c.img != nil {
		v.FramebufferResized(c.img.Rect.Dx(), c.img.Rect.Dy())
	}
}

func (c *fakeClient) Detach(v vnc.Viewer) {
	for i, existing := range c.viewers {
		if existing == v {
			c.viewers = append(c.viewers[:i], c.viewers[i+1:]...)
			return
		}
	}
}

func (c *fakeClient) Image() *image.RGBA { return c.img }

func (c *fakeClient) SendKey(key keysym.Key, pressed bool) error {
	c.keys = append(c.keys, keyEvent{key, pressed})
	return nil
}

func (c *fakeClient) SendChar(r rune) error {
	if _, ok := keysym.FromRune(r); !ok {
		return vnc.NewVNCError("SendChar", vnc.ErrUnmappedInput, "no keysym", nil)
	}
	c.chars = append(c.chars, r)
	return nil
}

func (c *fakeClient) SendMouseEvent(x, y float64, buttons vnc.MouseButtons) error {
	c.pointer = append(c.pointer, pointerEvent{x, y, buttons})
	return nil
}

func (c *fakeClient) resize(w, h int) {
	c.img = image.NewRGBA(image.Rect(0, 0, w, h))
	for _, v := range c.viewers {
		v.FramebufferResized(w, h)
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSurface_NoClient(t *testing.T) {
	s := New(400, 300)
	if s.Scale() != 0 {
		t.Errorf("Scale() = %v, want 0", s.Scale())
	}
	if s.LeftMargin() != 0 || s.TopMargin() != 0 || s.RightMargin() != 400 || s.BottomMargin() != 300 {
		t.Errorf("margins = %v %v %v %v", s.LeftMargin(), s.TopMargin(), s.RightMargin(), s.BottomMargin())
	}
	dst := image.NewRGBA(image.Rect(0, 0, 400, 300))
	s.Paint(dst)
	if dst.RGBAAt(200, 150) != (color.RGBA{}) {
		t.Error("Paint without a client must draw nothing")
	}
	if err := s.PointerPress(10, 10, vnc.MouseLeft); err != nil {
		t.Error(err)
	}
	if err := s.CommitText("abc"); err != nil {
		t.Error(err)
	}
}

func TestSurface_FitOnAttach(t *testing.T) {
	tests := []struct {
		name                     string
		srcW, srcH, surfW, surfH int
		scale                    float64
		left, top, right, bottom float64
	}{
		{"exact fit", 800, 600, 400, 300, 0.5, 0, 0, 0, 0},
		{"pillarbox", 800, 600, 1000, 600, 1, 100, 0, 100, 0},
		{"letterbox", 800, 400, 400, 400, 0.5, 0, 100, 0, 100},
		{"small source centred", 200, 100, 400, 300, 1, 100, 100, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.surfW, tt.surfH)
			s.SetClient(newFakeClient(tt.srcW, tt.srcH))

			if w, h := s.RemoteScreenSize(); w != tt.srcW || h != tt.srcH {
				t.Errorf("RemoteScreenSize() = %dx%d", w, h)
			}
			if !near(s.Scale(), tt.scale) {
				t.Errorf("Scale() = %v, want %v", s.Scale(), tt.scale)
			}
			got := []float64{s.LeftMargin(), s.TopMargin(), s.RightMargin(), s.BottomMargin()}
			want := []float64{tt.left, tt.top, tt.right, tt.bottom}
			for i := range got {
				if !near(got[i], want[i]) {
					t.Errorf("margins = %v, want %v", got, want)
					break
				}
			}
		})
	}
}

func TestSurface_RequestedScaleClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.5, 1.5},
		{2, 2},
		{5, MaxScale},
		{-1, 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		s := New(100, 100)
		s.SetRequestedScale(tt.in)
		if got := s.RequestedScale(); got != tt.want {
			t.Errorf("SetRequestedScale(%v) stored %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSurface_ZoomAndPan(t *testing.T) {
	s := New(400, 300)
	s.SetClient(newFakeClient(800, 600))

	s.SetRequestedScale(1)
	if s.Scale() != 1 {
		t.Fatalf("Scale() = %v, want 1", s.Scale())
	}
	visible := s.View().SourceVisibleRect
	if !near(visible.W, 400) || !near(visible.H, 300) || !near(visible.X, 200) || !near(visible.Y, 150) {
		t.Errorf("visible = %+v, want centred 400x300", visible)
	}

	// Panning past the edge is clamped.
	s.SetCenter(scaler.Point{X: 1000, Y: 0})
	if c := s.Center(); !near(c.X, 200) || !near(c.Y, 0) {
		t.Errorf("Center() = %+v, want {200 0}", c)
	}
	if r := s.View().SourceVisibleRect; !near(r.Right(), 800) {
		t.Errorf("visible right edge = %v, want 800", r.Right())
	}

	// Zooming out again recentres.
	s.SetRequestedScale(0)
	if c := s.Center(); !near(c.X, 0) || !near(c.Y, 0) {
		t.Errorf("Center() after zoom out = %+v", c)
	}
}

func TestSurface_MappingHelpers(t *testing.T) {
	s := New(1000, 600)
	s.SetClient(newFakeClient(800, 600))

	p := s.SurfaceToSource(scaler.Point{X: 150, Y: 20})
	if !near(p.X, 50) || !near(p.Y, 20) {
		t.Errorf("SurfaceToSource = %+v, want {50 20}", p)
	}
	back := s.SourceToSurface(p)
	if !near(back.X, 150) || !near(back.Y, 20) {
		t.Errorf("SourceToSurface = %+v, want {150 20}", back)
	}
}

func TestSurface_ChangeNotifications(t *testing.T) {
	var changes []Change
	s := New(400, 300, WithChangeHandler(func(c Change) { changes = append(changes, c) }))
	fc := newFakeClient(800, 600)
	s.SetClient(fc)

	last := changes[len(changes)-1]
	for _, want := range []Change{ChangeRemoteSize, ChangeScale, ChangeMargins, ChangeContent} {
		if last&want == 0 {
			t.Errorf("attach change %b missing %b", last, want)
		}
	}

	changes = nil
	s.FramebufferUpdated(image.Rect(0, 0, 10, 10))
	if len(changes) != 1 || changes[0] != ChangeContent {
		t.Errorf("update changes = %v, want [ChangeContent]", changes)
	}

	changes = nil
	fc.resize(400, 300)
	if len(changes) != 1 || changes[0]&ChangeRemoteSize == 0 || changes[0]&ChangeScale == 0 {
		t.Errorf("resize changes = %v", changes)
	}
	if s.Scale() != 1 {
		t.Errorf("Scale() after resize = %v, want 1", s.Scale())
	}
}

func TestSurface_SetClientSwitch(t *testing.T) {
	s := New(400, 300)
	a, b := newFakeClient(800, 600), newFakeClient(100, 100)
	s.SetClient(a)
	s.SetClient(b)
	if len(a.viewers) != 0 {
		t.Error("previous client still has the surface attached")
	}
	if w, h := s.RemoteScreenSize(); w != 100 || h != 100 {
		t.Errorf("RemoteScreenSize() = %dx%d, want 100x100", w, h)
	}

	s.SetClient(nil)
	if len(b.viewers) != 0 || s.Scale() != 0 {
		t.Error("SetClient(nil) should detach and clear the view")
	}
}

func TestSurface_DetachKeepsFramebuffer(t *testing.T) {
	fc := newFakeClient(8, 8)
	fc.img.SetRGBA(3, 3, color.RGBA{1, 2, 3, 255})
	s := New(8, 8)
	s.SetClient(fc)
	s.SetClient(nil)
	if fc.img.RGBAAt(3, 3) != (color.RGBA{1, 2, 3, 255}) {
		t.Error("detaching changed the framebuffer")
	}

	s2 := New(16, 16)
	s2.SetClient(fc)
	if s2.View().SurfacePaintedRect.Empty() {
		t.Error("attaching to a live framebuffer should give a non-empty view")
	}
}

func TestSurface_PaintUnscaled(t *testing.T) {
	fc := newFakeClient(4, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			fc.img.SetRGBA(x, y, color.RGBA{uint8(x * 10), uint8(y * 10), 7, 255})
		}
	}
	s := New(8, 4)
	s.SetClient(fc)

	dst := image.NewRGBA(image.Rect(0, 0, 8, 4))
	s.Paint(dst)

	// Centred with a 2 pixel margin left and 1 pixel on top.
	if got, want := dst.RGBAAt(2, 1), fc.img.RGBAAt(0, 0); got != want {
		t.Errorf("dst(2,1) = %v, want %v", got, want)
	}
	if got, want := dst.RGBAAt(5, 2), fc.img.RGBAAt(3, 1); got != want {
		t.Errorf("dst(5,2) = %v, want %v", got, want)
	}
	if got := dst.RGBAAt(0, 0); got != (color.RGBA{}) {
		t.Errorf("margin pixel = %v, want untouched", got)
	}
}

func TestSurface_PaintScaled(t *testing.T) {
	fc := newFakeClient(4, 2)
	red := color.RGBA{255, 0, 0, 255}
	draw.Draw(fc.img, fc.img.Bounds(), image.NewUniform(red), image.Point{}, draw.Src)

	s := New(2, 1, WithInterpolator(draw.NearestNeighbor))
	s.SetClient(fc)

	dst := image.NewRGBA(image.Rect(10, 10, 12, 11))
	s.Paint(dst)
	for x := 10; x < 12; x++ {
		if got := dst.RGBAAt(x, 10); got != red {
			t.Errorf("dst(%d,10) = %v, want red", x, got)
		}
	}
}

func TestSurface_PaintPicksUpUnnotifiedResize(t *testing.T) {
	fc := newFakeClient(800, 600)
	s := New(400, 300)
	s.SetClient(fc)
	fc.img = image.NewRGBA(image.Rect(0, 0, 400, 300))

	s.Paint(image.NewRGBA(image.Rect(0, 0, 400, 300)))
	if w, h := s.RemoteScreenSize(); w != 400 || h != 300 {
		t.Errorf("RemoteScreenSize() = %dx%d after paint", w, h)
	}
}

func TestSurface_PointerEvents(t *testing.T) {
	fc := newFakeClient(800, 600)
	s := New(1000, 600)
	s.SetClient(fc)

	// Left margin is 100 pixels wide.
	if err := s.PointerPress(50, 10, vnc.MouseLeft); err != nil {
		t.Fatal(err)
	}
	if err := s.PointerMove(950, 10, vnc.MouseLeft); err != nil {
		t.Fatal(err)
	}
	if len(fc.pointer) != 0 {
		t.Fatalf("events in the margins were forwarded: %v", fc.pointer)
	}

	_ = s.PointerPress(150, 10, vnc.MouseLeft)
	_ = s.PointerMove(160, 20, vnc.MouseLeft)
	_ = s.PointerRelease(160, 20, 0)
	_ = s.HoverMove(50, 30)

	want := []pointerEvent{
		{50, 10, vnc.MouseLeft},
		{60, 20, vnc.MouseLeft},
		{60, 20, 0},
		{-50, 30, 0},
	}
	if len(fc.pointer) != len(want) {
		t.Fatalf("pointer events = %v, want %v", fc.pointer, want)
	}
	for i := range want {
		got := fc.pointer[i]
		if !near(got.x, want[i].x) || !near(got.y, want[i].y) || got.buttons != want[i].buttons {
			t.Errorf("event %d = %v, want %v", i, got, want[i])
		}
	}
}

func TestSurface_Wheel(t *testing.T) {
	fc := newFakeClient(100, 100)
	s := New(100, 100)
	s.SetClient(fc)

	if err := s.Wheel(10, 10, true, vnc.MouseRight); err != nil {
		t.Fatal(err)
	}
	if len(fc.pointer) != 2 ||
		fc.pointer[0].buttons != vnc.MouseRight|vnc.MouseWheelUp ||
		fc.pointer[1].buttons != vnc.MouseRight {
		t.Errorf("wheel events = %v", fc.pointer)
	}
}

func TestSurface_Keys(t *testing.T) {
	fc := newFakeClient(10, 10)
	s := New(10, 10)
	s.SetClient(fc)

	_ = s.KeyPress(keysym.KeyEscape)
	_ = s.KeyRelease(keysym.KeyEscape)
	if len(fc.keys) != 2 || fc.keys[0] != (keyEvent{keysym.KeyEscape, true}) || fc.keys[1] != (keyEvent{keysym.KeyEscape, false}) {
		t.Errorf("keys = %v", fc.keys)
	}
}

func TestSurface_CommitText(t *testing.T) {
	fc := newFakeClient(10, 10)
	s := New(10, 10)
	s.SetClient(fc)

	// "e" + COMBINING ACUTE composes to U+00E9.
	err := s.CommitText("e\u0301中x")
	if !vnc.IsVNCError(err, vnc.ErrUnmappedInput) {
		t.Errorf("CommitText() error = %v, want unmapped input", err)
	}
	if string(fc.chars) != "\u00e9x" {
		t.Errorf("chars = %q, want %q", string(fc.chars), "\u00e9x")
	}
}
