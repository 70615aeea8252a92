// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"testing"
	"time"
)

// MockVNCServer is a scripted RFB server on loopback TCP. It performs the
// handshake for one connection and then hands the server side of the
// socket to the test, which reads client messages and writes server
// messages directly.
type MockVNCServer struct {
	listener net.Listener

	// Version is the version the server announces, e.g. "003.008".
	Version string
	// AuthMethods are offered in order; under 3.3 only the first is used.
	AuthMethods []uint8
	// Password is checked when VNC authentication is chosen.
	Password string
	// RejectReason, when set, refuses the connection with no security types.
	RejectReason string
	FrameWidth   uint16
	FrameHeight  uint16
	DesktopName  string

	sessions chan *mockSession
}

// mockSession is an established connection after ServerInit.
type mockSession struct {
	conn          net.Conn
	clientVersion string
	securityType  uint8
	shared        bool
}

func newMockVNCServer(t *testing.T) *MockVNCServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("error listening: %s", err)
	}
	m := &MockVNCServer{
		listener:    ln,
		Version:     "003.008",
		AuthMethods: []uint8{SecurityTypeNone},
		FrameWidth:  100,
		FrameHeight: 80,
		DesktopName: "Mock VNC Server",
		sessions:    make(chan *mockSession, 1),
	}
	t.Cleanup(func() { ln.Close() })
	return m
}

// Start accepts a single connection in the background.
func (m *MockVNCServer) Start(t *testing.T) {
	t.Helper()
	go func() {
		conn, err := m.listener.Accept()
		if err != nil {
			return
		}
		s, err := m.handshake(conn)
		if err != nil {
			conn.Close()
			return
		}
		m.sessions <- s
	}()
}

// Addr returns the endpoint string for Connect.
func (m *MockVNCServer) Addr() string {
	return m.listener.Addr().String()
}

// Session waits for the handshake to finish.
func (m *MockVNCServer) Session(t *testing.T) *mockSession {
	t.Helper()
	select {
	case s := <-m.sessions:
		t.Cleanup(func() { s.conn.Close() })
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mock session")
		return nil
	}
}

func (m *MockVNCServer) handshake(conn net.Conn) (*mockSession, error) {
	if err := conn.SetDeadline(time.Now().Add(2 * time.Second)); err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "RFB %s\n", m.Version); err != nil {
		return nil, err
	}
	pv := make([]byte, 12)
	if _, err := io.ReadFull(conn, pv); err != nil {
		return nil, err
	}
	s := &mockSession{conn: conn, clientVersion: string(pv)}
	v38 := s.clientVersion == "RFB 003.008\n"
	v33 := s.clientVersion == "RFB 003.003\n"

	if m.RejectReason != "" {
		if v33 {
			_ = binary.Write(conn, binary.BigEndian, uint32(0))
		} else {
			_, _ = conn.Write([]byte{0})
		}
		writeString(conn, m.RejectReason)
		return nil, errors.New("rejected")
	}

	if v33 {
		s.securityType = m.AuthMethods[0]
		if err := binary.Write(conn, binary.BigEndian, uint32(s.securityType)); err != nil {
			return nil, err
		}
	} else {
		if _, err := conn.Write(append([]byte{byte(len(m.AuthMethods))}, m.AuthMethods...)); err != nil {
			return nil, err
		}
		chosen := make([]byte, 1)
		if _, err := io.ReadFull(conn, chosen); err != nil {
			return nil, err
		}
		s.securityType = chosen[0]
	}

	ok := true
	switch s.securityType {
	case SecurityTypeNone:
		if v38 {
			_ = binary.Write(conn, binary.BigEndian, uint32(0))
		}
	case SecurityTypeVNCAuth:
		challenge := make([]byte, VNCChallengeSize)
		for i := range challenge {
			challenge[i] = byte(i * 7)
		}
		if _, err := conn.Write(challenge); err != nil {
			return nil, err
		}
		response := make([]byte, VNCChallengeSize)
		if _, err := io.ReadFull(conn, response); err != nil {
			return nil, err
		}
		expected, _ := encryptVNCChallenge(m.Password, challenge)
		ok = bytes.Equal(response, expected)
		if ok {
			_ = binary.Write(conn, binary.BigEndian, uint32(0))
		} else {
			_ = binary.Write(conn, binary.BigEndian, uint32(1))
			if v38 {
				writeString(conn, "Authentication failed")
			}
		}
	default:
		return nil, fmt.Errorf("unexpected security type %d", s.securityType)
	}
	if !ok {
		return nil, errors.New("authentication failed")
	}

	shared := make([]byte, 1)
	if _, err := io.ReadFull(conn, shared); err != nil {
		return nil, err
	}
	s.shared = shared[0] != 0

	var init bytes.Buffer
	_ = binary.Write(&init, binary.BigEndian, []uint16{m.FrameWidth, m.FrameHeight})
	_ = writePixelFormat(&init, PixelFormat{
		BPP: 32, Depth: 24, TrueColor: true,
		RedMax: 255, GreenMax: 255, BlueMax: 255,
		RedShift: 16, GreenShift: 8, BlueShift: 0,
	})
	_ = binary.Write(&init, binary.BigEndian, uint32(len(m.DesktopName)))
	init.WriteString(m.DesktopName)
	if _, err := conn.Write(init.Bytes()); err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}
	return s, nil
}

func writeString(w io.Writer, s string) {
	_ = binary.Write(w, binary.BigEndian, uint32(len(s)))
	_, _ = io.WriteString(w, s)
}

// clientMessage is one decoded client-to-server message.
type clientMessage struct {
	Type    uint8
	Payload []byte
}

// read returns the next client message.
func (s *mockSession) read(t *testing.T) clientMessage {
	t.Helper()
	if err := s.conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	head := make([]byte, 1)
	if _, err := io.ReadFull(s.conn, head); err != nil {
		t.Fatalf("reading client message type: %v", err)
	}
	var n int
	switch head[0] {
	case msgSetPixelFormat:
		n = 19
	case msgFramebufferUpdateRequest:
		n = 9
	case msgKeyEvent:
		n = 7
	case msgPointerEvent:
		n = 5
	case msgSetEncodings:
		hdr := make([]byte, 3)
		if _, err := io.ReadFull(s.conn, hdr); err != nil {
			t.Fatal(err)
		}
		rest := make([]byte, 4*int(binary.BigEndian.Uint16(hdr[1:])))
		if _, err := io.ReadFull(s.conn, rest); err != nil {
			t.Fatal(err)
		}
		return clientMessage{Type: head[0], Payload: append(hdr, rest...)}
	default:
		t.Fatalf("unexpected client message type %d", head[0])
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(s.conn, payload); err != nil {
		t.Fatalf("reading client message payload: %v", err)
	}
	return clientMessage{Type: head[0], Payload: payload}
}

// expectSilence fails if the client sends anything within d.
func (s *mockSession) expectSilence(t *testing.T, d time.Duration) {
	t.Helper()
	if err := s.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		t.Fatal(err)
	}
	b := make([]byte, 1)
	n, err := s.conn.Read(b)
	var ne net.Error
	if n != 0 || !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("expected no client traffic, got %d bytes (err %v)", n, err)
	}
}

// expectInitialRequests consumes SetPixelFormat, SetEncodings and the
// first full update request.
func (s *mockSession) expectInitialRequests(t *testing.T, width, height uint16) {
	t.Helper()
	if msg := s.read(t); msg.Type != msgSetPixelFormat {
		t.Fatalf("first message type = %d, want SetPixelFormat", msg.Type)
	} else if want := buildSetPixelFormat(ClientPixelFormat)[1:]; !bytes.Equal(msg.Payload, want) {
		t.Errorf("SetPixelFormat payload = %v, want %v", msg.Payload, want)
	}
	if msg := s.read(t); msg.Type != msgSetEncodings {
		t.Fatalf("second message type = %d, want SetEncodings", msg.Type)
	} else if want := buildSetEncodings([]int32{EncodingRaw, EncodingDesktopSize})[1:]; !bytes.Equal(msg.Payload, want) {
		t.Errorf("SetEncodings payload = %v, want %v", msg.Payload, want)
	}
	s.expectUpdateRequest(t, false, width, height)
}

func (s *mockSession) expectUpdateRequest(t *testing.T, incremental bool, width, height uint16) {
	t.Helper()
	msg := s.read(t)
	want := buildFramebufferUpdateRequest(incremental, 0, 0, width, height)
	if msg.Type != msgFramebufferUpdateRequest || !bytes.Equal(msg.Payload, want[1:]) {
		t.Fatalf("got message %d %v, want update request %v", msg.Type, msg.Payload, want[1:])
	}
}

func (s *mockSession) write(t *testing.T, b []byte) {
	t.Helper()
	if _, err := s.conn.Write(b); err != nil {
		t.Fatalf("mock write: %v", err)
	}
}

// rawUpdate builds a FramebufferUpdate with one Raw rectangle filled with
// a single colour.
func rawUpdate(x, y, w, h uint16, r, g, b uint8) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{msgFramebufferUpdate, 0})
	_ = binary.Write(&buf, binary.BigEndian, uint16(1))
	_ = binary.Write(&buf, binary.BigEndian, []uint16{x, y, w, h})
	_ = binary.Write(&buf, binary.BigEndian, EncodingRaw)
	for i := 0; i < int(w)*int(h); i++ {
		buf.Write([]byte{b, g, r, 0})
	}
	return buf.Bytes()
}

// resizeUpdate builds a FramebufferUpdate with a DesktopSize rectangle.
func resizeUpdate(w, h uint16) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{msgFramebufferUpdate, 0})
	_ = binary.Write(&buf, binary.BigEndian, uint16(1))
	_ = binary.Write(&buf, binary.BigEndian, []uint16{0, 0, w, h})
	_ = binary.Write(&buf, binary.BigEndian, EncodingDesktopSize)
	return buf.Bytes()
}

// recordingViewer records notifications.
type recordingViewer struct {
	resizes []image.Point
	updates []image.Rectangle
}

func (v *recordingViewer) FramebufferResized(w, h int) {
	v.resizes = append(v.resizes, image.Pt(w, h))
}

func (v *recordingViewer) FramebufferUpdated(r image.Rectangle) {
	v.updates = append(v.updates, r)
}

// fakeReactor records watches and posted functions without running them.
type fakeReactor struct {
	watched  int
	canceled int
	posted   []func()
}

func (r *fakeReactor) WatchRead(fd uintptr, fn func()) (func(), error) {
	r.watched++
	return func() { r.canceled++ }, nil
}

func (r *fakeReactor) Post(fn func()) {
	r.posted = append(r.posted, fn)
}

func (r *fakeReactor) runPosted() {
	posted := r.posted
	r.posted = nil
	for _, fn := range posted {
		fn()
	}
}

// pumpUntil pumps c until cond holds.
func pumpUntil(t *testing.T, c *Client, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out pumping client")
		}
		if err := c.Pump(); err != nil {
			t.Fatalf("Pump() error = %v", err)
		}
	}
}

// connectMock starts a mock server, connects c to it and consumes the
// initial client requests.
func connectMock(t *testing.T, c *Client, m *MockVNCServer) *mockSession {
	t.Helper()
	m.Start(t)
	if err := c.Connect(testContext(t), m.Addr(), m.Password); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	s := m.Session(t)
	s.expectInitialRequests(t, m.FrameWidth, m.FrameHeight)
	return s
}
