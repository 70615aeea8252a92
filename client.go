// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"syscall"
	"time"
)

// Default connection settings.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 10 * time.Millisecond
	DefaultWriteTimeout   = 5 * time.Second
	DefaultReadChunkSize  = 64 * 1024
)

// ButtonMask represents the state of pointer buttons in a VNC pointer event.
type ButtonMask uint8

// Button mask constants for standard mouse buttons and scroll wheel events.
const (
	ButtonLeft ButtonMask = 1 << iota
	ButtonMiddle
	ButtonRight
	Button4
	Button5
	Button6
	Button7
	Button8
)

// State is the connection state of a Client.
type State int

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Viewer is notified of framebuffer changes. A resize to 0x0 means the
// framebuffer is gone.
type Viewer interface {
	FramebufferResized(width, height int)
	FramebufferUpdated(rect image.Rectangle)
}

// Reactor is the event loop a Client runs on. WatchRead calls fn on the
// loop whenever fd is readable; Post queues fn to run on the loop.
// reactor.Loop satisfies it.
type Reactor interface {
	WatchRead(fd uintptr, fn func()) (cancel func(), err error)
	Post(fn func())
}

// Dialer opens the transport connection.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ClientConfig configures VNC client connection behavior.
type ClientConfig struct {
	// Auth overrides the authentication methods derived from the password
	// passed to Connect. Methods are tried in order.
	Auth []ClientAuth

	// Exclusive determines whether this client requests exclusive access.
	Exclusive bool

	// Logger specifies the logger instance to use for connection logging.
	Logger Logger

	// Reactor drives Pump. Without one the caller must call Pump itself.
	Reactor Reactor

	// Dialer opens the transport. Defaults to a net.Dialer.
	Dialer Dialer

	// ConnectTimeout bounds dialing and the handshake.
	ConnectTimeout time.Duration

	// ReadTimeout bounds the single read performed by Pump.
	ReadTimeout time.Duration

	// WriteTimeout bounds each client message write.
	WriteTimeout time.Duration

	// ReadChunkSize is the minimum number of bytes Pump asks the socket for.
	ReadChunkSize int

	// StateHandler is called on every state change, with the error that
	// caused it when the change is a failure.
	StateHandler func(State, error)

	// BellHandler is called when the server rings the bell.
	BellHandler func()
}

// ClientOption represents a functional option for configuring a VNC client.
type ClientOption func(*ClientConfig)

// WithAuth sets the authentication methods for the client connection.
// The methods are tried in the order provided during server negotiation.
func WithAuth(auth ...ClientAuth) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.Auth = auth
	}
}

// WithExclusive requests exclusive access to the desktop.
func WithExclusive(exclusive bool) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.Exclusive = exclusive
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger Logger) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.Logger = logger
	}
}

// WithReactor sets the event loop that drives the client.
func WithReactor(r Reactor) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.Reactor = r
	}
}

// WithDialer sets the dialer used by Connect.
func WithDialer(d Dialer) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.Dialer = d
	}
}

// WithConnectTimeout sets the timeout for dialing and the handshake.
func WithConnectTimeout(timeout time.Duration) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.ConnectTimeout = timeout
	}
}

// WithReadTimeout sets how long Pump waits for data.
func WithReadTimeout(timeout time.Duration) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.ReadTimeout = timeout
	}
}

// WithWriteTimeout sets the timeout for individual write operations.
func WithWriteTimeout(timeout time.Duration) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.WriteTimeout = timeout
	}
}

// WithReadChunkSize sets the minimum read size used by Pump.
func WithReadChunkSize(n int) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.ReadChunkSize = n
	}
}

// WithStateHandler sets the state change callback.
func WithStateHandler(fn func(State, error)) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.StateHandler = fn
	}
}

// WithBellHandler sets the bell callback.
func WithBellHandler(fn func()) ClientOption {
	return func(cfg *ClientConfig) {
		cfg.BellHandler = fn
	}
}

// Client is a VNC viewer connection. It is not safe for concurrent use:
// every method, including the reactor callbacks it registers, must run on
// the same goroutine.
type Client struct {
	config ClientConfig
	logger Logger

	state    State
	endpoint Endpoint
	conn     net.Conn
	unwatch  func()

	// generation invalidates callbacks queued for an earlier connection.
	generation uint64
	posted     bool

	buf  []byte
	want int

	fb           *Framebuffer
	serverFormat PixelFormat
	desktopName  string
	minorVersion uint

	viewers   []Viewer
	messages  map[uint8]ServerMessage
	encodings map[int32]Encoding
}

// NewClient creates a disconnected client.
func NewClient(opts ...ClientOption) *Client {
	cfg := ClientConfig{
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		ReadChunkSize:  DefaultReadChunkSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = &NoOpLogger{}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &net.Dialer{}
	}
	if cfg.ReadChunkSize <= 0 {
		cfg.ReadChunkSize = DefaultReadChunkSize
	}

	encodings := map[int32]Encoding{}
	for _, e := range supportedEncodings() {
		encodings[e.Type()] = e
	}
	return &Client{
		config:    cfg,
		logger:    cfg.Logger,
		messages:  serverMessages(),
		encodings: encodings,
	}
}

// Connect dials endpoint, performs the RFB handshake and starts receiving
// updates. It blocks until the connection is established or fails; on
// failure the client is back in StateDisconnected and the error has code
// ErrConnection.
func (c *Client) Connect(ctx context.Context, endpoint, password string) error {
	if c.state != StateDisconnected {
		return stateError("Connect", fmt.Sprintf("client is %s", c.state))
	}

	ep, err := ParseEndpoint(endpoint)
	if err != nil {
		return connectionError("Connect", "invalid endpoint", err)
	}

	c.generation++
	c.endpoint = ep
	c.logger = c.config.Logger.With(Field{Key: "endpoint", Value: ep.String()})
	c.setState(StateConnecting, nil)

	if c.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	c.logger.Info("Connecting to VNC server")
	conn, err := c.config.Dialer.DialContext(ctx, ep.Network, ep.Address)
	if err != nil {
		return c.abortConnect(networkError("Connect", "failed to dial server", err))
	}
	c.conn = conn

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	width, height, err := c.handshake(ctx, conn, c.authMethods(password))
	stop()
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			err = timeoutError("Connect", "handshake did not complete in time", err)
		}
		return c.abortConnect(err)
	}
	_ = conn.SetDeadline(time.Time{})

	c.fb = newFramebuffer(int(width), int(height))
	for _, msg := range [][]byte{
		buildSetPixelFormat(ClientPixelFormat),
		buildSetEncodings(encodingTypes(supportedEncodings())),
		buildFramebufferUpdateRequest(false, 0, 0, width, height),
	} {
		if err := c.send(msg); err != nil {
			return c.abortConnect(networkError("Connect", "failed to send initial requests", err))
		}
	}

	if c.config.Reactor != nil {
		if err := c.watch(); err != nil {
			return c.abortConnect(err)
		}
	}

	c.setState(StateConnected, nil)
	c.logger.Info("Connected to VNC server",
		Field{Key: "desktop", Value: c.desktopName},
		Field{Key: "width", Value: width},
		Field{Key: "height", Value: height})
	c.notifyResized()
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) authMethods(password string) []ClientAuth {
	methods := c.config.Auth
	if len(methods) == 0 {
		methods = authMethods(password)
	}
	for _, m := range methods {
		if l, ok := m.(interface{ SetLogger(Logger) }); ok {
			l.SetLogger(c.logger)
		}
	}
	return methods
}

// watch registers the connection with the reactor.
func (c *Client) watch() error {
	sc, ok := c.conn.(syscall.Conn)
	if !ok {
		return configurationError("Connect",
			fmt.Sprintf("reactor needs a file-backed connection, got %T", c.conn), nil)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return networkError("Connect", "failed to access connection descriptor", err)
	}
	var fd uintptr
	if err := raw.Control(func(f uintptr) { fd = f }); err != nil {
		return networkError("Connect", "failed to access connection descriptor", err)
	}

	gen := c.generation
	cancel, err := c.config.Reactor.WatchRead(fd, func() {
		if c.generation != gen {
			return
		}
		_ = c.Pump()
	})
	if err != nil {
		return configurationError("Connect", "failed to watch connection", err)
	}
	c.unwatch = cancel
	return nil
}

func (c *Client) abortConnect(err error) error {
	c.teardown()
	wrapped := connectionError("Connect", "connection failed", err)
	c.logger.Error("Failed to connect", Field{Key: "error", Value: err})
	c.setState(StateDisconnected, wrapped)
	return wrapped
}

// Disconnect closes the connection. It is a no-op when already
// disconnected.
func (c *Client) Disconnect() {
	if c.state == StateDisconnected && c.conn == nil {
		return
	}
	c.logger.Info("Disconnecting from VNC server")
	c.teardown()
	c.setState(StateDisconnected, nil)
}

// fail tears the connection down after an I/O or protocol error and
// returns err.
func (c *Client) fail(op string, err error) error {
	if c.conn == nil {
		return err
	}
	c.logger.Error("Connection lost", Field{Key: "op", Value: op}, Field{Key: "error", Value: err})
	c.teardown()
	c.setState(StateDisconnected, err)
	return err
}

func (c *Client) teardown() {
	c.generation++
	c.posted = false
	if c.unwatch != nil {
		c.unwatch()
		c.unwatch = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("Error closing connection", Field{Key: "error", Value: err})
		}
		c.conn = nil
	}
	c.buf = nil
	c.want = 0
	c.desktopName = ""
	c.serverFormat = PixelFormat{}
	c.minorVersion = 0
	if c.fb != nil {
		c.fb = nil
		c.notifyResized()
	}
}

func (c *Client) setState(s State, err error) {
	if c.state == s {
		return
	}
	c.logger.Debug("Connection state changed",
		Field{Key: "from", Value: c.state},
		Field{Key: "to", Value: s})
	c.state = s
	if c.config.StateHandler != nil {
		c.config.StateHandler(s, err)
	}
}

// State returns the connection state.
func (c *Client) State() State {
	return c.state
}

// Endpoint returns the endpoint of the current or last connection.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Framebuffer returns the remote screen, or nil when not connected.
func (c *Client) Framebuffer() *Framebuffer {
	return c.fb
}

// Image returns the framebuffer pixels, or nil when not connected.
func (c *Client) Image() *image.RGBA {
	if c.fb == nil {
		return nil
	}
	return c.fb.Image()
}

// ScreenSize returns the framebuffer size, or 0x0 when not connected.
func (c *Client) ScreenSize() (width, height int) {
	if c.fb == nil {
		return 0, 0
	}
	return c.fb.Width(), c.fb.Height()
}

// DesktopName returns the name announced by the server.
func (c *Client) DesktopName() string {
	return c.desktopName
}

// ServerPixelFormat returns the server's native pixel format. Updates are
// always received in ClientPixelFormat.
func (c *Client) ServerPixelFormat() PixelFormat {
	return c.serverFormat
}

// ProtocolVersion returns the negotiated RFB version, e.g. "3.8".
func (c *Client) ProtocolVersion() string {
	if c.state != StateConnected {
		return ""
	}
	return fmt.Sprintf("3.%d", c.minorVersion)
}

// Attach registers v for framebuffer notifications. If a framebuffer
// exists, v is told its size immediately.
func (c *Client) Attach(v Viewer) {
	for _, existing := range c.viewers {
		if existing == v {
			return
		}
	}
	c.viewers = append(c.viewers, v)
	if c.fb != nil {
		v.FramebufferResized(c.fb.Width(), c.fb.Height())
	}
}

// Detach stops notifications to v.
func (c *Client) Detach(v Viewer) {
	for i, existing := range c.viewers {
		if existing == v {
			c.viewers = append(c.viewers[:i:i], c.viewers[i+1:]...)
			return
		}
	}
}

func (c *Client) resize(width, height int) {
	c.logger.Info("Desktop resized",
		Field{Key: "width", Value: width},
		Field{Key: "height", Value: height})
	c.fb = newFramebuffer(width, height)
	c.notifyResized()
}

func (c *Client) notifyResized() {
	w, h := c.ScreenSize()
	for _, v := range append([]Viewer(nil), c.viewers...) {
		v.FramebufferResized(w, h)
	}
}

func (c *Client) notifyUpdated(r image.Rectangle) {
	for _, v := range append([]Viewer(nil), c.viewers...) {
		v.FramebufferUpdated(r)
	}
}

// requestUpdate asks for the whole screen.
func (c *Client) requestUpdate(incremental bool) error {
	if c.fb == nil {
		return nil
	}
	return c.write("requestUpdate", buildFramebufferUpdateRequest(incremental, 0, 0,
		uint16(c.fb.Width()), uint16(c.fb.Height())))
}

func (c *Client) send(data []byte) error {
	if c.conn == nil {
		return stateError("send", "not connected")
	}
	if c.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(data)
	return err
}

// write sends a client message, dropping the connection on failure.
func (c *Client) write(op string, data []byte) error {
	if err := c.send(data); err != nil {
		return c.fail(op, networkError(op, "failed to send message", err))
	}
	return nil
}
