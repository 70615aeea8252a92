// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"fmt"
	"image"
)

// Server-to-client message types (RFC 6143 section 7.6).
const (
	msgFramebufferUpdate   uint8 = 0
	msgSetColorMapEntries  uint8 = 1
	msgBell                uint8 = 2
	msgServerCutText       uint8 = 3
	maxRectanglesPerUpdate       = 10000
)

// ServerMessage is one decoded server-to-client message. Read is called
// after the message type byte has been consumed.
type ServerMessage interface {
	Type() uint8
	Read(c *Client, r *msgReader) (ServerMessage, error)

	handle(c *Client) error
}

// serverMessages returns the decoders for every message the client
// understands, keyed by type.
func serverMessages() map[uint8]ServerMessage {
	msgs := map[uint8]ServerMessage{}
	for _, m := range []ServerMessage{
		&FramebufferUpdateMessage{},
		&SetColorMapEntriesMessage{},
		&BellMessage{},
		&ServerCutTextMessage{},
	} {
		msgs[m.Type()] = m
	}
	return msgs
}

// Rectangle is one rectangle of a FramebufferUpdate.
type Rectangle struct {
	X, Y          uint16
	Width, Height uint16
	Enc           Encoding
}

// Bounds returns the rectangle in framebuffer coordinates.
func (r *Rectangle) Bounds() image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.X)+int(r.Width), int(r.Y)+int(r.Height))
}

// FramebufferUpdateMessage carries changed screen areas and, through the
// DesktopSize pseudo-encoding, geometry changes.
type FramebufferUpdateMessage struct {
	Rectangles []Rectangle
}

// Type returns the FramebufferUpdate message type.
func (*FramebufferUpdateMessage) Type() uint8 {
	return msgFramebufferUpdate
}

// Read decodes every rectangle. Pixel rectangles are checked against the
// framebuffer size in effect at their position in the message, which a
// preceding DesktopSize rectangle may have changed.
func (*FramebufferUpdateMessage) Read(c *Client, r *msgReader) (ServerMessage, error) {
	var header struct {
		_     uint8
		Count uint16
	}
	if err := r.read(&header); err != nil {
		return nil, err
	}
	if header.Count > maxRectanglesPerUpdate {
		return nil, protocolError("FramebufferUpdateMessage.Read",
			fmt.Sprintf("too many rectangles: %d", header.Count), nil)
	}

	var fbW, fbH uint16
	if c.fb != nil {
		fbW, fbH = uint16(c.fb.Width()), uint16(c.fb.Height())
	}

	rects := make([]Rectangle, 0, header.Count)
	for i := 0; i < int(header.Count); i++ {
		var rh struct {
			X, Y, Width, Height uint16
			Encoding            int32
		}
		if err := r.read(&rh); err != nil {
			return nil, err
		}
		rect := Rectangle{X: rh.X, Y: rh.Y, Width: rh.Width, Height: rh.Height}

		proto, ok := c.encodings[rh.Encoding]
		if !ok {
			return nil, encodingError("FramebufferUpdateMessage.Read",
				fmt.Sprintf("rectangle %d uses unnegotiated encoding %d", i, rh.Encoding), nil)
		}
		if _, pseudo := proto.(PseudoEncoding); !pseudo {
			if err := validateRectangle(rect.X, rect.Y, rect.Width, rect.Height, fbW, fbH); err != nil {
				return nil, protocolError("FramebufferUpdateMessage.Read",
					fmt.Sprintf("rectangle %d outside framebuffer", i), err)
			}
		}

		enc, err := proto.Read(c, &rect, r)
		if err != nil {
			return nil, err
		}
		if ds, ok := enc.(*DesktopSizePseudoEncoding); ok {
			fbW, fbH = ds.Width, ds.Height
		}
		rect.Enc = enc
		rects = append(rects, rect)
	}
	return &FramebufferUpdateMessage{Rectangles: rects}, nil
}

func (m *FramebufferUpdateMessage) handle(c *Client) error {
	resized := false
	for i := range m.Rectangles {
		rect := &m.Rectangles[i]
		if err := rect.Enc.Apply(c, rect); err != nil {
			return err
		}
		// A viewer may have disconnected us from its notification.
		if c.state != StateConnected {
			return nil
		}
		if _, ok := rect.Enc.(*DesktopSizePseudoEncoding); ok {
			resized = true
		}
	}
	// A resize invalidates everything; otherwise ask for changes only.
	return c.requestUpdate(!resized)
}

// SetColorMapEntriesMessage updates a colour map. The client always
// negotiates true colour, so the entries are decoded and dropped.
type SetColorMapEntriesMessage struct {
	FirstColor uint16
	NumColors  uint16
}

// Type returns the SetColorMapEntries message type.
func (*SetColorMapEntriesMessage) Type() uint8 {
	return msgSetColorMapEntries
}

// Read decodes the header and skips the colour entries.
func (*SetColorMapEntriesMessage) Read(c *Client, r *msgReader) (ServerMessage, error) {
	var header struct {
		_          uint8
		FirstColor uint16
		NumColors  uint16
	}
	if err := r.read(&header); err != nil {
		return nil, err
	}
	if _, err := r.take(int(header.NumColors) * 6); err != nil {
		return nil, err
	}
	return &SetColorMapEntriesMessage{FirstColor: header.FirstColor, NumColors: header.NumColors}, nil
}

func (m *SetColorMapEntriesMessage) handle(c *Client) error {
	c.logger.Debug("Ignoring colour map entries in true colour mode",
		Field{Key: "first", Value: m.FirstColor},
		Field{Key: "count", Value: m.NumColors})
	return nil
}

// BellMessage asks the client to ring its bell.
type BellMessage struct{}

// Type returns the Bell message type.
func (*BellMessage) Type() uint8 {
	return msgBell
}

// Read has no payload to decode.
func (*BellMessage) Read(*Client, *msgReader) (ServerMessage, error) {
	return &BellMessage{}, nil
}

func (*BellMessage) handle(c *Client) error {
	c.logger.Debug("Bell")
	if c.config.BellHandler != nil {
		c.config.BellHandler()
	}
	return nil
}

// ServerCutTextMessage carries the server's clipboard. Clipboard
// integration is not provided, so only the length is kept.
type ServerCutTextMessage struct {
	Length uint32
}

// Type returns the ServerCutText message type.
func (*ServerCutTextMessage) Type() uint8 {
	return msgServerCutText
}

// Read skips the Latin-1 text.
func (*ServerCutTextMessage) Read(c *Client, r *msgReader) (ServerMessage, error) {
	var header struct {
		_      [3]uint8
		Length uint32
	}
	if err := r.read(&header); err != nil {
		return nil, err
	}
	if err := validateLength("cut text", header.Length, maxCutTextLength); err != nil {
		return nil, protocolError("ServerCutTextMessage.Read", "cut text too long", err)
	}
	if _, err := r.take(int(header.Length)); err != nil {
		return nil, err
	}
	return &ServerCutTextMessage{Length: header.Length}, nil
}

func (m *ServerCutTextMessage) handle(c *Client) error {
	c.logger.Debug("Discarding server cut text", Field{Key: "length", Value: m.Length})
	return nil
}
