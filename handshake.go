// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const pvLen = 12

// parseProtocolVersion parses a VNC protocol version string.
func parseProtocolVersion(pv []byte) (uint, uint, error) {
	if err := validateProtocolVersion(pv); err != nil {
		return 0, 0, protocolError("parseProtocolVersion", "server sent invalid protocol version", err)
	}

	var major, minor uint
	if n, err := fmt.Sscanf(string(pv), "RFB %d.%d\n", &major, &minor); n != 2 || err != nil {
		return 0, 0, protocolError("parseProtocolVersion", "failed to parse protocol version", err)
	}
	return major, minor, nil
}

// negotiateMinor picks the highest version the client speaks that does
// not exceed the server's.
func negotiateMinor(serverMinor uint) uint {
	switch {
	case serverMinor >= 8:
		return 8
	case serverMinor == 7:
		return 7
	default:
		return 3
	}
}

// handshake runs the RFB opening (RFC 6143 section 7.1 and 7.3) and
// returns the initial framebuffer size.
func (c *Client) handshake(ctx context.Context, conn net.Conn, methods []ClientAuth) (width, height uint16, err error) {
	var pv [pvLen]byte
	if _, err := io.ReadFull(conn, pv[:]); err != nil {
		return 0, 0, networkError("handshake", "failed to read protocol version from server", err)
	}
	major, serverMinor, err := parseProtocolVersion(pv[:])
	if err != nil {
		return 0, 0, err
	}
	if major != 3 {
		return 0, 0, unsupportedError("handshake", fmt.Sprintf("unsupported protocol version %d.%d", major, serverMinor), nil)
	}
	minor := negotiateMinor(serverMinor)
	c.logger.Debug("Negotiated protocol version",
		Field{Key: "server", Value: fmt.Sprintf("%d.%d", major, serverMinor)},
		Field{Key: "client", Value: fmt.Sprintf("3.%d", minor)})
	if _, err := fmt.Fprintf(conn, "RFB 003.%03d\n", minor); err != nil {
		return 0, 0, networkError("handshake", "failed to send protocol version", err)
	}

	auth, err := c.negotiateSecurity(conn, minor, methods)
	if err != nil {
		return 0, 0, err
	}
	c.logger.Debug("Authenticating", Field{Key: "method", Value: auth.String()})
	if err := auth.Handshake(ctx, conn); err != nil {
		return 0, 0, err
	}

	// 3.3 and 3.7 skip SecurityResult for None.
	if minor >= 8 || auth.SecurityType() != SecurityTypeNone {
		var result uint32
		if err := binary.Read(conn, binary.BigEndian, &result); err != nil {
			return 0, 0, networkError("handshake", "failed to read security result", err)
		}
		if result != 0 {
			reason := "authentication failed"
			if minor >= 8 {
				reason = c.readReason(conn)
			}
			return 0, 0, authenticationError("handshake", reason, nil)
		}
	}

	// ClientInit
	if _, err := conn.Write([]byte{boolByte(!c.config.Exclusive)}); err != nil {
		return 0, 0, networkError("handshake", "failed to send client init", err)
	}

	// ServerInit
	var size struct{ Width, Height uint16 }
	if err := binary.Read(conn, binary.BigEndian, &size); err != nil {
		return 0, 0, networkError("handshake", "failed to read server init", err)
	}
	if err := validateFramebufferSize(size.Width, size.Height); err != nil {
		return 0, 0, protocolError("handshake", "server announced an invalid framebuffer", err)
	}
	pf, err := readPixelFormat(conn)
	if err != nil {
		return 0, 0, networkError("handshake", "failed to read server pixel format", err)
	}
	if err := pf.Validate(); err != nil {
		c.logger.Warn("Server pixel format is unusual, overriding it", Field{Key: "error", Value: err})
	}

	var nameLen uint32
	if err := binary.Read(conn, binary.BigEndian, &nameLen); err != nil {
		return 0, 0, networkError("handshake", "failed to read desktop name length", err)
	}
	if err := validateLength("desktop name", nameLen, maxDesktopNameLength); err != nil {
		return 0, 0, protocolError("handshake", "desktop name too long", err)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(conn, name); err != nil {
		return 0, 0, networkError("handshake", "failed to read desktop name", err)
	}

	c.minorVersion = minor
	c.serverFormat = pf
	c.desktopName = sanitizeText(name)
	return size.Width, size.Height, nil
}

// negotiateSecurity reads the server's security offer and picks a method.
func (c *Client) negotiateSecurity(conn net.Conn, minor uint, methods []ClientAuth) (ClientAuth, error) {
	if minor == 3 {
		// 3.3: the server decides and sends a u32.
		var secType uint32
		if err := binary.Read(conn, binary.BigEndian, &secType); err != nil {
			return nil, networkError("handshake", "failed to read security type", err)
		}
		if secType == uint32(SecurityTypeInvalid) {
			return nil, authenticationError("handshake", "server refused connection: "+c.readReason(conn), nil)
		}
		if secType > 0xff {
			return nil, unsupportedError("handshake", fmt.Sprintf("unknown security type %d", secType), nil)
		}
		return selectAuth([]uint8{uint8(secType)}, methods)
	}

	var count uint8
	if err := binary.Read(conn, binary.BigEndian, &count); err != nil {
		return nil, networkError("handshake", "failed to read number of security types", err)
	}
	if count == 0 {
		return nil, authenticationError("handshake", "server refused connection: "+c.readReason(conn), nil)
	}
	offered := make([]uint8, count)
	if _, err := io.ReadFull(conn, offered); err != nil {
		return nil, networkError("handshake", "failed to read security types", err)
	}
	c.logger.Debug("Received security types", Field{Key: "types", Value: offered})

	auth, err := selectAuth(offered, methods)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write([]byte{auth.SecurityType()}); err != nil {
		return nil, networkError("handshake", "failed to send security type", err)
	}
	return auth, nil
}

// readReason reads a length-prefixed failure reason. Read errors are
// folded into the returned text.
func (c *Client) readReason(r io.Reader) string {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "<failed to read reason>"
	}
	if err := validateLength("reason", n, maxReasonLength); err != nil {
		c.logger.Warn("Server sent an oversized reason", Field{Key: "length", Value: n})
		return "<reason too long>"
	}
	reason := make([]byte, n)
	if _, err := io.ReadFull(r, reason); err != nil {
		return "<failed to read reason>"
	}
	return sanitizeText(reason)
}
