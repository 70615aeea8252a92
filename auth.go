// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"fmt"
	"io"
	"net"
)

// Security types from RFC 6143 section 7.1.2.
const (
	SecurityTypeInvalid uint8 = 0
	SecurityTypeNone    uint8 = 1
	SecurityTypeVNCAuth uint8 = 2
)

// ClientAuth is one security type the client can complete.
type ClientAuth interface {
	SecurityType() uint8
	Handshake(ctx context.Context, conn net.Conn) error
	String() string
}

// ClientAuthNone implements security type None.
type ClientAuthNone struct{}

// SecurityType returns SecurityTypeNone.
func (*ClientAuthNone) SecurityType() uint8 { return SecurityTypeNone }

// Handshake has nothing to exchange.
func (*ClientAuthNone) Handshake(ctx context.Context, _ net.Conn) error {
	if err := ctx.Err(); err != nil {
		return timeoutError("ClientAuthNone.Handshake", "authentication cancelled", err)
	}
	return nil
}

func (*ClientAuthNone) String() string { return "None" }

// PasswordAuth implements VNC Authentication. The credential callback is
// consulted once for every challenge the server sends, so the password is
// only materialised for the duration of one response.
type PasswordAuth struct {
	credential func() string
	logger     Logger
}

// NewPasswordAuth returns VNC Authentication backed by credential.
func NewPasswordAuth(credential func() string) *PasswordAuth {
	return &PasswordAuth{credential: credential}
}

// SecurityType returns SecurityTypeVNCAuth.
func (*PasswordAuth) SecurityType() uint8 { return SecurityTypeVNCAuth }

func (*PasswordAuth) String() string { return "VNC Password" }

// SetLogger sets the logger used during the handshake.
func (p *PasswordAuth) SetLogger(logger Logger) { p.logger = logger }

// Handshake reads the challenge and writes the DES response.
func (p *PasswordAuth) Handshake(ctx context.Context, conn net.Conn) error {
	if err := ctx.Err(); err != nil {
		return timeoutError("PasswordAuth.Handshake", "authentication cancelled", err)
	}
	logger := p.logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	challenge := make([]byte, VNCChallengeSize)
	defer clearBytes(challenge)
	if _, err := io.ReadFull(conn, challenge); err != nil {
		return networkError("PasswordAuth.Handshake", "failed to read authentication challenge", err)
	}

	var password string
	if p.credential != nil {
		password = p.credential()
	}
	if password == "" {
		logger.Warn("Empty password for VNC authentication")
	} else if len(password) > VNCMaxPasswordLength {
		logger.Warn("Password longer than VNC maximum, only the first 8 bytes are used",
			Field{Key: "password_length", Value: len(password)})
	}

	response, err := encryptVNCChallenge(password, challenge)
	if err != nil {
		return err
	}
	defer clearBytes(response)

	if _, err := conn.Write(response); err != nil {
		return networkError("PasswordAuth.Handshake", "failed to send encrypted password", err)
	}
	logger.Debug("Sent VNC authentication response")
	return nil
}

// selectAuth returns the first method in preference order that the server
// offers.
func selectAuth(offered []uint8, methods []ClientAuth) (ClientAuth, error) {
	for _, m := range methods {
		for _, t := range offered {
			if m.SecurityType() == t {
				return m, nil
			}
		}
	}
	return nil, authenticationError("selectAuth",
		fmt.Sprintf("no supported security type offered by server: %v", offered), nil)
}

// authMethods returns the methods to offer for a credential. A non-empty
// password prefers VNC Authentication; otherwise None is tried first.
func authMethods(password string) []ClientAuth {
	pw := NewPasswordAuth(func() string { return password })
	if password != "" {
		return []ClientAuth{pw, &ClientAuthNone{}}
	}
	return []ClientAuth{&ClientAuthNone{}, pw}
}
