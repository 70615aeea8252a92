// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the TCP port of VNC display :0.
const DefaultPort = 5900

// maxDisplayNumber is the largest value after a single colon that is
// read as a display number rather than a port.
const maxDisplayNumber = 99

// Endpoint is a parsed server address ready to be dialled.
type Endpoint struct {
	Network string
	Address string
}

// String returns the endpoint as network:address.
func (e Endpoint) String() string {
	return e.Network + ":" + e.Address
}

// ParseEndpoint parses a server address in any of the forms accepted by
// common VNC viewers:
//
//	host           display 0 (port 5900)
//	host:1         display 1 (port 5901); values up to 99 are displays
//	host:5999      port 5999
//	host::80       port 80, always literal
//	[::1]:2        IPv6 literal, display 2
//	unix:/path     Unix domain socket
//	/path          Unix domain socket
//
// An empty host means localhost.
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Endpoint{}, configurationError("ParseEndpoint", "empty endpoint", nil)
	}

	if path, ok := strings.CutPrefix(s, "unix:"); ok {
		if path == "" {
			return Endpoint{}, configurationError("ParseEndpoint", "empty unix socket path", nil)
		}
		return Endpoint{Network: "unix", Address: path}, nil
	}
	if strings.HasPrefix(s, "/") {
		return Endpoint{Network: "unix", Address: s}, nil
	}

	host, rest := s, ""
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return Endpoint{}, configurationError("ParseEndpoint", "unterminated IPv6 literal in "+strconv.Quote(s), nil)
		}
		host, rest = s[1:end], s[end+1:]
		if rest != "" && rest[0] != ':' {
			return Endpoint{}, configurationError("ParseEndpoint", "unexpected text after IPv6 literal in "+strconv.Quote(s), nil)
		}
	} else if i := strings.IndexByte(s, ':'); i >= 0 {
		host, rest = s[:i], s[i:]
	}
	if host == "" {
		host = "localhost"
	}

	port := DefaultPort
	switch {
	case rest == "":
	case strings.HasPrefix(rest, "::"):
		p, err := parsePort(rest[2:])
		if err != nil {
			return Endpoint{}, err
		}
		port = p
	default:
		p, err := parsePort(rest[1:])
		if err != nil {
			return Endpoint{}, err
		}
		if p <= maxDisplayNumber {
			p += DefaultPort
		}
		port = p
	}

	return Endpoint{Network: "tcp", Address: net.JoinHostPort(host, strconv.Itoa(port))}, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 0 || p > 65535 {
		return 0, configurationError("ParseEndpoint", "invalid port or display "+strconv.Quote(s), err)
	}
	return p, nil
}
