// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits applied to server-supplied sizes.
const (
	maxFramebufferDimension = 16384
	maxDesktopNameLength    = 64 * 1024
	maxReasonLength         = 64 * 1024
	maxCutTextLength        = 10 * 1024 * 1024
)

// validateProtocolVersion checks the 12-byte "RFB xxx.yyy\n" greeting.
func validateProtocolVersion(version []byte) error {
	if len(version) != 12 {
		return validationError("validateProtocolVersion",
			fmt.Sprintf("protocol version must be exactly 12 bytes, got %d", len(version)), nil)
	}
	if string(version[:4]) != "RFB " || version[7] != '.' || version[11] != '\n' {
		return validationError("validateProtocolVersion",
			fmt.Sprintf("malformed protocol version %q", version), nil)
	}
	for i, b := range version[4:11] {
		if i == 3 {
			continue
		}
		if b < '0' || b > '9' {
			return validationError("validateProtocolVersion",
				fmt.Sprintf("non-digit in protocol version %q", version), nil)
		}
	}
	return nil
}

// validateFramebufferSize rejects empty and absurdly large screens.
func validateFramebufferSize(width, height uint16) error {
	if width == 0 || height == 0 {
		return validationError("validateFramebufferSize",
			fmt.Sprintf("framebuffer dimensions cannot be zero: %dx%d", width, height), nil)
	}
	if width > maxFramebufferDimension || height > maxFramebufferDimension {
		return validationError("validateFramebufferSize",
			fmt.Sprintf("framebuffer dimensions too large: %dx%d (max %d)", width, height, maxFramebufferDimension), nil)
	}
	return nil
}

// validateRectangle checks that a rectangle lies inside the framebuffer.
// Empty rectangles are allowed.
func validateRectangle(x, y, width, height, fbWidth, fbHeight uint16) error {
	if int(x)+int(width) > int(fbWidth) || int(y)+int(height) > int(fbHeight) {
		return validationError("validateRectangle",
			fmt.Sprintf("rectangle (%d,%d %dx%d) exceeds framebuffer %dx%d", x, y, width, height, fbWidth, fbHeight), nil)
	}
	return nil
}

// validateLength bounds a server-supplied length prefix.
func validateLength(what string, length, maxLength uint32) error {
	if length > maxLength {
		return validationError("validateLength",
			fmt.Sprintf("%s length %d exceeds maximum %d", what, length, maxLength), nil)
	}
	return nil
}

// sanitizeText makes server-supplied text safe to log. Invalid UTF-8 and
// non-printable runes are replaced.
func sanitizeText(b []byte) string {
	if utf8.Valid(b) {
		clean := true
		for _, r := range string(b) {
			if !unicode.IsPrint(r) {
				clean = false
				break
			}
		}
		if clean {
			return string(b)
		}
	}
	var sb strings.Builder
	for len(b) > 0 {
		r, n := utf8.DecodeRune(b)
		b = b[n:]
		switch {
		case r == utf8.RuneError:
			sb.WriteRune(unicode.ReplacementChar)
		case unicode.IsPrint(r):
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
