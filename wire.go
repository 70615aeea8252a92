// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Client-to-server message types (RFC 6143 section 7.5).
const (
	msgSetPixelFormat           uint8 = 0
	msgSetEncodings             uint8 = 2
	msgFramebufferUpdateRequest uint8 = 3
	msgKeyEvent                 uint8 = 4
	msgPointerEvent             uint8 = 5
)

// needMoreError reports that decoding cannot finish until at least want
// bytes are buffered. It lets the pump skip re-parsing a large message
// after every short read.
type needMoreError struct {
	want int
}

func (e *needMoreError) Error() string {
	return fmt.Sprintf("need %d buffered bytes", e.want)
}

// incomplete reports whether err means the buffered data ends mid
// message, and the buffered size at which decoding is worth retrying
// (0 when unknown).
func incomplete(err error) (want int, ok bool) {
	var nm *needMoreError
	if errors.As(err, &nm) {
		return nm.want, true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, true
	}
	return 0, false
}

// msgReader decodes one server message from the bytes buffered so far.
// Running out of data surfaces as io.EOF, io.ErrUnexpectedEOF or a
// needMoreError, never as a protocol error.
type msgReader struct {
	*bytes.Reader
	data []byte
}

func newMsgReader(b []byte) *msgReader {
	return &msgReader{Reader: bytes.NewReader(b), data: b}
}

// consumed returns how many bytes have been read.
func (r *msgReader) consumed() int {
	return len(r.data) - r.Len()
}

// read decodes a fixed-size big-endian value.
func (r *msgReader) read(v any) error {
	return binary.Read(r, binary.BigEndian, v)
}

// take returns the next n bytes without copying.
func (r *msgReader) take(n int) ([]byte, error) {
	if r.Len() < n {
		return nil, &needMoreError{want: r.consumed() + n}
	}
	start := r.consumed()
	if _, err := r.Seek(int64(n), io.SeekCurrent); err != nil {
		return nil, err
	}
	return r.data[start : start+n : start+n], nil
}

func buildSetPixelFormat(pf PixelFormat) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{msgSetPixelFormat, 0, 0, 0})
	_ = writePixelFormat(&buf, pf)
	return buf.Bytes()
}

func buildSetEncodings(encs []int32) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, struct {
		Type  uint8
		_     uint8
		Count uint16
	}{Type: msgSetEncodings, Count: uint16(len(encs))})
	_ = binary.Write(&buf, binary.BigEndian, encs)
	return buf.Bytes()
}

func buildFramebufferUpdateRequest(incremental bool, x, y, width, height uint16) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, struct {
		Type          uint8
		Incremental   uint8
		X, Y          uint16
		Width, Height uint16
	}{msgFramebufferUpdateRequest, boolByte(incremental), x, y, width, height})
	return buf.Bytes()
}

func buildKeyEvent(keysym uint32, down bool) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, struct {
		Type   uint8
		Down   uint8
		_      uint16
		Keysym uint32
	}{Type: msgKeyEvent, Down: boolByte(down), Keysym: keysym})
	return buf.Bytes()
}

func buildPointerEvent(mask ButtonMask, x, y uint16) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, struct {
		Type uint8
		Mask uint8
		X, Y uint16
	}{msgPointerEvent, uint8(mask), x, y})
	return buf.Bytes()
}
