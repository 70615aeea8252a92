// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"errors"
	"fmt"
)

// ErrorCode classifies the errors returned by the client.
type ErrorCode int

const (
	// ErrProtocol indicates the server sent something the client cannot
	// decode. The connection is torn down.
	ErrProtocol ErrorCode = iota
	// ErrAuthentication indicates the server rejected the credential or
	// offered no usable security type.
	ErrAuthentication
	// ErrEncoding indicates a rectangle used an encoding that was never
	// negotiated.
	ErrEncoding
	// ErrNetwork indicates a socket read or write failed.
	ErrNetwork
	// ErrConfiguration indicates an invalid endpoint or option.
	ErrConfiguration
	// ErrTimeout indicates the handshake did not finish in time.
	ErrTimeout
	// ErrValidation indicates a server-supplied value was out of range.
	ErrValidation
	// ErrUnsupported indicates a protocol version or security type the
	// client does not implement.
	ErrUnsupported
	// ErrConnection indicates Connect failed. The client is back in
	// StateDisconnected with no partial state.
	ErrConnection
	// ErrState indicates an operation was called in the wrong lifecycle
	// state.
	ErrState
	// ErrUnmappedInput indicates a key or character has no keysym. Nothing
	// is sent and the connection is unaffected.
	ErrUnmappedInput
)

// String returns the string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrProtocol:
		return "protocol"
	case ErrAuthentication:
		return "authentication"
	case ErrEncoding:
		return "encoding"
	case ErrNetwork:
		return "network"
	case ErrConfiguration:
		return "configuration"
	case ErrTimeout:
		return "timeout"
	case ErrValidation:
		return "validation"
	case ErrUnsupported:
		return "unsupported"
	case ErrConnection:
		return "connection"
	case ErrState:
		return "state"
	case ErrUnmappedInput:
		return "unmapped input"
	default:
		return "unknown"
	}
}

// VNCError carries the failing operation, a classification code and the
// underlying cause.
type VNCError struct {
	Op      string
	Code    ErrorCode
	Message string
	Err     error
}

// Error returns the formatted error message.
func (e *VNCError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vnc %s: %s: %s: %v", e.Code.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("vnc %s: %s: %s", e.Code.String(), e.Op, e.Message)
}

// Unwrap returns the underlying error for error chain unwrapping.
func (e *VNCError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a VNCError with the same code and operation.
func (e *VNCError) Is(target error) bool {
	var vncErr *VNCError
	if errors.As(target, &vncErr) {
		return e.Code == vncErr.Code && e.Op == vncErr.Op
	}
	return false
}

// NewVNCError creates a new VNCError with the specified parameters.
func NewVNCError(op string, code ErrorCode, message string, err error) *VNCError {
	return &VNCError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapError wraps err with client context. It returns nil if err is nil.
func WrapError(op string, code ErrorCode, message string, err error) error {
	if err == nil {
		return nil
	}
	return NewVNCError(op, code, message, err)
}

// IsVNCError reports whether any error in err's chain is a VNCError. When
// codes are given, one of them must match the code of some VNCError in the
// chain.
func IsVNCError(err error, code ...ErrorCode) bool {
	for err != nil {
		var vncErr *VNCError
		if !errors.As(err, &vncErr) {
			return false
		}
		if len(code) == 0 {
			return true
		}
		for _, c := range code {
			if vncErr.Code == c {
				return true
			}
		}
		err = vncErr.Err
	}
	return false
}

// GetErrorCode returns the code of the outermost VNCError in err's chain,
// or -1 if there is none.
func GetErrorCode(err error) ErrorCode {
	var vncErr *VNCError
	if errors.As(err, &vncErr) {
		return vncErr.Code
	}
	return ErrorCode(-1)
}

func protocolError(op, message string, err error) error {
	return NewVNCError(op, ErrProtocol, message, err)
}

func authenticationError(op, message string, err error) error {
	return NewVNCError(op, ErrAuthentication, message, err)
}

func encodingError(op, message string, err error) error {
	return NewVNCError(op, ErrEncoding, message, err)
}

func networkError(op, message string, err error) error {
	return NewVNCError(op, ErrNetwork, message, err)
}

func configurationError(op, message string, err error) error {
	return NewVNCError(op, ErrConfiguration, message, err)
}

func timeoutError(op, message string, err error) error {
	return NewVNCError(op, ErrTimeout, message, err)
}

func validationError(op, message string, err error) error {
	return NewVNCError(op, ErrValidation, message, err)
}

func unsupportedError(op, message string, err error) error {
	return NewVNCError(op, ErrUnsupported, message, err)
}

func connectionError(op, message string, err error) error {
	return NewVNCError(op, ErrConnection, message, err)
}

func stateError(op, message string) error {
	return NewVNCError(op, ErrState, message, nil)
}

func unmappedInputError(op, message string) error {
	return NewVNCError(op, ErrUnmappedInput, message, nil)
}
