package driver

import (
	"errors"
	"fmt"
)

// Error codes forming the driver's failure taxonomy.
const (
	ErrCodeNotConnected          = "NOT_CONNECTED"
	ErrCodeUnsupportedCapability = "UNSUPPORTED_CAPABILITY"
	ErrCodeInvalidOperation      = "INVALID_OPERATION"
	ErrCodeConstructionFailure   = "CONSTRUCTION_FAILURE"
	ErrCodeDeliveryFault         = "DELIVERY_FAULT"
)

// Error represents a driver-level error with a taxonomy code. The
// cause chain is preserved: construction failures always surface the
// underlying reason, never a bare code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the taxonomy code of a driver error, or empty for
// any other error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
