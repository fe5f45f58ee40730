package api

import (
	"fmt"

	apperrors "github.com/jrsteele09/storefront-admin/internal/errors"
	"github.com/tidwall/gjson"
)

// nested payload paths searched, in order, for a human readable message
var messagePaths = []string{"message", "error.message", "error"}

// Error is returned when a call fails below the envelope level: the request never
// completed, or the response body was not a storefront envelope.
type Error struct {
	Op         string
	StatusCode int    // zero when no response was received
	Body       []byte // raw response payload, if any
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[api %s] status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("[api %s] %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Succeeded reports whether the payload claimed success even though it could not be decoded
func (e *Error) Succeeded() bool {
	return len(e.Body) > 0 && gjson.GetBytes(e.Body, "success").Type == gjson.True
}

// Message extracts a best-effort message from the response payload; empty when there is
// none or when the payload is a success envelope.
func (e *Error) Message() string {
	if len(e.Body) == 0 || !gjson.ValidBytes(e.Body) || e.Succeeded() {
		return ""
	}
	for _, path := range messagePaths {
		if r := gjson.GetBytes(e.Body, path); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// ErrorMessage returns the nested payload message of err when it is an *Error
func ErrorMessage(err error) string {
	var apiErr *Error
	if apperrors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return ""
}

// IsUndecodableSuccess reports whether err is a success envelope whose data did not decode
func IsUndecodableSuccess(err error) bool {
	var apiErr *Error
	return apperrors.As(err, &apiErr) && apiErr.Succeeded()
}
