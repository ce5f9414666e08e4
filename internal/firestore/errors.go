package firestore

import (
	"errors"
	"fmt"
)

// RemoteError reports a failed call to the document store: a transport
// failure, a non-2xx status, an error payload or an undecodable body.
type RemoteError struct {
	// Op is the reader operation that failed ("fetch_current", "fetch_history").
	Op string

	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int

	// Status is Firestore's canonical error status (e.g. "PERMISSION_DENIED").
	Status string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	switch {
	case e.StatusCode != 0 && e.Status != "":
		return fmt.Sprintf("%s: %s (http %d, %s)", e.Op, msg, e.StatusCode, e.Status)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (http %d)", e.Op, msg, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemoteError returns true if err is or wraps a *RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// apiError is the error payload Firestore returns.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
