package apiclient

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a call failed
type ErrorKind int

const (
	// KindRequest means the request could not be built and was never sent
	KindRequest ErrorKind = iota
	// KindNoResponse means the request was sent but no response arrived
	KindNoResponse
	// KindStatus means the server answered with a non-2xx status
	KindStatus
	// KindAuthExpired means the server answered 401; the session has been torn down
	KindAuthExpired
)

func (k ErrorKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNoResponse:
		return "no-response"
	case KindStatus:
		return "status"
	case KindAuthExpired:
		return "auth-expired"
	}
	return "unknown"
}

// fallbackMessage is shown when a failed response carries no message
const fallbackMessage = "server error"

// Error is returned by Client for every failed call. Message is the text the
// server sent and is empty when the body had none.
type Error struct {
	Kind    ErrorKind
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *Error) message() string {
	if e.Message == "" {
		return fallbackMessage
	}
	return e.Message
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus, KindAuthExpired:
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.message())
	case KindNoResponse:
		return fmt.Sprintf("%s %s: no response from server: %v", e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Notice renders the error as a short user-facing line
func (e *Error) Notice() string {
	switch e.Kind {
	case KindStatus, KindAuthExpired:
		return fmt.Sprintf("Error %d: %s", e.Status, e.message())
	case KindNoResponse:
		return "No response from server. Check that the backend is running."
	default:
		return fmt.Sprintf("Error: %v", e.Err)
	}
}

func kindOf(err error) (ErrorKind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

// IsNoResponse reports whether err is a transport failure with no reply
func IsNoResponse(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNoResponse
}

// IsAuthExpired reports whether err came from a 401
func IsAuthExpired(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAuthExpired
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
