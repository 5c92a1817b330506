package client

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the platform
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrLoginFailed is returned by [Builder.BuildAsync] when the token is rejected.
	ErrLoginFailed = errors.New("login failed")
	// ErrInvalidListener is returned when a registered listener does not
	// satisfy the capability contract of the event manager.
	ErrInvalidListener = errors.New("invalid event listener")
	// ErrClientShutdown is returned by blocking calls once the [Client] has shut down.
	ErrClientShutdown = errors.New("client is shut down")
	// ErrNotConnected is returned when a gateway frame is sent without a live socket.
	ErrNotConnected = errors.New("gateway not connected")
)

// UnexpectedStatusError is returned when the HTTP response status code
// does not match the expected value.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// CloseError is returned when the gateway closes the socket.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("gateway closed: %d %s", e.Code, e.Reason)
}

// Fatal reports whether the close code forbids reconnecting.
func (e *CloseError) Fatal() bool {
	switch e.Code {
	case closeAuthenticationFailed, closeInvalidShard, closeShardingRequired,
		closeInvalidAPIVersion, closeInvalidIntents, closeDisallowedIntents:
		return true
	default:
		return false
	}
}

// invalidatesSession reports whether a resume attempt is pointless after this close.
func (e *CloseError) invalidatesSession() bool {
	switch e.Code {
	case closeNormal, closeGoingAway, closeInvalidSeq, closeSessionTimedOut:
		return true
	default:
		return false
	}
}

// Gateway close codes.
const (
	closeNormal               = 1000
	closeGoingAway            = 1001
	closeUnknownError         = 4000
	closeAuthenticationFailed = 4004
	closeInvalidSeq           = 4007
	closeSessionTimedOut      = 4009
	closeInvalidShard         = 4010
	closeShardingRequired     = 4011
	closeInvalidAPIVersion    = 4012
	closeInvalidIntents       = 4013
	closeDisallowedIntents    = 4014
)
