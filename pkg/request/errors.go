package request

import "errors"

var (
	// ErrInternalServer is returned to the client when a handler panics or
	// fails in a way that must not leak internal detail.
	ErrInternalServer = errors.New("internal server error")

	// ErrUnauthorized is returned to the client when a session is missing,
	// expired, or lacks the required privilege.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTooManyRequests is returned to the client when the rate limit is hit.
	ErrTooManyRequests = errors.New("too many requests")
)
