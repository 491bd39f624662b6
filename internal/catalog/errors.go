package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog and asset origin requests.
var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrRateLimited = errors.New("catalog: rate limited by server")
	ErrBadRequest  = errors.New("catalog: bad request")
	ErrServer      = errors.New("catalog: server error")
	ErrTooLarge    = errors.New("catalog: payload too large")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op     string // Operation: "defindexes", "paintindexes", "floatlist", "variant", "asset"
	Target string // Query or URL, if applicable
	Err    error
}

func (e *Error) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("catalog %s [%s]: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, target string, err error) error {
	return &Error{
		Op:     op,
		Target: target,
		Err:    err,
	}
}

// StatusError reports an unexpected HTTP status that maps to no sentinel.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
