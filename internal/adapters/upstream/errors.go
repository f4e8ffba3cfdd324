package upstream

import (
	"errors"
	"fmt"
)

// Sentinel kinds for upstream API errors.
var (
	ErrNotFound    = errors.New("upstream resource not found")
	ErrRateLimited = errors.New("upstream rate limit exceeded")
	ErrUnavailable = errors.New("upstream unavailable")
)

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	Service string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Service, e.Code)
}
