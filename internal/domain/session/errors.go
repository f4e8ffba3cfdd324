package session

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by the Engine wraps at most one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrMovieNotFound   = fmt.Errorf("movie %w", ErrNotFound)

	ErrSessionFull      = fmt.Errorf("%w: session is full", ErrConflict)
	ErrNotAllSubmitted  = fmt.Errorf("%w: not all users have submitted preferences", ErrConflict)
	ErrNotMatched       = fmt.Errorf("%w: match has not been computed", ErrConflict)
	ErrVotingIncomplete = fmt.Errorf("%w: voting is not complete", ErrConflict)
	ErrCodeExhausted    = fmt.Errorf("%w: could not allocate a session code", ErrConflict)

	ErrInvalidPreferences = fmt.Errorf("%w: preferences", ErrInvalidInput)

	// ErrCatalogUnavailable is returned when the catalog cannot be read and no
	// snapshot exists. The match is not memoized, so a later call retries.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a state conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsInvalid reports whether err is caused by bad input.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalidInput) }
