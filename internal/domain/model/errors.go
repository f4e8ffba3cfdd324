package model

import "errors"

// Sentinel kinds for preference validation.
var (
	ErrInvalidRange     = errors.New("invalid range")
	ErrInvalidThreshold = errors.New("invalid rating threshold")
	ErrInvalidGenre     = errors.New("invalid genre")
)
