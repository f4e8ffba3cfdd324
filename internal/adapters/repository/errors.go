package repository

import "errors"

// Sentinel kinds for session store errors.
var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session code already in use")
)
