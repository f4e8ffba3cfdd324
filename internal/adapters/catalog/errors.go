package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrUnavailable     = errors.New("catalog unavailable")
	ErrSectionNotFound = errors.New("library section not found")
	ErrEmptyCatalog    = errors.New("catalog has no movies")
)
