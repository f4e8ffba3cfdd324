// Package repository stores live sessions keyed by code.
package repository

import (
	"context"

	"github.com/trev125/FlickPick/internal/domain/model"
)

// Store provides access to the live session table.
type Store interface {
	// Get returns the session for code.
	// Returns ErrNotFound if the code is unknown.
	Get(ctx context.Context, code string) (*model.Session, error)

	// Insert adds s under s.Code.
	// Returns ErrExists if the code is already taken.
	Insert(ctx context.Context, s *model.Session) error

	// Delete removes the session for code. Deleting an unknown code is a no-op.
	Delete(ctx context.Context, code string) error

	// Range calls fn for each session until fn returns false.
	Range(ctx context.Context, fn func(*model.Session) bool)

	// Count returns the number of live sessions.
	Count(ctx context.Context) int
}
