// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/votefeed/internal/model"
)

// UserRepository provides the owner records referenced by items and votes.
type UserRepository interface {
	// Ensure inserts the user or refreshes its username.
	Ensure(ctx context.Context, u model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}
