package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Ensure inserts the user, or refreshes the username if the id is known.
func (r *UserRepo) Ensure(ctx context.Context, u model.User) error {
	const q = `
INSERT INTO users (id, username)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username
WHERE users.username <> EXCLUDED.username`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Username)
	if isUniqueViolation(err) {
		return fmt.Errorf("username %q: %w", u.Username, errs.ErrAlreadyExists)
	}
	return mapStoreErr(err)
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT id, username, created_at FROM users WHERE id=$1`
	var u model.User
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, mapStoreErr(err)
	}
	return &u, nil
}
