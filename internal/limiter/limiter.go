// Package limiter throttles how many votes a single user may cast per time window.
package limiter

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Limiter controls vote throughput per user.
type Limiter interface {
	// Allow consumes one unit of the user's budget. When the budget is
	// exhausted it reports false and how long until the window resets.
	Allow(ctx context.Context, userID uuid.UUID) (bool, time.Duration, error)
	// Release returns one unit consumed by Allow for a vote that was not recorded.
	Release(ctx context.Context, userID uuid.UUID) error
}

// Unlimited never throttles.
type Unlimited struct{}

// Allow always permits the vote.
func (Unlimited) Allow(context.Context, uuid.UUID) (bool, time.Duration, error) { return true, 0, nil }

// Release is a no-op.
func (Unlimited) Release(context.Context, uuid.UUID) error { return nil }
