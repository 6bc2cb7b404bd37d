package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// PG is a PostgreSQL-backed fixed-window limiter, shared by every server
// replica that talks to the same database.
type PG struct {
	pool   pgxQuerier
	window time.Duration
	max    int
	now    func() time.Time
}

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a limiter allowing max votes per window for each user.
func NewPG(q pgxQuerier, window time.Duration, max int) *PG {
	return &PG{pool: q, window: window, max: max, now: time.Now}
}

// Allow bumps the user's hit counter, starting a new window when the current one expired.
func (l *PG) Allow(ctx context.Context, userID uuid.UUID) (bool, time.Duration, error) {
	const q = `
INSERT INTO vote_limiter (user_id, hits, window_start)
VALUES ($1, 1, now())
ON CONFLICT (user_id) DO UPDATE
SET
  hits = CASE WHEN now() - vote_limiter.window_start > $2::interval THEN 1 ELSE vote_limiter.hits + 1 END,
  window_start = CASE WHEN now() - vote_limiter.window_start > $2::interval THEN now() ELSE vote_limiter.window_start END
RETURNING hits, window_start`
	var (
		hits  int
		start time.Time
	)
	if err := l.pool.QueryRow(ctx, q, userID, l.window).Scan(&hits, &start); err != nil {
		return false, 0, err
	}
	if hits <= l.max {
		return true, 0, nil
	}
	retry := start.Add(l.window).Sub(l.now())
	if retry < 0 {
		retry = 0
	}
	return false, retry, nil
}

// Release gives back one hit of the current window. A window that already
// reset, or an unknown user, is left alone.
func (l *PG) Release(ctx context.Context, userID uuid.UUID) error {
	const q = `
UPDATE vote_limiter SET hits = hits - 1
WHERE user_id = $1 AND hits > 0 AND now() - window_start <= $2::interval
RETURNING hits`
	var hits int
	err := l.pool.QueryRow(ctx, q, userID, l.window).Scan(&hits)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
