package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/model"
)

// VoteRepo implements VoteRepository using PostgreSQL.
type VoteRepo struct{ db *DB }

// NewVoteRepo constructs a vote ledger repository.
func NewVoteRepo(db *DB) *VoteRepo { return &VoteRepo{db: db} }

const (
	lockItem   = `SELECT score FROM items WHERE id=$1 FOR UPDATE`
	insertVote = `
INSERT INTO votes (user_id, item_id, value) VALUES ($1, $2, $3)
ON CONFLICT (user_id, item_id) DO NOTHING`
	selectVote = `SELECT value FROM votes WHERE user_id=$1 AND item_id=$2 FOR UPDATE`
	updateVote = `UPDATE votes SET value=$3, updated_at=now() WHERE user_id=$1 AND item_id=$2`
	bumpScore  = `UPDATE items SET score = score + $2 WHERE id=$1 RETURNING score`
)

// Cast records a vote and composes the score delta inside one transaction.
//
// The item row is locked first, so concurrent votes on the same item are
// serialized and every writer sees the previous committer's vote row.
func (r *VoteRepo) Cast(
	ctx context.Context, userID, itemID uuid.UUID, value int,
) (res model.VoteResult, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return model.VoteResult{}, mapStoreErr(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			err = mapStoreErr(err)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			res, err = model.VoteResult{}, mapStoreErr(e)
		}
	}()

	var score int64
	if err = tx.QueryRow(ctx, lockItem, itemID).Scan(&score); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VoteResult{}, errs.ErrNotFound
		}
		return model.VoteResult{}, err
	}

	// unknown user surfaces here as a foreign-key violation
	tag, err := tx.Exec(ctx, insertVote, userID, itemID, value)
	if err != nil {
		return model.VoteResult{}, err
	}

	prev := 0
	if tag.RowsAffected() == 0 {
		if err = tx.QueryRow(ctx, selectVote, userID, itemID).Scan(&prev); err != nil {
			return model.VoteResult{}, err
		}
	}

	delta := value - prev
	if prev != 0 && delta != 0 {
		if _, err = tx.Exec(ctx, updateVote, userID, itemID, value); err != nil {
			return model.VoteResult{}, err
		}
	}
	if delta != 0 {
		if err = tx.QueryRow(ctx, bumpScore, itemID, delta).Scan(&score); err != nil {
			return model.VoteResult{}, err
		}
	}
	return model.VoteResult{ItemID: itemID, Delta: delta, Score: score}, nil
}
