package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/votefeed/internal/model"
)

// VoteRepository is the durable vote ledger.
type VoteRepository interface {
	// Cast records value for (userID, itemID) and applies the resulting delta
	// to the item's score in the same transaction.
	Cast(ctx context.Context, userID, itemID uuid.UUID, value int) (model.VoteResult, error)
}
