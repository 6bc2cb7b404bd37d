package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/votefeed/internal/model"
)

// ItemRepository provides keyset-ordered access to feed items.
type ItemRepository interface {
	// Create inserts a new item with score 0.
	Create(ctx context.Context, it model.Item) error

	// Get returns a single item by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)

	// View returns the feed projection of a single item.
	View(ctx context.Context, id uuid.UUID) (model.ItemView, error)

	// ListPage returns up to n items ordered by (created_at, id) descending,
	// strictly after the cursor when one is given.
	ListPage(ctx context.Context, n int, after *model.Cursor) ([]model.ItemView, error)

	// UpdateTitle changes the title of an item owned by ownerID.
	UpdateTitle(ctx context.Context, id, ownerID uuid.UUID, title string) (*model.Item, error)

	// Delete removes an item owned by ownerID together with its votes.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}
