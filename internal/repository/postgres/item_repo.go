package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/model"
)

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct{ db *DB }

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

const (
	insertItem = `
INSERT INTO items (id, owner_id, title, body, score, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, $5, $5)`

	selectItem = `
SELECT id, owner_id, title, body, score, created_at, updated_at
FROM items WHERE id=$1`

	// viewColumns is shared by every feed projection; left() counts characters.
	viewColumns = `
SELECT i.id, i.title, left(i.body, 50), i.score, i.created_at, u.id, u.username
FROM items i
JOIN users u ON u.id = i.owner_id`

	selectView = viewColumns + `
WHERE i.id=$1`

	pageFirst = viewColumns + `
ORDER BY i.created_at DESC, i.id DESC
LIMIT $1`

	pageAfterKey = viewColumns + `
WHERE (i.created_at, i.id) < ($2, $3)
ORDER BY i.created_at DESC, i.id DESC
LIMIT $1`

	updateTitle = `
UPDATE items SET title=$3, updated_at=now()
WHERE id=$1 AND owner_id=$2
RETURNING id, owner_id, title, body, score, created_at, updated_at`

	deleteItem = `DELETE FROM items WHERE id=$1 AND owner_id=$2`

	selectOwner = `SELECT owner_id FROM items WHERE id=$1`
)

// Create inserts a new item row.
func (r *ItemRepo) Create(ctx context.Context, it model.Item) error {
	_, err := r.db.Pool.Exec(ctx, insertItem, it.ID, it.OwnerID, it.Title, it.Body, it.CreatedAt)
	return mapStoreErr(err)
}

// Get returns a single item by id.
func (r *ItemRepo) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var it model.Item
	err := r.db.Pool.QueryRow(ctx, selectItem, id).
		Scan(&it.ID, &it.OwnerID, &it.Title, &it.Body, &it.Score, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, mapStoreErr(err)
	}
	return &it, nil
}

// View returns the feed projection of a single item.
func (r *ItemRepo) View(ctx context.Context, id uuid.UUID) (model.ItemView, error) {
	v, err := scanView(r.db.Pool.QueryRow(ctx, selectView, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ItemView{}, errs.ErrNotFound
		}
		return model.ItemView{}, mapStoreErr(err)
	}
	return v, nil
}

// ListPage returns up to n items in (created_at, id) descending order.
func (r *ItemRepo) ListPage(ctx context.Context, n int, after *model.Cursor) ([]model.ItemView, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		rows, err = r.db.Pool.Query(ctx, pageFirst, n)
	} else {
		rows, err = r.db.Pool.Query(ctx, pageAfterKey, n, after.CreatedAt, after.ID)
	}
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer rows.Close()

	out := make([]model.ItemView, 0, n)
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, mapStoreErr(err)
		}
		out = append(out, v)
	}
	return out, mapStoreErr(rows.Err())
}

// UpdateTitle changes the title of an owned item.
func (r *ItemRepo) UpdateTitle(ctx context.Context, id, ownerID uuid.UUID, title string) (*model.Item, error) {
	var it model.Item
	err := r.db.Pool.QueryRow(ctx, updateTitle, id, ownerID, title).
		Scan(&it.ID, &it.OwnerID, &it.Title, &it.Body, &it.Score, &it.CreatedAt, &it.UpdatedAt)
	if err == nil {
		return &it, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapStoreErr(err)
	}
	return nil, r.ownershipErr(ctx, id)
}

// Delete removes an owned item; votes go with it via ON DELETE CASCADE.
func (r *ItemRepo) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, deleteItem, id, ownerID)
	if err != nil {
		return mapStoreErr(err)
	}
	if tag.RowsAffected() == 0 {
		return r.ownershipErr(ctx, id)
	}
	return nil
}

// ownershipErr explains why an owner-scoped write matched no rows.
func (r *ItemRepo) ownershipErr(ctx context.Context, id uuid.UUID) error {
	var owner uuid.UUID
	if err := r.db.Pool.QueryRow(ctx, selectOwner, id).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return mapStoreErr(err)
	}
	return errs.ErrForbidden
}

func scanView(row pgx.Row) (model.ItemView, error) {
	var v model.ItemView
	err := row.Scan(&v.ID, &v.Title, &v.BodySnippet, &v.Score, &v.CreatedAt, &v.Owner.ID, &v.Owner.Username)
	return v, err
}
