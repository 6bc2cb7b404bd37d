// Package service contains application services for the feed and the vote ledger.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/model"
	"github.com/and161185/votefeed/internal/repository"
)

// MaxPageSize is the hard server-side ceiling for a page.
const MaxPageSize = 50

// MaxTitleLen bounds item titles, in characters.
const MaxTitleLen = 300

// FeedService defines keyset-paginated reads and owner writes over items.
type FeedService interface {
	// FetchPage returns up to limit items older than cursor (empty = newest).
	FetchPage(ctx context.Context, limit int, cursor string) (model.Page, error)
	// Create publishes a new item owned by actor.
	Create(ctx context.Context, actor model.User, title, body string) (model.ItemView, error)
	// Get returns a single item view.
	Get(ctx context.Context, id uuid.UUID) (model.ItemView, error)
	// UpdateTitle edits the title of an item owned by actorID.
	UpdateTitle(ctx context.Context, actorID, id uuid.UUID, title string) (model.ItemView, error)
	// Delete removes an item owned by actorID.
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

type FeedServiceImpl struct {
	items   repository.ItemRepository
	users   repository.UserRepository
	maxPage int
	now     func() time.Time
}

// NewFeedService constructs FeedService. maxPage may lower the ceiling but never raise it.
func NewFeedService(items repository.ItemRepository, users repository.UserRepository, maxPage int) *FeedServiceImpl {
	if maxPage <= 0 || maxPage > MaxPageSize {
		maxPage = MaxPageSize
	}
	return &FeedServiceImpl{items: items, users: users, maxPage: maxPage, now: time.Now}
}

// FetchPage probes limit+1 rows so hasMore is known without a count query.
func (s *FeedServiceImpl) FetchPage(ctx context.Context, limit int, cursor string) (model.Page, error) {
	if limit <= 0 {
		return model.Page{}, fmt.Errorf("%w: limit must be positive, got %d", errs.ErrInvalidArgument, limit)
	}
	if limit > s.maxPage {
		limit = s.maxPage
	}

	var after *model.Cursor
	if cursor != "" {
		c, err := model.ParseCursor(cursor)
		if err != nil {
			return model.Page{}, err
		}
		after = &c
	}

	rows, err := s.items.ListPage(ctx, limit+1, after)
	if err != nil {
		return model.Page{}, err
	}

	page := model.Page{Items: rows}
	if len(rows) == limit+1 {
		page.Items = rows[:limit]
		page.HasMore = true
	}
	if n := len(page.Items); n > 0 {
		page.NextCursor = model.CursorOf(page.Items[n-1]).String()
	}
	return page, nil
}

// Create validates input, provisions the owner record and stores the item.
// Timestamps are truncated to the store's microsecond precision so that
// cursors built from the returned view match the persisted row.
func (s *FeedServiceImpl) Create(ctx context.Context, actor model.User, title, body string) (model.ItemView, error) {
	if actor.ID == uuid.Nil {
		return model.ItemView{}, errs.ErrUnauthenticated
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return model.ItemView{}, fmt.Errorf("%w: empty title", errs.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return model.ItemView{}, fmt.Errorf("%w: title longer than %d", errs.ErrInvalidArgument, MaxTitleLen)
	}
	owner, err := provision(ctx, s.users, actor)
	if err != nil {
		return model.ItemView{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.ItemView{}, err
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	it := model.Item{ID: id, OwnerID: actor.ID, Title: title, Body: body, CreatedAt: now, UpdatedAt: now}
	if err := s.items.Create(ctx, it); err != nil {
		return model.ItemView{}, err
	}
	return it.View(model.Owner{ID: owner.ID, Username: owner.Username}), nil
}

// Get fetches a single item view.
func (s *FeedServiceImpl) Get(ctx context.Context, id uuid.UUID) (model.ItemView, error) {
	if id == uuid.Nil {
		return model.ItemView{}, fmt.Errorf("%w: empty id", errs.ErrInvalidArgument)
	}
	return s.items.View(ctx, id)
}

// UpdateTitle edits an owned item and returns its fresh view.
func (s *FeedServiceImpl) UpdateTitle(ctx context.Context, actorID, id uuid.UUID, title string) (model.ItemView, error) {
	if actorID == uuid.Nil {
		return model.ItemView{}, errs.ErrUnauthenticated
	}
	title = strings.TrimSpace(title)
	if id == uuid.Nil || title == "" || utf8.RuneCountInString(title) > MaxTitleLen {
		return model.ItemView{}, fmt.Errorf("%w: id/title", errs.ErrInvalidArgument)
	}
	if _, err := s.items.UpdateTitle(ctx, id, actorID, title); err != nil {
		return model.ItemView{}, err
	}
	return s.items.View(ctx, id)
}

// Delete removes an owned item.
func (s *FeedServiceImpl) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == uuid.Nil {
		return errs.ErrUnauthenticated
	}
	if id == uuid.Nil {
		return fmt.Errorf("%w: empty id", errs.ErrInvalidArgument)
	}
	return s.items.Delete(ctx, id, actorID)
}
