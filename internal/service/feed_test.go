package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/model"
)

// seed creates n items one second apart, newest last.
func seed(t *testing.T, s *FeedServiceImpl, n int) []model.ItemView {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	actor := model.User{ID: uuid.Must(uuid.NewV4()), Username: "ann"}
	out := make([]model.ItemView, 0, n)
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return ts }
		v, err := s.Create(context.Background(), actor, fmt.Sprintf("item %d", i), "body")
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func newFeed() (*FeedServiceImpl, *memItems, *memUsers) {
	items, users := newMemItems(), &memUsers{}
	return NewFeedService(items, users, 0), items, users
}

func TestNewFeedService_CeilingNeverRaised(t *testing.T) {
	require.Equal(t, MaxPageSize, NewFeedService(nil, nil, 0).maxPage)
	require.Equal(t, MaxPageSize, NewFeedService(nil, nil, 500).maxPage)
	require.Equal(t, 10, NewFeedService(nil, nil, 10).maxPage)
}

func TestFetchPage_InvalidLimit(t *testing.T) {
	s, _, _ := newFeed()
	for _, l := range []int{0, -1} {
		_, err := s.FetchPage(context.Background(), l, "")
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	}
}

func TestFetchPage_MalformedCursor(t *testing.T) {
	s, items, _ := newFeed()
	_, err := s.FetchPage(context.Background(), 10, "yesterday")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	require.Empty(t, items.listCalls)
}

func TestFetchPage_ClampsLimit(t *testing.T) {
	s, items, _ := newFeed()
	seed(t, s, 60)

	p, err := s.FetchPage(context.Background(), 1000, "")
	require.NoError(t, err)
	require.Len(t, p.Items, MaxPageSize)
	require.True(t, p.HasMore)
	require.Equal(t, []int{MaxPageSize + 1}, items.listCalls)
}

func TestFetchPage_FiftyOneItems(t *testing.T) {
	s, _, _ := newFeed()
	all := seed(t, s, 51)
	ctx := context.Background()

	p1, err := s.FetchPage(ctx, 50, "")
	require.NoError(t, err)
	require.Len(t, p1.Items, 50)
	require.True(t, p1.HasMore)
	require.Equal(t, all[50].ID, p1.Items[0].ID)

	p2, err := s.FetchPage(ctx, 50, p1.NextCursor)
	require.NoError(t, err)
	require.Len(t, p2.Items, 1)
	require.False(t, p2.HasMore)
	require.Equal(t, all[0].ID, p2.Items[0].ID)
}

func TestFetchPage_SameMillisecondItemsNotSkipped(t *testing.T) {
	s, _, _ := newFeed()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	actor := model.User{ID: uuid.Must(uuid.NewV4()), Username: "ann"}
	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(i) * 200 * time.Microsecond)
		s.now = func() time.Time { return ts }
		_, err := s.Create(ctx, actor, fmt.Sprintf("item %d", i), "")
		require.NoError(t, err)
	}

	p1, err := s.FetchPage(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, p1.Items, 2)
	require.True(t, p1.HasMore)

	p2, err := s.FetchPage(ctx, 2, p1.NextCursor)
	require.NoError(t, err)
	require.Len(t, p2.Items, 2)
	require.False(t, p2.HasMore)

	last := p1.Items[len(p1.Items)-1]
	_, err = s.FetchPage(ctx, 2, fmt.Sprint(last.CreatedAt.UnixMilli()))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestFetchPage_ChainIsCompleteAndDuplicateFree(t *testing.T) {
	for _, limit := range []int{1, 3, 7, 50} {
		t.Run(fmt.Sprint(limit), func(t *testing.T) {
			s, _, _ := newFeed()
			all := seed(t, s, 23)
			ctx := context.Background()

			var got []uuid.UUID
			seen := map[uuid.UUID]bool{}
			cursor := ""
			for {
				p, err := s.FetchPage(ctx, limit, cursor)
				require.NoError(t, err)
				for _, it := range p.Items {
					require.False(t, seen[it.ID], "duplicate %s", it.ID)
					seen[it.ID] = true
					got = append(got, it.ID)
				}
				if !p.HasMore {
					break
				}
				cursor = p.NextCursor
			}

			require.Len(t, got, len(all))
			for i := range all {
				require.Equal(t, all[len(all)-1-i].ID, got[i])
			}
		})
	}
}

func TestFetchPage_StableUnderInsertAboveCursor(t *testing.T) {
	s, _, _ := newFeed()
	all := seed(t, s, 10)
	ctx := context.Background()

	p1, err := s.FetchPage(ctx, 4, "")
	require.NoError(t, err)

	// a newer item lands between page fetches
	s.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	_, err = s.Create(ctx, model.User{ID: uuid.Must(uuid.NewV4()), Username: "bob"}, "late", "")
	require.NoError(t, err)

	p2, err := s.FetchPage(ctx, 4, p1.NextCursor)
	require.NoError(t, err)
	require.Equal(t, all[5].ID, p2.Items[0].ID)
}

func TestFetchPage_StoreErrorPropagates(t *testing.T) {
	s, items, _ := newFeed()
	items.listErr = fmt.Errorf("%w: pool closed", errs.ErrUnavailable)
	_, err := s.FetchPage(context.Background(), 5, "")
	require.ErrorIs(t, err, errs.ErrUnavailable)
}

func TestFetchPage_EmptyFeed(t *testing.T) {
	s, _, _ := newFeed()
	p, err := s.FetchPage(context.Background(), 5, "")
	require.NoError(t, err)
	require.Empty(t, p.Items)
	require.False(t, p.HasMore)
	require.Empty(t, p.NextCursor)
}

func TestCreate_Validation(t *testing.T) {
	s, _, users := newFeed()
	ctx := context.Background()
	actor := model.User{ID: uuid.Must(uuid.NewV4())}

	_, err := s.Create(ctx, model.User{}, "t", "b")
	require.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = s.Create(ctx, actor, "   ", "b")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	long := make([]rune, MaxTitleLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = s.Create(ctx, actor, string(long), "b")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	v, err := s.Create(ctx, actor, " hello ", "b")
	require.NoError(t, err)
	require.Equal(t, "hello", v.Title)
	require.Equal(t, "user-"+actor.ID.String()[:8], v.Owner.Username)
	require.Contains(t, users.users, actor.ID)
	require.Equal(t, v.CreatedAt, v.CreatedAt.Truncate(time.Microsecond))
}

func TestCreate_EnsureUserErr(t *testing.T) {
	s, items, users := newFeed()
	users.err = errs.ErrAlreadyExists
	_, err := s.Create(context.Background(), model.User{ID: uuid.Must(uuid.NewV4()), Username: "ann"}, "t", "b")
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.Empty(t, items.rows)
}

func TestUpdateTitle_And_Delete_Ownership(t *testing.T) {
	s, _, _ := newFeed()
	ctx := context.Background()
	owner := model.User{ID: uuid.Must(uuid.NewV4()), Username: "ann"}
	other := uuid.Must(uuid.NewV4())

	v, err := s.Create(ctx, owner, "t", "b")
	require.NoError(t, err)

	_, err = s.UpdateTitle(ctx, uuid.Nil, v.ID, "x")
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
	_, err = s.UpdateTitle(ctx, other, v.ID, "x")
	require.ErrorIs(t, err, errs.ErrForbidden)

	got, err := s.UpdateTitle(ctx, owner.ID, v.ID, "renamed")
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Title)

	require.ErrorIs(t, s.Delete(ctx, other, v.ID), errs.ErrForbidden)
	require.NoError(t, s.Delete(ctx, owner.ID, v.ID))

	_, err = s.Get(ctx, v.ID)
	require.True(t, errors.Is(err, errs.ErrNotFound))
	_, err = s.Get(ctx, uuid.Nil)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestCreate_KnownUserKeepsStoredName(t *testing.T) {
	s, _, users := newFeed()
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	users.users = map[uuid.UUID]model.User{id: {ID: id, Username: "ann"}}

	v, err := s.Create(ctx, model.User{ID: id}, "t", "b")
	require.NoError(t, err)
	require.Equal(t, "ann", v.Owner.Username)
	require.Zero(t, users.ensures)

	v, err = s.Create(ctx, model.User{ID: id, Username: "anna"}, "t2", "b")
	require.NoError(t, err)
	require.Equal(t, "anna", v.Owner.Username)
	require.Equal(t, 1, users.ensures)
}
