package service

import (
	"context"
	"sort"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/model"
	"github.com/and161185/votefeed/internal/repository"
)

// memItems keeps items sorted newest-first and applies the same keyset
// predicate as the SQL repository.
type memItems struct {
	mu     sync.Mutex
	rows   []model.Item
	owners map[uuid.UUID]string

	listCalls []int
	listErr   error
}

var _ repository.ItemRepository = (*memItems)(nil)

func newMemItems() *memItems { return &memItems{owners: map[uuid.UUID]string{}} }

func (m *memItems) Create(_ context.Context, it model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, it)
	sort.Slice(m.rows, func(i, j int) bool { return newer(m.rows[i], m.rows[j]) })
	return nil
}

func newer(a, b model.Item) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

func (m *memItems) Get(_ context.Context, id uuid.UUID) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			it := m.rows[i]
			return &it, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *memItems) View(ctx context.Context, id uuid.UUID) (model.ItemView, error) {
	it, err := m.Get(ctx, id)
	if err != nil {
		return model.ItemView{}, err
	}
	return it.View(model.Owner{ID: it.OwnerID, Username: m.owners[it.OwnerID]}), nil
}

func (m *memItems) ListPage(_ context.Context, n int, after *model.Cursor) ([]model.ItemView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls = append(m.listCalls, n)
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []model.ItemView{}
	for _, it := range m.rows {
		if after != nil {
			bound := model.Item{CreatedAt: after.CreatedAt, ID: after.ID}
			if !newer(bound, it) {
				continue
			}
		}
		out = append(out, it.View(model.Owner{ID: it.OwnerID, Username: m.owners[it.OwnerID]}))
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func (m *memItems) UpdateTitle(_ context.Context, id, ownerID uuid.UUID, title string) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID != id {
			continue
		}
		if m.rows[i].OwnerID != ownerID {
			return nil, errs.ErrForbidden
		}
		m.rows[i].Title = title
		it := m.rows[i]
		return &it, nil
	}
	return nil, errs.ErrNotFound
}

func (m *memItems) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID != id {
			continue
		}
		if m.rows[i].OwnerID != ownerID {
			return errs.ErrForbidden
		}
		m.rows = append(m.rows[:i], m.rows[i+1:]...)
		return nil
	}
	return errs.ErrNotFound
}

type memUsers struct {
	mu      sync.Mutex
	users   map[uuid.UUID]model.User
	err     error
	ensures int
}

var _ repository.UserRepository = (*memUsers)(nil)

func (m *memUsers) Ensure(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensures++
	if m.err != nil {
		return m.err
	}
	if m.users == nil {
		m.users = map[uuid.UUID]model.User{}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// memLedger serializes casts on one mutex, standing in for the item row lock.
type memLedger struct {
	mu     sync.Mutex
	votes  map[[2]uuid.UUID]int
	scores map[uuid.UUID]int64
	users  *memUsers // when set, votes reference it like the users foreign key

	conflicts int // number of leading calls that fail with ErrConflict
	calls     int
}

var _ repository.VoteRepository = (*memLedger)(nil)

func newMemLedger(items ...uuid.UUID) *memLedger {
	l := &memLedger{votes: map[[2]uuid.UUID]int{}, scores: map[uuid.UUID]int64{}}
	for _, id := range items {
		l.scores[id] = 0
	}
	return l
}

func (l *memLedger) Cast(_ context.Context, userID, itemID uuid.UUID, value int) (model.VoteResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.conflicts > 0 {
		l.conflicts--
		return model.VoteResult{}, errs.ErrConflict
	}
	score, ok := l.scores[itemID]
	if !ok {
		return model.VoteResult{}, errs.ErrNotFound
	}
	if l.users != nil {
		if _, err := l.users.GetByID(context.Background(), userID); err != nil {
			return model.VoteResult{}, errs.ErrNotFound
		}
	}
	key := [2]uuid.UUID{userID, itemID}
	delta := value - l.votes[key]
	l.votes[key] = value
	score += int64(delta)
	l.scores[itemID] = score
	return model.VoteResult{ItemID: itemID, Delta: delta, Score: score}, nil
}
