// Package feedcache merges independently fetched feed pages, keyed by their
// request arguments, into one de-duplicated scrollable view.
//
// Entries hold only item ids; item data lives in a normalized object store
// shared by all lists. A page is stored only when its fetch succeeds and no
// Invalidate of its list happened while it was in flight.
package feedcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gofrs/uuid/v5"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/votefeed/internal/model"
)

// ErrUnknownList is returned for a listKey with no registered strategy.
var ErrUnknownList = errors.New("feedcache: unknown list")

// Result is a page, or a merged list, rebuilt from the cache.
type Result struct {
	Items      []model.ItemView
	HasMore    bool
	NextCursor string
	// Partial is set when the entry is absent or references an item missing
	// from the object store. Callers must treat the data as incomplete.
	Partial bool
}

type entry struct {
	list    string
	ids     []uuid.UUID
	hasMore bool
	next    string
	seq     uint64 // issue order
}

// flight tracks the callers waiting on one in-flight fetch. The fetch is
// cancelled when the last waiter leaves. seq and gen are taken when the
// first caller issues the request, not when the fetch goroutine runs.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
	seq     uint64
	gen     uint64
}

// Cache is the client-side cache synthesizer. It is safe for concurrent use.
type Cache struct {
	strategies map[string]Strategy
	objects    *gocache.Cache
	group      singleflight.Group
	log        *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	gen     map[string]uint64
	seq     uint64
	flights map[string]*flight
	subs    map[string]map[uint64]func()
	subSeq  uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for background fetch failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// New returns a Cache serving the lists in strategies.
func New(strategies map[string]Strategy, opts ...Option) *Cache {
	c := &Cache{
		strategies: make(map[string]Strategy, len(strategies)),
		objects:    gocache.New(gocache.NoExpiration, 0),
		log:        zap.NewNop(),
		entries:    make(map[string]*entry),
		gen:        make(map[string]uint64),
		flights:    make(map[string]*flight),
		subs:       make(map[string]map[uint64]func()),
	}
	for k, s := range strategies {
		c.strategies[k] = s
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) strategy(listKey string) (Strategy, error) {
	s, ok := c.strategies[listKey]
	if !ok || s.Fetch == nil {
		return Strategy{}, fmt.Errorf("%w: %q", ErrUnknownList, listKey)
	}
	return s, nil
}

// Lookup rebuilds the page (listKey, args) from the cache without touching
// the network.
func (c *Cache) Lookup(listKey string, args Args) (Result, error) {
	if _, err := c.strategy(listKey); err != nil {
		return Result{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[EntryKey(listKey, args)]
	if !ok {
		return Result{Partial: true}, nil
	}
	res := Result{HasMore: e.hasMore, NextCursor: e.next}
	res.Items, res.Partial = c.deref(e.ids)
	return res, nil
}

// Resolve returns the cached page and, when it is partial, schedules a
// coalesced background fetch. Subscribers of listKey are notified once the
// fetched page is stored.
func (c *Cache) Resolve(listKey string, args Args) (Result, error) {
	res, err := c.Lookup(listKey, args)
	if err != nil || !res.Partial {
		return res, err
	}
	st, _ := c.strategy(listKey)
	key := EntryKey(listKey, args)
	f := c.join(listKey, key)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(f, st, listKey, key, args)
	})
	go func() {
		defer c.leave(key, f)
		if r := <-ch; r.Err != nil {
			c.log.Warn("feedcache: background fetch failed",
				zap.String("key", key),
				zap.Error(r.Err),
			)
		}
	}()
	return res, nil
}

// Load returns the page (listKey, args), fetching it when the cached copy is
// partial. Concurrent loads of one key share a single fetch; a caller whose
// ctx ends stops waiting without affecting the others.
func (c *Cache) Load(ctx context.Context, listKey string, args Args) (Result, error) {
	res, err := c.Lookup(listKey, args)
	if err != nil || !res.Partial {
		return res, err
	}
	st, _ := c.strategy(listKey)
	key := EntryKey(listKey, args)
	f := c.join(listKey, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(f, st, listKey, key, args)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		p := r.Val.(model.Page)
		return Result{Items: p.Items, HasMore: p.HasMore, NextCursor: p.NextCursor}, nil
	}
}

// View merges every entry of listKey in issue order. HasMore and NextCursor
// come from the most recently issued entry.
func (c *Cache) View(listKey string) (Result, error) {
	st, err := c.strategy(listKey)
	if err != nil {
		return Result{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var es []*entry
	for _, e := range c.entries {
		if e.list == listKey {
			es = append(es, e)
		}
	}
	if len(es) == 0 {
		return Result{Partial: true}, nil
	}
	sort.Slice(es, func(i, j int) bool { return es[i].seq < es[j].seq })

	pages := make([][]uuid.UUID, len(es))
	for i, e := range es {
		pages[i] = e.ids
	}
	last := es[len(es)-1]
	res := Result{HasMore: last.hasMore, NextCursor: last.next}
	res.Items, res.Partial = c.deref(st.merge(pages))
	return res, nil
}

// Invalidate purges every entry of listKey regardless of args, drops objects
// no longer referenced and notifies subscribers. Fetches already in flight
// for the list will not be stored.
func (c *Cache) Invalidate(listKey string) error {
	if _, err := c.strategy(listKey); err != nil {
		return err
	}
	c.mu.Lock()
	for k, e := range c.entries {
		if e.list == listKey {
			delete(c.entries, k)
		}
	}
	c.gen[listKey]++
	c.collect()
	subs := c.subscribers(listKey)
	c.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return nil
}

// Evict drops one item from the object store. Entries referencing it
// become partial until refetched.
func (c *Cache) Evict(id uuid.UUID) {
	c.objects.Delete(id.String())
}

// Subscribe registers fn to be called whenever listKey changes: a page of it
// was stored or it was invalidated. fn runs on the goroutine that made the
// change and must not block.
func (c *Cache) Subscribe(listKey string, fn func()) (unsubscribe func(), err error) {
	if _, err := c.strategy(listKey); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subSeq++
	id := c.subSeq
	if c.subs[listKey] == nil {
		c.subs[listKey] = make(map[uint64]func())
	}
	c.subs[listKey][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[listKey], id)
	}, nil
}

// fetch runs inside the singleflight group for key.
func (c *Cache) fetch(f *flight, st Strategy, listKey, key string, args Args) (model.Page, error) {
	ctx, seq := f.ctx, f.seq
	p, err := st.Fetch(ctx, args)
	if err != nil {
		return model.Page{}, err
	}

	c.mu.Lock()
	// leave cancels under c.mu, so an abandoned fetch is never stored
	if err := ctx.Err(); err != nil {
		c.mu.Unlock()
		return model.Page{}, err
	}
	if c.gen[listKey] != f.gen {
		c.mu.Unlock()
		return p, nil
	}
	if old, ok := c.entries[key]; ok {
		seq = old.seq
	}
	ids := make([]uuid.UUID, 0, len(p.Items))
	for _, it := range p.Items {
		c.objects.Set(it.ID.String(), it, gocache.NoExpiration)
		ids = append(ids, it.ID)
	}
	c.entries[key] = &entry{list: listKey, ids: ids, hasMore: p.HasMore, next: p.NextCursor, seq: seq}
	subs := c.subscribers(listKey)
	c.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return p, nil
}

func (c *Cache) join(listKey, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		c.seq++
		f = &flight{ctx: ctx, cancel: cancel, seq: c.seq, gen: c.gen[listKey]}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

func (c *Cache) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
		c.group.Forget(key)
	}
}

// deref must be called with c.mu held.
func (c *Cache) deref(ids []uuid.UUID) ([]model.ItemView, bool) {
	out := make([]model.ItemView, 0, len(ids))
	partial := false
	for _, id := range ids {
		v, ok := c.objects.Get(id.String())
		if !ok {
			partial = true
			continue
		}
		out = append(out, v.(model.ItemView))
	}
	return out, partial
}

// collect drops objects not referenced by any entry. Called with c.mu held.
func (c *Cache) collect() {
	live := make(map[string]struct{})
	for _, e := range c.entries {
		for _, id := range e.ids {
			live[id.String()] = struct{}{}
		}
	}
	for k := range c.objects.Items() {
		if _, ok := live[k]; !ok {
			c.objects.Delete(k)
		}
	}
}

// subscribers must be called with c.mu held.
func (c *Cache) subscribers(listKey string) []func() {
	out := make([]func(), 0, len(c.subs[listKey]))
	for _, fn := range c.subs[listKey] {
		out = append(out, fn)
	}
	return out
}
