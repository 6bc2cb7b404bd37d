package feedcache

import (
	"context"
	"net/url"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/votefeed/internal/model"
)

// Args are the field arguments of one page request, e.g. limit and cursor.
type Args map[string]string

// Canonical encodes args deterministically: keys sorted, values url-escaped.
func Canonical(args Args) string {
	v := make(url.Values, len(args))
	for k, s := range args {
		v.Set(k, s)
	}
	return v.Encode()
}

// EntryKey is the cache key of the page (listKey, args).
func EntryKey(listKey string, args Args) string {
	return listKey + "(" + Canonical(args) + ")"
}

// FetchFunc loads one page of a list from the network.
type FetchFunc func(ctx context.Context, args Args) (model.Page, error)

// MergeFunc combines the item ids of a list's entries, given in issue order,
// into the display sequence.
type MergeFunc func(pages [][]uuid.UUID) []uuid.UUID

// Strategy describes how one logical list is fetched and merged.
type Strategy struct {
	Fetch FetchFunc
	Merge MergeFunc // nil means AppendDedup
}

func (s Strategy) merge(pages [][]uuid.UUID) []uuid.UUID {
	if s.Merge != nil {
		return s.Merge(pages)
	}
	return AppendDedup(pages)
}

// AppendDedup concatenates pages and keeps the first occurrence of every id.
func AppendDedup(pages [][]uuid.UUID) []uuid.UUID {
	n := 0
	for _, p := range pages {
		n += len(p)
	}
	out := make([]uuid.UUID, 0, n)
	seen := make(map[uuid.UUID]struct{}, n)
	for _, p := range pages {
		for _, id := range p {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
