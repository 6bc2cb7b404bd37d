// Package convert maps domain models to feedv1 wire messages and back.
package convert

import (
	"fmt"

	u "github.com/gofrs/uuid/v5"

	"github.com/and161185/votefeed/internal/api/feedv1"
	"github.com/and161185/votefeed/internal/errs"
	model "github.com/and161185/votefeed/internal/model"
)

// --- Item ---

// ToWireItem converts a domain ItemView to its wire form.
func ToWireItem(v model.ItemView) feedv1.Item {
	return feedv1.Item{
		ID:          v.ID.String(),
		Title:       v.Title,
		BodySnippet: v.BodySnippet,
		Score:       v.Score,
		CreatedAt:   v.CreatedAt.UTC(),
		Owner: feedv1.Owner{
			ID:       v.Owner.ID.String(),
			Username: v.Owner.Username,
		},
	}
}

// FromWireItem converts a wire item back to a domain ItemView.
func FromWireItem(in feedv1.Item) (model.ItemView, error) {
	id, err := ParseID(in.ID)
	if err != nil {
		return model.ItemView{}, err
	}
	var owner u.UUID
	if in.Owner.ID != "" {
		if owner, err = ParseID(in.Owner.ID); err != nil {
			return model.ItemView{}, fmt.Errorf("owner: %w", err)
		}
	}
	return model.ItemView{
		ID:          id,
		Title:       in.Title,
		BodySnippet: in.BodySnippet,
		Score:       in.Score,
		CreatedAt:   in.CreatedAt.UTC(),
		Owner:       model.Owner{ID: owner, Username: in.Owner.Username},
	}, nil
}

// --- Page ---

// ToWirePage converts a domain Page to a FetchPage response.
func ToWirePage(p model.Page) *feedv1.FetchPageResponse {
	out := &feedv1.FetchPageResponse{
		Items:      make([]feedv1.Item, 0, len(p.Items)),
		HasMore:    p.HasMore,
		NextCursor: p.NextCursor,
	}
	for _, v := range p.Items {
		out.Items = append(out.Items, ToWireItem(v))
	}
	return out
}

// FromWirePage converts a FetchPage response to a domain Page.
func FromWirePage(in *feedv1.FetchPageResponse) (model.Page, error) {
	if in == nil {
		return model.Page{}, fmt.Errorf("%w: nil page", errs.ErrInvalidArgument)
	}
	p := model.Page{
		Items:      make([]model.ItemView, 0, len(in.Items)),
		HasMore:    in.HasMore,
		NextCursor: in.NextCursor,
	}
	for i, it := range in.Items {
		v, err := FromWireItem(it)
		if err != nil {
			return model.Page{}, fmt.Errorf("item[%d]: %w", i, err)
		}
		p.Items = append(p.Items, v)
	}
	return p, nil
}

// --- Vote ---

// ToWireVote converts a ledger result to a CastVote response.
func ToWireVote(r model.VoteResult) *feedv1.CastVoteResponse {
	return &feedv1.CastVoteResponse{Success: true, Score: r.Score, Delta: int32(r.Delta)}
}

// --- helpers ---

// ParseID decodes a non-nil UUID, reporting errs.ErrInvalidArgument otherwise.
func ParseID(s string) (u.UUID, error) {
	var id u.UUID
	if err := id.UnmarshalText([]byte(s)); err != nil {
		return u.Nil, fmt.Errorf("%w: invalid id %q", errs.ErrInvalidArgument, s)
	}
	if id == u.Nil {
		return u.Nil, fmt.Errorf("%w: nil id", errs.ErrInvalidArgument)
	}
	return id, nil
}
