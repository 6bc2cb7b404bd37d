// Package model defines domain entities used by services, repositories and the client cache.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// SnippetLen is the number of leading characters of an item body exposed in feed views.
const SnippetLen = 50

// Vote values accepted by the ledger.
const (
	VoteUp   = 1
	VoteDown = -1
)

// User is the minimal account record the feed needs for owner display.
type User struct {
	ID        uuid.UUID // PK, issued by the auth collaborator
	Username  string    // unique
	CreatedAt time.Time
}

// Item is a single user-submitted feed entry.
type Item struct {
	ID        uuid.UUID // PK (UUIDv7)
	OwnerID   uuid.UUID // FK -> users.id
	Title     string
	Body      string
	Score     int64     // aggregate of votes.value, maintained by the vote ledger
	CreatedAt time.Time // immutable; sort and cursor key
	UpdatedAt time.Time
}

// Owner is the display projection of an item's owner.
type Owner struct {
	ID       uuid.UUID
	Username string
}

// ItemView is the feed projection of an item.
type ItemView struct {
	ID          uuid.UUID
	Title       string
	BodySnippet string
	Score       int64
	CreatedAt   time.Time
	Owner       Owner
}

// Page is one keyset-paginated slice of the feed.
type Page struct {
	Items      []ItemView
	HasMore    bool
	NextCursor string // cursor of the last item, empty if Items is empty
}

// VoteResult reports the outcome of a cast vote.
type VoteResult struct {
	ItemID uuid.UUID
	Delta  int   // value - previous value (0 for a repeated vote)
	Score  int64 // item score after the vote
}

// Snippet returns the first SnippetLen characters of body.
func Snippet(body string) string {
	r := []rune(body)
	if len(r) <= SnippetLen {
		return body
	}
	return string(r[:SnippetLen])
}

// View builds the feed projection of it.
func (it Item) View(owner Owner) ItemView {
	return ItemView{
		ID:          it.ID,
		Title:       it.Title,
		BodySnippet: Snippet(it.Body),
		Score:       it.Score,
		CreatedAt:   it.CreatedAt,
		Owner:       owner,
	}
}
