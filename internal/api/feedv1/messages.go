// Package feedv1 defines the votefeed.v1.Feed gRPC service: wire messages,
// the service descriptor, and a typed client.
package feedv1

import "time"

// Owner is the display identity of an item's author.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Item is the feed projection sent over the wire.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	BodySnippet string    `json:"body_snippet"`
	Score       int64     `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
	Owner       Owner     `json:"owner"`
}

type FetchPageRequest struct {
	Limit  int32  `json:"limit"`
	Cursor string `json:"cursor,omitempty"`
}

type FetchPageResponse struct {
	Items      []Item `json:"items"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type CastVoteRequest struct {
	ItemID string `json:"item_id"`
	Value  int32  `json:"value"`
}

type CastVoteResponse struct {
	Success bool  `json:"success"`
	Score   int64 `json:"score"`
	Delta   int32 `json:"delta"`
}

type CreateItemRequest struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

type GetItemRequest struct {
	ID string `json:"id"`
}

type UpdateItemRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type DeleteItemRequest struct {
	ID string `json:"id"`
}

type DeleteItemResponse struct {
	Success bool `json:"success"`
}

// ItemResponse carries a single item for CreateItem, GetItem and UpdateItem.
type ItemResponse struct {
	Item Item `json:"item"`
}
