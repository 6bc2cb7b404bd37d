package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/votefeed/internal/errs"
)

// Cursor is the keyset bound of a feed page: rows strictly older than
// (CreatedAt, ID) in descending order.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorOf returns the cursor pointing just past v.
func CursorOf(v ItemView) Cursor {
	return Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
}

// String encodes the cursor as "<unix-micro>_<uuid>".
func (c Cursor) String() string {
	return strconv.FormatInt(c.CreatedAt.UnixMicro(), 10) + "_" + c.ID.String()
}

// ParseCursor decodes a cursor produced by Cursor.String. A bare timestamp
// is rejected: it cannot order items created within the same tick.
func ParseCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, fmt.Errorf("%w: empty cursor", errs.ErrInvalidArgument)
	}
	ts, id, ok := strings.Cut(s, "_")
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || n < 0 || !ok {
		return Cursor{}, fmt.Errorf("%w: malformed cursor %q", errs.ErrInvalidArgument, s)
	}
	uid, err := uuid.FromString(id)
	if err != nil || uid == uuid.Nil {
		return Cursor{}, fmt.Errorf("%w: malformed cursor id %q", errs.ErrInvalidArgument, id)
	}
	return Cursor{CreatedAt: time.UnixMicro(n).UTC(), ID: uid}, nil
}
