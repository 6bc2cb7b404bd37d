package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var viewCols = []string{"id", "title", "left", "score", "created_at", "id", "username"}

func TestItemRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	it := model.Item{ID: uuid.Must(uuid.NewV7()), OwnerID: uuid.Must(uuid.NewV4()), Title: "t", Body: "b", CreatedAt: ts}

	mock.ExpectExec(`INSERT INTO items \(id, owner_id, title, body, score, created_at, updated_at\) VALUES \(\$1, \$2, \$3, \$4, 0, \$5, \$5\)`).
		WithArgs(it.ID, it.OwnerID, "t", "b", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.Create(context.Background(), it))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_Create_UnknownOwner(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	it := model.Item{ID: uuid.Must(uuid.NewV7()), OwnerID: uuid.Must(uuid.NewV4()), CreatedAt: time.Now().UTC()}
	mock.ExpectExec(`INSERT INTO items`).
		WithArgs(it.ID, it.OwnerID, "", "", it.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	require.ErrorIs(t, r.Create(context.Background(), it), errs.ErrNotFound)
}

func TestItemRepo_ListPage_First(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	owner := uuid.Must(uuid.NewV4())
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	id1, id2 := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta(pageFirst)).
		WithArgs(3).
		WillReturnRows(pgxmock.NewRows(viewCols).
			AddRow(id2, "second", "b2", int64(2), ts, owner, "ann").
			AddRow(id1, "first", "b1", int64(-1), ts.Add(-time.Second), owner, "ann"))

	out, err := r.ListPage(context.Background(), 3, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, id2, out[0].ID)
	require.Equal(t, "ann", out[0].Owner.Username)
	require.Equal(t, int64(-1), out[1].Score)
}

func TestItemRepo_ListPage_CompositeCursor(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	c := model.Cursor{CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), ID: uuid.Must(uuid.NewV7())}
	mock.ExpectQuery(`WHERE \(i.created_at, i.id\) < \(\$2, \$3\) ORDER BY i.created_at DESC, i.id DESC LIMIT \$1`).
		WithArgs(51, c.CreatedAt, c.ID).
		WillReturnRows(pgxmock.NewRows(viewCols))

	out, err := r.ListPage(context.Background(), 51, &c)
	require.NoError(t, err)
	require.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_ListPage_QueryErr_Unavailable(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(pageFirst)).
		WithArgs(5).
		WillReturnError(context.DeadlineExceeded)

	_, err := r.ListPage(context.Background(), 5, nil)
	require.ErrorIs(t, err, errs.ErrUnavailable)
}

func TestItemRepo_ListPage_RowErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	rows := pgxmock.NewRows(viewCols).
		AddRow(uuid.Must(uuid.NewV7()), "t", "b", int64(0), time.Now(), uuid.Must(uuid.NewV4()), "u").
		RowError(0, errors.New("row0"))
	mock.ExpectQuery(regexp.QuoteMeta(pageFirst)).WithArgs(2).WillReturnRows(rows)

	_, err := r.ListPage(context.Background(), 2, nil)
	require.Error(t, err)
}

func TestItemRepo_Get_OK_And_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	ctx := context.Background()
	id, owner := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, owner_id, title, body, score, created_at, updated_at FROM items WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "title", "body", "score", "created_at", "updated_at"}).
			AddRow(id, owner, "t", "body", int64(7), ts, ts))
	it, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(7), it.Score)
	require.Equal(t, owner, it.OwnerID)

	mock.ExpectQuery(`SELECT id, owner_id, title, body, score, created_at, updated_at FROM items WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestItemRepo_View_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	id := uuid.Must(uuid.NewV7())
	mock.ExpectQuery(regexp.QuoteMeta(selectView)).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err := r.View(context.Background(), id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestItemRepo_UpdateTitle_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	id, owner := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()
	mock.ExpectQuery(`UPDATE items SET title=\$3, updated_at=now\(\) WHERE id=\$1 AND owner_id=\$2 RETURNING`).
		WithArgs(id, owner, "new").
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "title", "body", "score", "created_at", "updated_at"}).
			AddRow(id, owner, "new", "b", int64(1), ts, ts))

	it, err := r.UpdateTitle(context.Background(), id, owner, "new")
	require.NoError(t, err)
	require.Equal(t, "new", it.Title)
}

func TestItemRepo_UpdateTitle_Forbidden_And_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	ctx := context.Background()
	id, owner, other := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`UPDATE items SET title`).WithArgs(id, other, "x").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT owner_id FROM items WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow(owner))
	_, err := r.UpdateTitle(ctx, id, other, "x")
	require.ErrorIs(t, err, errs.ErrForbidden)

	mock.ExpectQuery(`UPDATE items SET title`).WithArgs(id, owner, "x").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT owner_id FROM items WHERE id=\$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = r.UpdateTitle(ctx, id, owner, "x")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestItemRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewItemRepo(db)

	ctx := context.Background()
	id, owner, other := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM items WHERE id=\$1 AND owner_id=\$2`).
		WithArgs(id, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, id, owner))

	mock.ExpectExec(`DELETE FROM items WHERE id=\$1 AND owner_id=\$2`).
		WithArgs(id, other).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery(`SELECT owner_id FROM items WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow(owner))
	require.ErrorIs(t, r.Delete(ctx, id, other), errs.ErrForbidden)
	require.NoError(t, mock.ExpectationsWereMet())
}
