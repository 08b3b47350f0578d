package sqldb

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muss-lang/muss/internal/runtime"
)

func TestQuerierRawScansRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"title", "year"}).
		AddRow("Windowlicker", int64(1999)).
		AddRow("Xtal", int64(1992))
	mock.ExpectQuery("SELECT \\* FROM items").WillReturnRows(rows)

	q := FromDB(db)
	op, err := q.Raw("SELECT * FROM items")
	require.NoError(t, err)

	op.Enter(&runtime.Context{})
	res, ok := op.Next()
	require.True(t, ok)
	require.False(t, res.IsErr())
	title, _ := res.Item.Field("title")
	s, _ := title.Str()
	assert.Equal(t, "Windowlicker", s)

	res, ok = op.Next()
	require.True(t, ok)
	year, _ := res.Item.Field("year")
	y, _ := year.Int()
	assert.Equal(t, int64(1992), y)

	_, ok = op.Next()
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerierRawRequiresConnection(t *testing.T) {
	q := New()
	_, err := q.Raw("SELECT 1")
	assert.Error(t, err)
}

func TestQuerierInitWithParamsRequiresDSN(t *testing.T) {
	q := New()
	err := q.InitWithParams(map[string]runtime.Value{})
	assert.Error(t, err)
}

func TestQuerierCacheAvoidsSecondQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"title"}).AddRow("Cached Song")
	mock.ExpectQuery("SELECT \\* FROM items").WillReturnRows(rows)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	q := FromDB(db)
	require.NoError(t, q.EnableCache(mr.Addr(), time.Minute))

	op1, err := q.Raw("SELECT * FROM items")
	require.NoError(t, err)
	op1.Enter(&runtime.Context{})
	res, ok := op1.Next()
	require.True(t, ok)
	title, _ := res.Item.Field("title")
	s, _ := title.Str()
	assert.Equal(t, "Cached Song", s)

	// Second call must be served from the cache: sqlmock only registered
	// one expectation, so a second real query would fail it.
	op2, err := q.Raw("SELECT * FROM items")
	require.NoError(t, err)
	op2.Enter(&runtime.Context{})
	res, ok = op2.Next()
	require.True(t, ok)
	title, _ = res.Item.Field("title")
	s, _ = title.Str()
	assert.Equal(t, "Cached Song", s)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverForPicksByScheme(t *testing.T) {
	assert.Equal(t, "pgx", driverFor("", "postgres://localhost/db"))
	assert.Equal(t, "sqlite3", driverFor("", "local.db"))
	assert.Equal(t, "mydriver", driverFor("mydriver", "anything"))
}
