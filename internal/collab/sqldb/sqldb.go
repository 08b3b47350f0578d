// Package sqldb implements runtime.DatabaseQuerier against a real SQL
// database: `sql_init` supplies a DSN, `sql`/`simple_sql` run a query and
// stream the rows back as Items via the fallthrough in-memory vec iterator.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver, registered as "pgx"
	_ "github.com/lib/pq"              // postgres driver, registered as "postgres"
	_ "github.com/mattn/go-sqlite3"    // sqlite3 driver
	"github.com/redis/go-redis/v9"

	"github.com/muss-lang/muss/internal/runtime"
)

// Querier is a runtime.DatabaseQuerier backed by database/sql. It starts
// unconnected; a script must run `sql_init(driver=..., dsn=...)` (or the
// caller must call Open directly) before any `sql`/`simple_sql` statement
// runs, an explicit dial-before-use shape.
type Querier struct {
	db     *sql.DB
	driver string
	dsn    string

	cache    *redis.Client
	cacheTTL time.Duration
}

// New returns an unconnected Querier. Driver/DSN are supplied later via
// InitWithParams (from a script's `sql_init(...)`) or Open (from the CLI's
// --db flag).
func New() *Querier {
	return &Querier{}
}

// FromDB wraps an already-open *sql.DB directly, bypassing driver/DSN
// resolution entirely. Used by tests to inject a go-sqlmock connection.
func FromDB(db *sql.DB) *Querier {
	return &Querier{db: db}
}

// driverFor maps a DSN's scheme (or an explicit driver= argument) to the
// database/sql driver name it was registered under above.
func driverFor(driver, dsn string) string {
	if driver != "" {
		return driver
	}
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx"
	case strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"), strings.HasSuffix(dsn, ".sqlite3"), dsn == ":memory:":
		return "sqlite3"
	default:
		return "sqlite3"
	}
}

// Open connects using an explicit driver/DSN pair, bypassing InitWithParams.
// Used by cmd/muss when a --db flag is given up front.
func (q *Querier) Open(driver, dsn string) error {
	name := driverFor(driver, dsn)
	db, err := sql.Open(name, dsn)
	if err != nil {
		return fmt.Errorf("sqldb: open %s: %w", name, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("sqldb: ping %s: %w", name, err)
	}
	q.db = db
	q.driver = name
	q.dsn = dsn
	return nil
}

// InitWithParams implements runtime.DatabaseQuerier, reading `dsn` (required)
// and an optional `driver` keyword from a script's `sql_init(...)` call.
func (q *Querier) InitWithParams(params map[string]runtime.Value) error {
	dsn, ok := params["dsn"]
	if !ok {
		return fmt.Errorf("sqldb: sql_init requires a dsn= argument")
	}
	driver := ""
	if d, ok := params["driver"]; ok {
		driver = asPlainString(d)
	}
	return q.Open(driver, asPlainString(dsn))
}

func asPlainString(v runtime.Value) string {
	if v.IsPrimitive() {
		return v.Primitive.AsStr()
	}
	return v.String()
}

// Raw executes query and scans every row into a runtime.Item keyed by
// column name, returning the whole result set wrapped in an ItemSliceOp.
func (q *Querier) Raw(query string) (runtime.Op, error) {
	if q.db == nil {
		return nil, fmt.Errorf("sqldb: no connection: run sql_init(dsn=...) first")
	}
	if items, ok := q.cacheGet(query); ok {
		return runtime.NewItemSliceOp(items), nil
	}

	rows, err := q.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("sqldb: query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqldb: reading columns: %w", err)
	}

	items := make([]runtime.Item, 0)
	cacheRows := make([]map[string]any, 0)
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqldb: scanning row: %w", err)
		}
		item := runtime.NewItem()
		cacheRow := make(map[string]any, len(cols))
		for i, col := range cols {
			prim := toPrimitive(raw[i])
			item.SetField(col, prim)
			cacheRow[col] = toJSONSafe(raw[i])
		}
		items = append(items, item)
		cacheRows = append(cacheRows, cacheRow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterating rows: %w", err)
	}
	q.cacheSet(query, cacheRows)
	return runtime.NewItemSliceOp(items), nil
}

// toPrimitive converts a database/sql scan destination into a
// runtime.TypePrimitive. The driver has already done type resolution based
// on the column's declared type, so this only needs to map Go's scan types
// across, not re-guess a string's shape.
func toPrimitive(v any) runtime.TypePrimitive {
	switch t := v.(type) {
	case nil:
		return runtime.Empty
	case int64:
		return runtime.IntVal(t)
	case float64:
		return runtime.FloatVal(t)
	case bool:
		return runtime.BoolVal(t)
	case []byte:
		return runtime.StringVal(string(t))
	case string:
		return runtime.StringVal(t)
	default:
		return runtime.StringVal(fmt.Sprintf("%v", t))
	}
}

// toJSONSafe converts a database/sql scan destination into something
// encoding/json round-trips faithfully as text — []byte would otherwise
// marshal as base64.
func toJSONSafe(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Close releases the underlying *sql.DB and cache client, if any.
func (q *Querier) Close() error {
	if q.cache != nil {
		q.cache.Close()
	}
	if q.db == nil {
		return nil
	}
	return q.db.Close()
}

// EnableCache points the querier at a redis server to memoize Raw's result
// sets by query text, so a `repeat` loop that re-runs the same `sql(...)`
// statement every pass doesn't re-hit the database each time.
func (q *Querier) EnableCache(addr string, ttl time.Duration) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("sqldb: connecting to cache at %s: %w", addr, err)
	}
	q.cache = client
	q.cacheTTL = ttl
	return nil
}

// cacheEntry is the JSON shape stored in redis: one map per row, using
// encoding/json's native type mapping rather than runtime.Item's own
// (unexported) representation.
type cacheEntry struct {
	Rows []map[string]any `json:"rows"`
}

func (q *Querier) cacheGet(query string) ([]runtime.Item, bool) {
	if q.cache == nil {
		return nil, false
	}
	raw, err := q.cache.Get(context.Background(), cacheKey(query)).Bytes()
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	items := make([]runtime.Item, 0, len(entry.Rows))
	for _, row := range entry.Rows {
		item := runtime.NewItem()
		for col, v := range row {
			item.SetField(col, fromJSONValue(v))
		}
		items = append(items, item)
	}
	return items, true
}

func (q *Querier) cacheSet(query string, rows []map[string]any) {
	if q.cache == nil {
		return
	}
	raw, err := json.Marshal(cacheEntry{Rows: rows})
	if err != nil {
		return
	}
	q.cache.Set(context.Background(), cacheKey(query), raw, q.cacheTTL)
}

func cacheKey(query string) string { return "muss:sql:" + query }

// fromJSONValue maps a JSON-decoded value back to a TypePrimitive. JSON's
// single numeric type means an originally-integral column round-trips as a
// Float here; acceptable for a best-effort cache layer.
func fromJSONValue(v any) runtime.TypePrimitive {
	switch t := v.(type) {
	case nil:
		return runtime.Empty
	case bool:
		return runtime.BoolVal(t)
	case float64:
		return runtime.FloatVal(t)
	case string:
		return runtime.StringVal(t)
	default:
		return runtime.StringVal(fmt.Sprintf("%v", t))
	}
}
