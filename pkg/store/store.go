// CLAUDE:SUMMARY Backing store for originals, clones, query log and import runs on SQLite (modernc) or PostgreSQL (lib/pq).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("not found")

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the catalog database. All queries are written with "?"
// placeholders and rebound for the active driver.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates missing tables. For sqlite, dsn
// is a file path; WAL mode and a busy timeout are enabled unless dsn already
// carries parameters.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("open store: empty sqlite path")
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("open store: empty postgres dsn")
		}
	default:
		return nil, fmt.Errorf("open store: unknown driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string { return s.driver }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	floatType := "REAL"
	if s.driver == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
		floatType = "DOUBLE PRECISION"
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS originals (
			id        TEXT PRIMARY KEY,
			seq       INTEGER NOT NULL,
			brand     TEXT,
			name      TEXT,
			price_eur ` + floatType + `,
			url       TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS clones (
			id           TEXT PRIMARY KEY,
			seq          INTEGER NOT NULL,
			original_id  TEXT NOT NULL,
			brand        TEXT,
			name         TEXT,
			price_eur    ` + floatType + `,
			url          TEXT,
			notes        TEXT,
			saved_amount ` + floatType + `
		)`,
		`CREATE INDEX IF NOT EXISTS clones_original_id ON clones (original_id)`,
		`CREATE TABLE IF NOT EXISTS query_log (
			id          ` + serial + `,
			user_id     TEXT NOT NULL,
			created_at  BIGINT NOT NULL,
			query       TEXT NOT NULL,
			status      TEXT NOT NULL,
			original_id TEXT,
			note        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS query_log_user_id ON query_log (user_id, id)`,
		`CREATE TABLE IF NOT EXISTS import_runs (
			id         ` + serial + `,
			adapter    TEXT NOT NULL,
			source     TEXT NOT NULL,
			originals  INTEGER NOT NULL,
			clones     INTEGER NOT NULL,
			skipped    INTEGER NOT NULL,
			created_at BIGINT NOT NULL
		)`,
	}
	for _, q := range ddl {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites "?" placeholders as "$1, $2, ..." for postgres.
func (s *Store) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
