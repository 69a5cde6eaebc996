package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// QueryEntry is one resolved query for the query log.
type QueryEntry struct {
	UserID     string
	Query      string
	Status     string // "ok" or a failure reason code
	OriginalID string
	Note       string
}

// StatusOK is the query log status of a successful resolution.
const StatusOK = "ok"

// LogQuery appends a query to the log.
func (s *Store) LogQuery(ctx context.Context, e QueryEntry) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO query_log (user_id, created_at, query, status, original_id, note) VALUES (?, ?, ?, ?, ?, ?)`),
		e.UserID, time.Now().Unix(), e.Query, e.Status, nullString(e.OriginalID), nullString(e.Note))
	if err != nil {
		return fmt.Errorf("log query: %w", err)
	}
	return nil
}

// ImportRun is one recorded catalog import.
type ImportRun struct {
	ID        int64     `json:"id"`
	Adapter   string    `json:"adapter"`
	Source    string    `json:"source"`
	Originals int       `json:"originals"`
	Clones    int       `json:"clones"`
	Skipped   int       `json:"skipped"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordImport stores the outcome of an import.
func (s *Store) RecordImport(ctx context.Context, adapter, source string, r ReplaceResult) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO import_runs (adapter, source, originals, clones, skipped, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		adapter, source, r.Originals, r.Clones, r.Skipped, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// ListImports returns the most recent import runs, newest first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]ImportRun, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, adapter, source, originals, clones, skipped, created_at
		FROM import_runs ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []ImportRun
	for rows.Next() {
		var (
			r  ImportRun
			ts int64
		)
		if err := rows.Scan(&r.ID, &r.Adapter, &r.Source, &r.Originals, &r.Clones, &r.Skipped, &ts); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		r.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats is the catalog and usage report.
type Stats struct {
	Originals   int `json:"originals"`
	Clones      int `json:"clones"`
	Queries     int `json:"queries"`
	UniqueUsers int `json:"unique_users"`

	MostCloned  []OriginalCount `json:"most_cloned"`
	TopSavings  []Saving        `json:"top_savings"`
	MostFound   []OriginalCount `json:"most_found"`
	TopFailed   []FailedQuery   `json:"top_failed"`
	ActiveUsers []UserActivity  `json:"active_users"`
}

// OriginalCount is an original with a count (clones, or successful queries).
type OriginalCount struct {
	ID    string `json:"id"`
	Brand string `json:"brand"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Saving is a clone with its saving versus its original.
type Saving struct {
	Brand         string  `json:"brand"`
	Name          string  `json:"name"`
	SavedAmount   float64 `json:"saved_amount"`
	OriginalBrand string  `json:"original_brand"`
	OriginalName  string  `json:"original_name"`
}

// FailedQuery is a query text that did not resolve.
type FailedQuery struct {
	Query  string `json:"query"`
	Count  int    `json:"count"`
	Status string `json:"last_status"`
}

// UserActivity is a user's query count and last query time.
type UserActivity struct {
	UserID   string    `json:"user_id"`
	Queries  int       `json:"queries"`
	LastSeen time.Time `json:"last_seen"`
}

// Stats computes the report; each top list holds at most limit rows.
func (s *Store) Stats(ctx context.Context, limit int) (Stats, error) {
	if limit <= 0 {
		limit = 10
	}
	var st Stats
	var err error

	if st.Originals, st.Clones, err = s.Counts(ctx); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM query_log`).Scan(&st.Queries, &st.UniqueUsers); err != nil {
		return st, fmt.Errorf("count queries: %w", err)
	}

	st.MostCloned, err = s.originalCounts(ctx, `
		SELECT o.id, COALESCE(o.brand, ''), COALESCE(o.name, ''), COUNT(c.id) AS n
		FROM originals o JOIN clones c ON c.original_id = o.id
		GROUP BY o.id, o.brand, o.name
		ORDER BY n DESC, o.id
		LIMIT ?`, limit)
	if err != nil {
		return st, fmt.Errorf("most cloned: %w", err)
	}

	if st.MostFound, err = s.Popular(ctx, limit); err != nil {
		return st, err
	}

	if st.TopSavings, err = s.topSavings(ctx, limit); err != nil {
		return st, err
	}
	if st.TopFailed, err = s.topFailed(ctx, limit); err != nil {
		return st, err
	}
	if st.ActiveUsers, err = s.activeUsers(ctx, limit); err != nil {
		return st, err
	}
	return st, nil
}

// Popular returns the originals most often resolved by successful queries.
func (s *Store) Popular(ctx context.Context, limit int) ([]OriginalCount, error) {
	if limit <= 0 {
		limit = 10
	}
	out, err := s.originalCounts(ctx, `
		SELECT o.id, COALESCE(o.brand, ''), COALESCE(o.name, ''), COUNT(q.id) AS n
		FROM query_log q JOIN originals o ON o.id = q.original_id
		WHERE q.status = '`+StatusOK+`'
		GROUP BY o.id, o.brand, o.name
		ORDER BY n DESC, o.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("popular: %w", err)
	}
	return out, nil
}

// HistoryItem is one past query of a user.
type HistoryItem struct {
	Query      string    `json:"query"`
	Status     string    `json:"status"`
	OriginalID string    `json:"original_id,omitempty"`
	Brand      string    `json:"brand,omitempty"`
	Name       string    `json:"name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// History returns the user's most recent queries, newest first. Brand and
// name are those of the resolved original while it is still in the catalog.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]HistoryItem, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT q.query, q.status, q.original_id, o.brand, o.name, q.created_at
		FROM query_log q LEFT JOIN originals o ON o.id = q.original_id
		WHERE q.user_id = ?
		ORDER BY q.id DESC
		LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", userID, err)
	}
	defer rows.Close()

	var out []HistoryItem
	for rows.Next() {
		var (
			h                   HistoryItem
			origID, brand, name sql.NullString
			ts                  int64
		)
		if err := rows.Scan(&h.Query, &h.Status, &origID, &brand, &name, &ts); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.OriginalID, h.Brand, h.Name = origID.String, brand.String, name.String
		h.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) originalCounts(ctx context.Context, q string, limit int) ([]OriginalCount, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OriginalCount
	for rows.Next() {
		var oc OriginalCount
		if err := rows.Scan(&oc.ID, &oc.Brand, &oc.Name, &oc.Count); err != nil {
			return nil, err
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}

func (s *Store) topSavings(ctx context.Context, limit int) ([]Saving, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT COALESCE(c.brand, ''), COALESCE(c.name, ''), c.saved_amount,
			COALESCE(o.brand, ''), COALESCE(o.name, '')
		FROM clones c JOIN originals o ON o.id = c.original_id
		WHERE c.saved_amount IS NOT NULL
		ORDER BY c.saved_amount DESC, c.id
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("top savings: %w", err)
	}
	defer rows.Close()

	var out []Saving
	for rows.Next() {
		var sv Saving
		if err := rows.Scan(&sv.Brand, &sv.Name, &sv.SavedAmount, &sv.OriginalBrand, &sv.OriginalName); err != nil {
			return nil, fmt.Errorf("scan saving: %w", err)
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (s *Store) topFailed(ctx context.Context, limit int) ([]FailedQuery, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT query, COUNT(*) AS n, MAX(status)
		FROM query_log
		WHERE status <> '`+StatusOK+`'
		GROUP BY query
		ORDER BY n DESC, query
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("top failed: %w", err)
	}
	defer rows.Close()

	var out []FailedQuery
	for rows.Next() {
		var f FailedQuery
		if err := rows.Scan(&f.Query, &f.Count, &f.Status); err != nil {
			return nil, fmt.Errorf("scan failed query: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) activeUsers(ctx context.Context, limit int) ([]UserActivity, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT user_id, COUNT(*) AS n, MAX(created_at)
		FROM query_log
		GROUP BY user_id
		ORDER BY n DESC, user_id
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("active users: %w", err)
	}
	defer rows.Close()

	var out []UserActivity
	for rows.Next() {
		var (
			u    UserActivity
			last sql.NullInt64
		)
		if err := rows.Scan(&u.UserID, &u.Queries, &last); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if last.Valid {
			u.LastSeen = time.Unix(last.Int64, 0).UTC()
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
