// CLAUDE:SUMMARY Migration adapter reading a legacy SQLite catalog (OriginalPerfume / CopyPerfume tables).
package importer

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/dupefinder/pkg/store"
)

func init() {
	Register(&legacySQLiteAdapter{})
}

type legacySQLiteAdapter struct{}

func (a *legacySQLiteAdapter) ID() string { return "legacy-sqlite" }
func (a *legacySQLiteAdapter) Description() string {
	return "legacy SQLite database with OriginalPerfume and CopyPerfume tables"
}

func (a *legacySQLiteAdapter) Fetch(ctx context.Context, from string, _ Options) (*Batch, error) {
	work, err := os.MkdirTemp("", "dupefinder-legacy-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(work)

	path, err := stageFile(ctx, from, work, "legacy.db")
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("open legacy db: %w", err)
	}
	defer db.Close()

	batch := &Batch{}
	if batch.Originals, err = legacyOriginals(ctx, db); err != nil {
		return nil, err
	}
	if batch.Clones, err = legacyClones(ctx, db); err != nil {
		return nil, err
	}
	return batch, nil
}

func legacyOriginals(ctx context.Context, db *sql.DB) ([]store.Original, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, brand, name, price_eur, url FROM OriginalPerfume ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("read OriginalPerfume: %w", err)
	}
	defer rows.Close()

	var out []store.Original
	for rows.Next() {
		var (
			id, brand, name, url sql.NullString
			price                sql.NullFloat64
		)
		if err := rows.Scan(&id, &brand, &name, &price, &url); err != nil {
			return nil, fmt.Errorf("scan OriginalPerfume: %w", err)
		}
		o := store.Original{ID: id.String, Brand: brand.String, Name: name.String, URL: url.String}
		if price.Valid {
			o.PriceEUR = &price.Float64
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func legacyClones(ctx context.Context, db *sql.DB) ([]store.Clone, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, original_id, brand, name, price_eur, url, notes, saved_amount FROM CopyPerfume ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("read CopyPerfume: %w", err)
	}
	defer rows.Close()

	var out []store.Clone
	for rows.Next() {
		var (
			id, origID, brand, name, url, notes sql.NullString
			price, saved                        sql.NullFloat64
		)
		if err := rows.Scan(&id, &origID, &brand, &name, &price, &url, &notes, &saved); err != nil {
			return nil, fmt.Errorf("scan CopyPerfume: %w", err)
		}
		c := store.Clone{
			ID:         id.String,
			OriginalID: origID.String,
			Brand:      brand.String,
			Name:       name.String,
			URL:        url.String,
			Notes:      notes.String,
		}
		if price.Valid {
			c.PriceEUR = &price.Float64
		}
		if saved.Valid {
			c.SavedAmount = &saved.Float64
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
