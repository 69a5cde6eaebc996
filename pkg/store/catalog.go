package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hazyhaar/dupefinder/pkg/catalog"
)

// Original is a stored original fragrance.
type Original struct {
	ID       string   `json:"id"`
	Brand    string   `json:"brand"`
	Name     string   `json:"name"`
	PriceEUR *float64 `json:"price_eur,omitempty"`
	URL      string   `json:"url,omitempty"`
}

// Clone is a stored clone. SavedAmount is the saving versus the original, in percent.
type Clone struct {
	ID          string   `json:"id"`
	OriginalID  string   `json:"original_id"`
	Brand       string   `json:"brand"`
	Name        string   `json:"name"`
	PriceEUR    *float64 `json:"price_eur,omitempty"`
	URL         string   `json:"url,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	SavedAmount *float64 `json:"saved_amount,omitempty"`
}

// ReplaceResult counts what ReplaceCatalog wrote.
type ReplaceResult struct {
	Originals int `json:"originals"`
	Clones    int `json:"clones"`
	// Skipped counts duplicate original ids and clones whose original is not
	// part of the batch.
	Skipped int `json:"skipped"`
}

// ListOriginals returns every original in catalog load order.
func (s *Store) ListOriginals(ctx context.Context) ([]catalog.OriginalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(brand, ''), COALESCE(name, '') FROM originals ORDER BY seq, id`)
	if err != nil {
		return nil, fmt.Errorf("list originals: %w", err)
	}
	defer rows.Close()

	var out []catalog.OriginalRecord
	for rows.Next() {
		var r catalog.OriginalRecord
		if err := rows.Scan(&r.ID, &r.Brand, &r.Name); err != nil {
			return nil, fmt.Errorf("scan original: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListClones returns every clone in catalog load order.
func (s *Store) ListClones(ctx context.Context) ([]catalog.CloneRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(brand, ''), COALESCE(name, ''), original_id FROM clones ORDER BY seq, id`)
	if err != nil {
		return nil, fmt.Errorf("list clones: %w", err)
	}
	defer rows.Close()

	var out []catalog.CloneRecord
	for rows.Next() {
		var r catalog.CloneRecord
		if err := rows.Scan(&r.Brand, &r.Name, &r.OriginalID); err != nil {
			return nil, fmt.Errorf("scan clone: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetOriginal returns the original with the given id, or ErrNotFound.
func (s *Store) GetOriginal(ctx context.Context, id string) (Original, error) {
	var (
		o     Original
		price sql.NullFloat64
		url   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, COALESCE(brand, ''), COALESCE(name, ''), price_eur, url FROM originals WHERE id = ?`), id).
		Scan(&o.ID, &o.Brand, &o.Name, &price, &url)
	if errors.Is(err, sql.ErrNoRows) {
		return Original{}, ErrNotFound
	}
	if err != nil {
		return Original{}, fmt.Errorf("get original %s: %w", id, err)
	}
	o.PriceEUR = floatPtr(price)
	o.URL = url.String
	return o, nil
}

// RandomOriginal returns a uniformly chosen original, or ErrNotFound when the
// catalog is empty.
func (s *Store) RandomOriginal(ctx context.Context) (Original, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM originals ORDER BY RANDOM() LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Original{}, ErrNotFound
	}
	if err != nil {
		return Original{}, fmt.Errorf("random original: %w", err)
	}
	return s.GetOriginal(ctx, id)
}

// LookupOriginal serves the resolver's clone stage: a missing id is a miss,
// not an error.
func (s *Store) LookupOriginal(ctx context.Context, id string) (catalog.Original, bool, error) {
	o, err := s.GetOriginal(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return catalog.Original{}, false, nil
	}
	if err != nil {
		return catalog.Original{}, false, err
	}
	return catalog.NewOriginal(catalog.OriginalRecord{ID: o.ID, Brand: o.Brand, Name: o.Name}), true, nil
}

// ClonesFor returns the clones of an original in load order.
func (s *Store) ClonesFor(ctx context.Context, originalID string) ([]Clone, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(cloneSelect+` WHERE original_id = ? ORDER BY seq, id`), originalID)
	if err != nil {
		return nil, fmt.Errorf("clones for %s: %w", originalID, err)
	}
	return scanClones(rows)
}

// Dump returns the full stored catalog in load order.
func (s *Store) Dump(ctx context.Context) ([]Original, []Clone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(brand, ''), COALESCE(name, ''), price_eur, url FROM originals ORDER BY seq, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("dump originals: %w", err)
	}
	defer rows.Close()

	var originals []Original
	for rows.Next() {
		var (
			o     Original
			price sql.NullFloat64
			url   sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.Brand, &o.Name, &price, &url); err != nil {
			return nil, nil, fmt.Errorf("scan original: %w", err)
		}
		o.PriceEUR = floatPtr(price)
		o.URL = url.String
		originals = append(originals, o)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	crows, err := s.db.QueryContext(ctx, cloneSelect+` ORDER BY seq, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("dump clones: %w", err)
	}
	clones, err := scanClones(crows)
	if err != nil {
		return nil, nil, err
	}
	return originals, clones, nil
}

const cloneSelect = `SELECT id, original_id, COALESCE(brand, ''), COALESCE(name, ''),
	price_eur, url, notes, saved_amount FROM clones`

func scanClones(rows *sql.Rows) ([]Clone, error) {
	defer rows.Close()

	var out []Clone
	for rows.Next() {
		var (
			c            Clone
			price, saved sql.NullFloat64
			url, notes   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.OriginalID, &c.Brand, &c.Name, &price, &url, &notes, &saved); err != nil {
			return nil, fmt.Errorf("scan clone: %w", err)
		}
		c.PriceEUR = floatPtr(price)
		c.SavedAmount = floatPtr(saved)
		c.URL = url.String
		c.Notes = notes.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// Counts returns the number of stored originals and clones.
func (s *Store) Counts(ctx context.Context) (originals, clones int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM originals`).Scan(&originals); err != nil {
		return 0, 0, fmt.Errorf("count originals: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clones`).Scan(&clones); err != nil {
		return 0, 0, fmt.Errorf("count clones: %w", err)
	}
	return originals, clones, nil
}

// ReplaceCatalog replaces all originals and clones in one transaction. Input
// order becomes the load order. The first of several originals sharing an id
// is kept; clones referencing an original outside the batch are skipped.
// Clones without an id get a random one.
func (s *Store) ReplaceCatalog(ctx context.Context, originals []Original, clones []Clone) (ReplaceResult, error) {
	var res ReplaceResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM clones`); err != nil {
		return res, fmt.Errorf("clear clones: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM originals`); err != nil {
		return res, fmt.Errorf("clear originals: %w", err)
	}

	insOrig, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO originals (id, seq, brand, name, price_eur, url) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return res, fmt.Errorf("prepare originals: %w", err)
	}
	defer insOrig.Close()

	valid := make(map[string]struct{}, len(originals))
	for _, o := range originals {
		if o.ID == "" {
			res.Skipped++
			continue
		}
		if _, dup := valid[o.ID]; dup {
			res.Skipped++
			continue
		}
		valid[o.ID] = struct{}{}
		if _, err := insOrig.ExecContext(ctx, o.ID, res.Originals, o.Brand, o.Name, nullFloat(o.PriceEUR), nullString(o.URL)); err != nil {
			return res, fmt.Errorf("insert original %s: %w", o.ID, err)
		}
		res.Originals++
	}

	insClone, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO clones (id, seq, original_id, brand, name, price_eur, url, notes, saved_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return res, fmt.Errorf("prepare clones: %w", err)
	}
	defer insClone.Close()

	seen := make(map[string]struct{}, len(clones))
	for _, c := range clones {
		if _, ok := valid[c.OriginalID]; !ok {
			res.Skipped++
			continue
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, dup := seen[c.ID]; dup {
			res.Skipped++
			continue
		}
		seen[c.ID] = struct{}{}
		if _, err := insClone.ExecContext(ctx, c.ID, res.Clones, c.OriginalID, c.Brand, c.Name,
			nullFloat(c.PriceEUR), nullString(c.URL), nullString(c.Notes), nullFloat(c.SavedAmount)); err != nil {
			return res, fmt.Errorf("insert clone %s: %w", c.ID, err)
		}
		res.Clones++
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
