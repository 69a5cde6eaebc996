// CLAUDE:SUMMARY CSV catalog adapter (originals.csv + clones.csv from a directory, zip file or zip URL) and the matching exporter.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hazyhaar/dupefinder/pkg/store"
)

func init() {
	Register(&csvAdapter{})
}

const (
	originalsFile = "originals.csv"
	clonesFile    = "clones.csv"
)

var (
	originalColumns = []string{"id", "brand", "name", "price_eur", "url"}
	cloneColumns    = []string{"id", "original_id", "brand", "name", "price_eur", "url", "notes", "saved_amount"}
)

type csvAdapter struct{}

func (a *csvAdapter) ID() string { return "csv" }
func (a *csvAdapter) Description() string {
	return "originals.csv + clones.csv (directory, .zip file or .zip URL)"
}

func (a *csvAdapter) Fetch(ctx context.Context, from string, opts Options) (*Batch, error) {
	work, err := os.MkdirTemp("", "dupefinder-import-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(work)

	dir, err := stageDir(ctx, from, work)
	if err != nil {
		return nil, err
	}
	m, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}
	format := m.Format
	if opts.Delimiter != "" {
		format.Delimiter = opts.Delimiter
	}
	if opts.Encoding != "" {
		format.Encoding = opts.Encoding
	}

	originals, err := readTable(filepath.Join(dir, originalsFile), format)
	if err != nil {
		return nil, err
	}
	if err := originals.require("id"); err != nil {
		return nil, fmt.Errorf("%s: %w", originalsFile, err)
	}

	batch := &Batch{Originals: make([]store.Original, 0, len(originals.rows))}
	for _, row := range originals.rows {
		o := store.Original{
			ID:       originals.get(row, "id"),
			Brand:    originals.get(row, "brand"),
			Name:     originals.get(row, "name"),
			PriceEUR: parseAmount(originals.get(row, "price_eur")),
			URL:      originals.get(row, "url"),
		}
		if o.ID == "" {
			continue
		}
		batch.Originals = append(batch.Originals, o)
	}

	clonesPath := filepath.Join(dir, clonesFile)
	if _, err := os.Stat(clonesPath); os.IsNotExist(err) {
		return batch, nil
	}
	clones, err := readTable(clonesPath, format)
	if err != nil {
		return nil, err
	}
	if err := clones.require("original_id"); err != nil {
		return nil, fmt.Errorf("%s: %w", clonesFile, err)
	}
	batch.Clones = make([]store.Clone, 0, len(clones.rows))
	for _, row := range clones.rows {
		batch.Clones = append(batch.Clones, store.Clone{
			ID:          clones.get(row, "id"),
			OriginalID:  clones.get(row, "original_id"),
			Brand:       clones.get(row, "brand"),
			Name:        clones.get(row, "name"),
			PriceEUR:    parseAmount(clones.get(row, "price_eur")),
			URL:         clones.get(row, "url"),
			Notes:       clones.get(row, "notes"),
			SavedAmount: parseAmount(clones.get(row, "saved_amount")),
		})
	}
	return batch, nil
}

// ExportCSV writes a catalog to dir in the layout the csv adapter reads.
func ExportCSV(dir string, originals []store.Original, clones []store.Clone, m Manifest) error {
	if err := ensureDir(dir); err != nil {
		return err
	}

	rows := make([][]string, 0, len(originals))
	for _, o := range originals {
		rows = append(rows, []string{o.ID, o.Brand, o.Name, formatAmount(o.PriceEUR), o.URL})
	}
	if err := writeTable(filepath.Join(dir, originalsFile), originalColumns, rows); err != nil {
		return err
	}

	rows = make([][]string, 0, len(clones))
	for _, c := range clones {
		rows = append(rows, []string{c.ID, c.OriginalID, c.Brand, c.Name,
			formatAmount(c.PriceEUR), c.URL, c.Notes, formatAmount(c.SavedAmount)})
	}
	if err := writeTable(filepath.Join(dir, clonesFile), cloneColumns, rows); err != nil {
		return err
	}

	m.Format = FormatSpec{Delimiter: ",", Encoding: "utf-8"}
	return writeManifest(dir, m)
}

func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func formatAmount(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
