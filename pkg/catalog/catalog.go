package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotLoaded is returned by Require when no snapshot has been published yet.
var ErrNotLoaded = errors.New("catalog not loaded")

// Source lists the full catalog from the backing store.
type Source interface {
	ListOriginals(ctx context.Context) ([]OriginalRecord, error)
	ListClones(ctx context.Context) ([]CloneRecord, error)
}

// Catalog owns the current Index snapshot and rebuilds it on demand.
// Readers take a snapshot with Snapshot and keep using it for the whole
// resolution; Reload publishes a complete new Index with a single pointer swap,
// so a partially built index is never visible.
type Catalog struct {
	src     Source
	logger  *slog.Logger
	current atomic.Pointer[Index]
	loaded  atomic.Int64 // unix nanos of the last publish

	reloadMu sync.Mutex
}

// New creates an empty catalog backed by src. Call Load before serving.
func New(src Source, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{src: src, logger: logger}
}

// Load reads every original and clone from the source, builds a new Index and
// publishes it. On error the previous snapshot stays in place.
func (c *Catalog) Load(ctx context.Context) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	start := time.Now()
	originals, err := c.src.ListOriginals(ctx)
	if err != nil {
		return fmt.Errorf("list originals: %w", err)
	}
	clones, err := c.src.ListClones(ctx)
	if err != nil {
		return fmt.Errorf("list clones: %w", err)
	}

	idx := Build(originals, clones)
	if n := idx.Duplicates(); n > 0 {
		c.logger.Warn("duplicate original ids in catalog, first occurrence kept", "duplicates", n)
	}
	c.Publish(idx)
	c.logger.Info("catalog loaded",
		"originals", len(originals),
		"clones", len(clones),
		"duration", time.Since(start),
	)
	return nil
}

// Reload rebuilds the snapshot from the source (explicit, never automatic).
func (c *Catalog) Reload(ctx context.Context) error {
	return c.Load(ctx)
}

// Publish swaps in idx as the current snapshot.
func (c *Catalog) Publish(idx *Index) {
	c.current.Store(idx)
	c.loaded.Store(time.Now().UnixNano())
}

// Snapshot returns the current Index, or nil before the first Load.
func (c *Catalog) Snapshot() *Index {
	return c.current.Load()
}

// Require returns the current Index or ErrNotLoaded.
func (c *Catalog) Require() (*Index, error) {
	idx := c.current.Load()
	if idx == nil {
		return nil, ErrNotLoaded
	}
	return idx, nil
}

// LoadedAt returns when the current snapshot was published (zero if never).
func (c *Catalog) LoadedAt() time.Time {
	n := c.loaded.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
