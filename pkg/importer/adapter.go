package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/dupefinder/pkg/store"
)

// Adapter reads a full catalog from one kind of source.
type Adapter interface {
	// ID returns the unique identifier of this adapter (e.g. "csv").
	ID() string
	// Description returns a human-readable description.
	Description() string
	// Fetch reads the catalog at from, a local path or an http(s) URL.
	Fetch(ctx context.Context, from string, opts Options) (*Batch, error)
}

// Options tune how a source is parsed. Zero values defer to the source's
// manifest, then to the adapter defaults.
type Options struct {
	Delimiter string // CSV field delimiter, default ","
	Encoding  string // source charset (any WHATWG label), default UTF-8
}

// Batch is a parsed catalog in source order.
type Batch struct {
	Originals []store.Original
	Clones    []store.Clone
}

// Sink receives an imported catalog. *store.Store implements it.
type Sink interface {
	ReplaceCatalog(ctx context.Context, originals []store.Original, clones []store.Clone) (store.ReplaceResult, error)
	RecordImport(ctx context.Context, adapter, source string, r store.ReplaceResult) error
}

// Report summarizes one import run.
type Report struct {
	Adapter  string              `json:"adapter"`
	Source   string              `json:"source"`
	Result   store.ReplaceResult `json:"result"`
	Duration time.Duration       `json:"duration"`
}

// Run fetches the catalog with a, replaces the stored catalog with it and
// records the run. The in-memory index is not touched: callers reload it.
func Run(ctx context.Context, a Adapter, from string, opts Options, sink Sink, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	rep := Report{Adapter: a.ID(), Source: from}

	batch, err := a.Fetch(ctx, from, opts)
	if err != nil {
		return rep, fmt.Errorf("%s: fetch %s: %w", a.ID(), from, err)
	}
	if len(batch.Originals) == 0 {
		return rep, fmt.Errorf("%s: %s contains no originals", a.ID(), from)
	}

	res, err := sink.ReplaceCatalog(ctx, batch.Originals, batch.Clones)
	if err != nil {
		return rep, fmt.Errorf("%s: replace catalog: %w", a.ID(), err)
	}
	rep.Result = res
	if err := sink.RecordImport(ctx, a.ID(), from, res); err != nil {
		logger.Warn("import run not recorded", "adapter", a.ID(), "error", err)
	}
	rep.Duration = time.Since(start)

	logger.Info("catalog imported",
		"adapter", a.ID(),
		"source", from,
		"originals", res.Originals,
		"clones", res.Clones,
		"skipped", res.Skipped,
		"duration", rep.Duration,
	)
	if res.Skipped > 0 {
		logger.Warn("import skipped rows", "adapter", a.ID(), "skipped", res.Skipped)
	}
	return rep, nil
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.ID()] = a
}

// Get returns a registered adapter by ID, or an error if not found.
func Get(id string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown import source: %q", id)
	}
	return a, nil
}

// All returns all registered adapters sorted by ID.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}
