// CLAUDE:SUMMARY Ordered fuzzy resolution cascade: exact, reversed, name, clone redirect, brand-only, fuzzy fallback.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/hazyhaar/dupefinder/pkg/catalog"
	"github.com/hazyhaar/dupefinder/pkg/similarity"
)

// Acceptance thresholds per stage. These are part of the observable
// behaviour of the cascade; changing one changes which queries resolve.
const (
	ThresholdExact    = 100.0
	ThresholdReversed = 95.0
	ThresholdName     = 90.0
	ThresholdBrand    = 90.0
	ThresholdFuzzy    = 85.0

	// DefaultCloneThreshold is also the lowest accepted clone threshold.
	DefaultCloneThreshold = 80.0
	MaxCloneThreshold     = 100.0
)

// Lookup resolves an original by id for the clone stage. A miss is reported
// as ok=false; an error is treated as a miss by the resolver.
type Lookup interface {
	LookupOriginal(ctx context.Context, id string) (catalog.Original, bool, error)
}

// Config configures a Resolver. Zero values select the defaults.
type Config struct {
	Scorer    similarity.Scorer  // default similarity.Default
	Normalize catalog.Normalizer // default catalog.Normalize
	// Lookup resolves clone references. When nil the snapshot passed to
	// Resolve serves the lookup.
	Lookup         Lookup
	CloneThreshold float64 // default DefaultCloneThreshold, valid 80..100
	Logger         *slog.Logger
}

// Resolver runs the resolution cascade. It holds no catalog state: every call
// resolves against the snapshot it is given, so one Resolver serves any number
// of concurrent callers across reloads.
type Resolver struct {
	scorer         similarity.Scorer
	normalize      catalog.Normalizer
	lookup         Lookup
	cloneThreshold float64
	logger         *slog.Logger

	queries atomic.Uint64
	scans   atomic.Uint64
	lookups atomic.Uint64
	stages  [stageCount]atomic.Uint64
}

// New validates cfg and returns a Resolver.
func New(cfg Config) (*Resolver, error) {
	r := &Resolver{
		scorer:         cfg.Scorer,
		normalize:      cfg.Normalize,
		lookup:         cfg.Lookup,
		cloneThreshold: cfg.CloneThreshold,
		logger:         cfg.Logger,
	}
	if r.scorer == nil {
		r.scorer = similarity.Default
	}
	if r.normalize == nil {
		r.normalize = catalog.Normalize
	}
	if r.cloneThreshold == 0 {
		r.cloneThreshold = DefaultCloneThreshold
	}
	if r.cloneThreshold < DefaultCloneThreshold || r.cloneThreshold > MaxCloneThreshold {
		return nil, fmt.Errorf("clone threshold %v outside [%v, %v]",
			r.cloneThreshold, DefaultCloneThreshold, MaxCloneThreshold)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// CloneThreshold returns the configured clone-stage threshold.
func (r *Resolver) CloneThreshold() float64 { return r.cloneThreshold }

// Resolve resolves a raw query against idx. lang is carried on the outcome
// for rendering and never affects matching. idx must be the loaded snapshot;
// a nil idx behaves as an empty catalog.
func (r *Resolver) Resolve(ctx context.Context, idx *catalog.Index, query, lang string) Outcome {
	r.queries.Add(1)
	out := r.cascade(ctx, idx, r.normalize(query))
	out.Lang = lang
	r.stages[out.Stage].Add(1)
	r.logger.Debug("query resolved",
		"query", query,
		"stage", out.Stage.String(),
		"status", out.Status(),
		"score", out.Score,
	)
	return out
}

func (r *Resolver) cascade(ctx context.Context, idx *catalog.Index, q string) Outcome {
	if q == "" {
		return failure(ReasonEmptyQuery, StageEmpty)
	}

	originals := idx.Originals()
	display := func(i int) string { return originals[i].DisplayNorm }

	if i, score, ok := r.best(q, len(originals), display, ThresholdExact); ok {
		return success(originals[i], "", StageExact, score)
	}

	if tokens := catalog.Tokens(q); len(tokens) >= 2 {
		reversed := reverseJoin(tokens)
		if i, score, ok := r.best(reversed, len(originals), display, ThresholdReversed); ok {
			return success(originals[i], NoteFuzzy, StageReversed, score)
		}
	}

	name := func(i int) string { return originals[i].NameNorm }
	if i, score, ok := r.best(q, len(originals), name, ThresholdName); ok {
		return success(originals[i], "", StageName, score)
	}

	if out, ok := r.redirect(ctx, idx, q); ok {
		return out
	}

	brand := func(i int) string { return originals[i].BrandNorm }
	if i, score, ok := r.best(q, len(originals), brand, ThresholdBrand); ok {
		out := failure(ReasonBrandOnly, StageBrand)
		out.Brand = originals[i].Brand
		out.Score = score
		return out
	}

	if i, score, ok := r.best(q, len(originals), display, ThresholdFuzzy); ok {
		return success(originals[i], NoteFuzzy, StageFuzzy, score)
	}

	return failure(ReasonNotFound, StageNotFound)
}

// redirect runs the clone stage. A dangling or failed lookup is a miss.
func (r *Resolver) redirect(ctx context.Context, idx *catalog.Index, q string) (Outcome, bool) {
	clones := idx.Clones()
	i, score, ok := r.best(q, len(clones), func(i int) string { return clones[i].DisplayNorm }, r.cloneThreshold)
	if !ok {
		return Outcome{}, false
	}
	c := clones[i]

	r.lookups.Add(1)
	var (
		orig  catalog.Original
		found bool
		err   error
	)
	if r.lookup != nil {
		orig, found, err = r.lookup.LookupOriginal(ctx, c.OriginalID)
	} else {
		orig, found = idx.Original(c.OriginalID)
	}
	if err != nil {
		r.logger.Warn("clone original lookup failed", "original_id", c.OriginalID, "error", err)
		return Outcome{}, false
	}
	if !found {
		r.logger.Warn("dangling clone reference", "clone", c.DisplayNorm, "original_id", c.OriginalID)
		return Outcome{}, false
	}

	out := success(orig, NoteCloneRedirect, StageClone, score)
	out.Clone = &c
	return out, true
}

// best returns the position of the best-scoring candidate key(i) for q among
// n candidates, and whether it reaches threshold. An exactly equal key wins at once
// with a perfect score. Candidates are visited in load order and only a
// strictly greater score replaces the current best, so ties keep the
// earlier entry.
func (r *Resolver) best(q string, n int, key func(int) string, threshold float64) (int, float64, bool) {
	if n == 0 {
		return -1, 0, false
	}
	for i := 0; i < n; i++ {
		if key(i) == q {
			r.scans.Add(uint64(i + 1))
			return i, 100, true
		}
	}

	bestPos, bestScore := -1, 0.0
	for i := 0; i < n; i++ {
		if s := r.scorer.Score(q, key(i)); s > bestScore {
			bestPos, bestScore = i, s
		}
	}
	r.scans.Add(uint64(2 * n))
	if bestPos < 0 || bestScore < threshold {
		return -1, bestScore, false
	}
	return bestPos, bestScore, true
}

func reverseJoin(tokens []string) string {
	rev := make([]string, len(tokens))
	for i, t := range tokens {
		rev[len(tokens)-1-i] = t
	}
	return strings.Join(rev, " ")
}

// Stats is a point-in-time copy of the resolver counters.
type Stats struct {
	Queries uint64            `json:"queries"`
	Scans   uint64            `json:"scans"`
	Lookups uint64            `json:"lookups"`
	Stages  map[string]uint64 `json:"stages"`
}

// Stats returns the counters accumulated since New.
func (r *Resolver) Stats() Stats {
	st := Stats{
		Queries: r.queries.Load(),
		Scans:   r.scans.Load(),
		Lookups: r.lookups.Load(),
		Stages:  make(map[string]uint64, stageCount),
	}
	for s := Stage(0); s < stageCount; s++ {
		st.Stages[s.String()] = r.stages[s].Load()
	}
	return st
}
