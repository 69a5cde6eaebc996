// CLAUDE:SUMMARY Immutable catalog snapshot: originals and clones in load order plus brand/name/id groupings.
package catalog

// Index is one immutable catalog snapshot. It is built once by Build and never
// mutated afterwards, so any number of goroutines may read it concurrently.
// All methods are safe on a nil *Index, which behaves as an empty catalog.
type Index struct {
	originals []Original
	clones    []Clone
	byBrand   map[string][]int
	byName    map[string][]int
	byID      map[string]int

	duplicates int
}

// Build indexes originals and clones in a single pass, preserving input order.
// Missing brand or name values are treated as empty strings. Clone references
// are not validated: a dangling OriginalID is a lookup miss at resolution time.
func Build(originals []OriginalRecord, clones []CloneRecord) *Index {
	idx := &Index{
		originals: make([]Original, 0, len(originals)),
		clones:    make([]Clone, 0, len(clones)),
		byBrand:   make(map[string][]int),
		byName:    make(map[string][]int),
		byID:      make(map[string]int, len(originals)),
	}

	for _, r := range originals {
		o := NewOriginal(r)
		i := len(idx.originals)
		idx.originals = append(idx.originals, o)
		idx.byBrand[o.BrandNorm] = append(idx.byBrand[o.BrandNorm], i)
		idx.byName[o.NameNorm] = append(idx.byName[o.NameNorm], i)
		if _, exists := idx.byID[o.ID]; exists {
			idx.duplicates++
			continue
		}
		idx.byID[o.ID] = i
	}
	for _, r := range clones {
		idx.clones = append(idx.clones, NewClone(r))
	}
	return idx
}

// Originals returns all originals in load order. Callers must not modify it.
func (idx *Index) Originals() []Original {
	if idx == nil {
		return nil
	}
	return idx.originals
}

// Clones returns all clones in load order. Callers must not modify it.
func (idx *Index) Clones() []Clone {
	if idx == nil {
		return nil
	}
	return idx.clones
}

// ByBrand returns the originals whose normalized brand equals key, in load order.
func (idx *Index) ByBrand(key string) []Original {
	if idx == nil {
		return nil
	}
	return idx.collect(idx.byBrand[key])
}

// ByName returns the originals whose normalized name equals key, in load order.
func (idx *Index) ByName(key string) []Original {
	if idx == nil {
		return nil
	}
	return idx.collect(idx.byName[key])
}

// Original returns the original with the given id.
func (idx *Index) Original(id string) (Original, bool) {
	if idx == nil {
		return Original{}, false
	}
	i, ok := idx.byID[id]
	if !ok {
		return Original{}, false
	}
	return idx.originals[i], true
}

// Len returns the number of originals and clones.
func (idx *Index) Len() (originals, clones int) {
	if idx == nil {
		return 0, 0
	}
	return len(idx.originals), len(idx.clones)
}

// Duplicates counts originals whose id was already taken by an earlier entry.
func (idx *Index) Duplicates() int {
	if idx == nil {
		return 0
	}
	return idx.duplicates
}

func (idx *Index) collect(positions []int) []Original {
	if len(positions) == 0 {
		return nil
	}
	out := make([]Original, len(positions))
	for i, p := range positions {
		out[i] = idx.originals[p]
	}
	return out
}
