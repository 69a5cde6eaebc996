// CLAUDE:SUMMARY Weighted-ratio scorer in [0,100] combining plain, partial, token-sort and token-set ratios.
package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Scorer scores two normalized strings in [0, 100].
type Scorer interface {
	Score(a, b string) float64
}

const (
	unbaseScale = 0.95 // token-based ratios are never fully trusted
	lenRatioLow = 1.5  // below this, strings are compared as a whole
	lenRatioHi  = 8.0  // above this, partial matches are heavily discounted
)

// WRatio is a weighted-ratio scorer: tolerant of token reordering, token
// subsets and substring containment. The base metric is pluggable.
type WRatio struct {
	metric Metric
}

// NewWRatio returns a WRatio scorer over m (Indel when m is nil).
func NewWRatio(m Metric) *WRatio {
	if m == nil {
		m = Indel
	}
	return &WRatio{metric: m}
}

// Default is the Indel-based weighted ratio.
var Default Scorer = NewWRatio(Indel)

// Score implements Scorer. Identical non-empty strings score 100; any empty
// side scores 0.
func (w *WRatio) Score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))

	end := w.Ratio(a, b)
	if lenRatio < lenRatioLow {
		return math.Max(end, w.TokenRatio(a, b)*unbaseScale)
	}

	partialScale := 0.9
	if lenRatio >= lenRatioHi {
		partialScale = 0.6
	}
	end = math.Max(end, w.PartialRatio(a, b)*partialScale)
	return math.Max(end, w.PartialTokenRatio(a, b)*unbaseScale*partialScale)
}

// Ratio is the base metric scaled to [0, 100].
func (w *WRatio) Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return 100 * w.metric(a, b)
}

// PartialRatio is the best Ratio of the shorter string against every
// same-length window of the longer one, including windows cut short at
// either edge.
func (w *WRatio) PartialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	best := w.partial(ra, rb)
	if len(ra) == len(rb) && best < 1 {
		best = math.Max(best, w.partial(rb, ra))
	}
	return 100 * best
}

func (w *WRatio) partial(needle, hay []rune) float64 {
	n, m := len(needle), len(hay)
	s := string(needle)
	best := 0.0
	try := func(window []rune) bool {
		if r := w.metric(s, string(window)); r > best {
			best = r
		}
		return best >= 1
	}

	for i := 1; i < n; i++ {
		if try(hay[:i]) {
			return 1
		}
	}
	for i := 0; i+n <= m; i++ {
		if try(hay[i : i+n]) {
			return 1
		}
	}
	for i := max(m-n+1, 1); i < m; i++ {
		if try(hay[i:]) {
			return 1
		}
	}
	return best
}

// TokenSortRatio compares the strings after sorting their tokens.
func (w *WRatio) TokenSortRatio(a, b string) float64 {
	return w.Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens against each side's remainder.
// When one token set contains the other the result is 100.
func (w *WRatio) TokenSetRatio(a, b string) float64 {
	sect, diffAB, diffBA := splitTokenSets(a, b)
	if sect == nil && diffAB == nil && diffBA == nil {
		return 0
	}
	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	base := strings.Join(sect, " ")
	withAB := strings.TrimSpace(base + " " + strings.Join(diffAB, " "))
	withBA := strings.TrimSpace(base + " " + strings.Join(diffBA, " "))

	best := w.Ratio(withAB, withBA)
	if base != "" {
		best = math.Max(best, w.Ratio(base, withAB))
		best = math.Max(best, w.Ratio(base, withBA))
	}
	return best
}

// TokenRatio is the better of TokenSortRatio and TokenSetRatio.
func (w *WRatio) TokenRatio(a, b string) float64 {
	return math.Max(w.TokenSortRatio(a, b), w.TokenSetRatio(a, b))
}

// PartialTokenRatio is 100 when the strings share any token, otherwise the
// PartialRatio of their sorted token sets.
func (w *WRatio) PartialTokenRatio(a, b string) float64 {
	sect, diffAB, diffBA := splitTokenSets(a, b)
	if len(sect) > 0 {
		return 100
	}
	if len(diffAB) == 0 || len(diffBA) == 0 {
		return 0
	}
	return w.PartialRatio(strings.Join(diffAB, " "), strings.Join(diffBA, " "))
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// splitTokenSets returns the sorted intersection and both sorted differences
// of the token sets of a and b. All three are nil if either side has no tokens.
func splitTokenSets(a, b string) (sect, diffAB, diffBA []string) {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return nil, nil, nil
	}
	sect, diffAB, diffBA = []string{}, []string{}, []string{}
	for t := range ta {
		if _, ok := tb[t]; ok {
			sect = append(sect, t)
		} else {
			diffAB = append(diffAB, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			diffBA = append(diffBA, t)
		}
	}
	sort.Strings(sect)
	sort.Strings(diffAB)
	sort.Strings(diffBA)
	return sect, diffAB, diffBA
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
