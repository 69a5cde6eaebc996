// CLAUDE:SUMMARY Base string metrics in [0,1] (Indel/LCS, Levenshtein, Jaro-Winkler) selectable by name.
package similarity

import (
	"fmt"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/hbollon/go-edlib"
)

// Metric returns the similarity of two strings in [0, 1]; 1 means identical.
type Metric func(a, b string) float64

// Indel is the normalized insert/delete similarity 2*LCS/(len(a)+len(b)),
// the base ratio of the classic weighted-ratio scorers.
func Indel(a, b string) float64 {
	if a == b {
		return 1
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(edlib.LCS(a, b)) / float64(total)
}

var (
	levenshtein = metrics.NewLevenshtein()
	jaroWinkler = metrics.NewJaroWinkler()
)

// Levenshtein is 1 - editDistance/maxLen.
func Levenshtein(a, b string) float64 {
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, levenshtein)
}

// JaroWinkler favours shared prefixes; useful for short catalogs of brand names.
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, jaroWinkler)
}

// Metric names accepted in configuration.
const (
	MetricIndel       = "indel"
	MetricLevenshtein = "levenshtein"
	MetricJaroWinkler = "jaro_winkler"
)

// MetricByName returns the metric for name. The empty name selects Indel.
func MetricByName(name string) (Metric, error) {
	switch name {
	case "", MetricIndel:
		return Indel, nil
	case MetricLevenshtein:
		return Levenshtein, nil
	case MetricJaroWinkler:
		return JaroWinkler, nil
	default:
		return nil, fmt.Errorf("unknown similarity metric %q", name)
	}
}
