// CLAUDE:SUMMARY Match normalization for catalog keys and queries: NFKC, homoglyph folding, transliteration, lowercase, punctuation collapse.
package catalog

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer transforms a display string into its comparison form.
type Normalizer func(string) string

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// cyrillicLookalikes maps Cyrillic letters to the Latin letter they are drawn as.
// Only applied inside words that already mix Latin and Cyrillic letters.
var cyrillicLookalikes = map[rune]rune{
	'а': 'a', 'в': 'b', 'е': 'e', 'ё': 'e', 'к': 'k', 'м': 'm', 'н': 'h',
	'о': 'o', 'р': 'p', 'с': 'c', 'т': 't', 'у': 'y', 'х': 'x', 'і': 'i',
	'ј': 'j', 'ѕ': 's', 'ԁ': 'd',
	'А': 'A', 'В': 'B', 'Е': 'E', 'Ё': 'E', 'К': 'K', 'М': 'M', 'Н': 'H',
	'О': 'O', 'Р': 'P', 'С': 'C', 'Т': 'T', 'У': 'Y', 'Х': 'X', 'І': 'I',
	'Ј': 'J', 'Ѕ': 'S',
}

// Normalize canonicalizes text for matching. It is pure and total:
//   - NFKC (fullwidth and ligature forms collapse)
//   - Cyrillic lookalikes folded to Latin inside mixed-script words
//   - transliteration to ASCII, accents stripped
//   - lowercase
//   - apostrophes dropped, "&" spelled "and", other punctuation becomes a space
//   - whitespace collapsed and trimmed
//
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	s = norm.NFKC.String(s)
	s = foldMixedScript(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\'' || r == '`':
			// "l'homme" and "lhomme" converge.
		case r == '&':
			b.WriteString(" and ")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// foldMixedScript rewrites Cyrillic lookalike letters to Latin in every
// whitespace-delimited word that contains letters from both scripts.
// Words written entirely in Cyrillic are left for transliteration.
func foldMixedScript(s string) string {
	words := strings.Fields(s)
	changed := false
	for i, w := range words {
		var latin, cyrillic bool
		for _, r := range w {
			switch {
			case unicode.Is(unicode.Latin, r):
				latin = true
			case unicode.Is(unicode.Cyrillic, r):
				cyrillic = true
			}
		}
		if !latin || !cyrillic {
			continue
		}
		words[i] = strings.Map(func(r rune) rune {
			if l, ok := cyrillicLookalikes[r]; ok {
				return l
			}
			return r
		}, w)
		changed = true
	}
	if !changed {
		return s
	}
	return strings.Join(words, " ")
}

// Tokens splits a normalized string into its words.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}
