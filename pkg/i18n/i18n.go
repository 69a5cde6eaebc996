// CLAUDE:SUMMARY Localized message catalog (embedded YAML, optional override file) with default-language fallback.
package i18n

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Message keys used by the resolver surfaces.
const (
	KeyEmptyQuery      = "error_empty_query"
	KeyNotFound        = "error_not_found"
	KeyBrandOnly       = "error_brand_only"
	KeyFuzzyMatch      = "note_fuzzy_match"
	KeyFoundByClone    = "note_found_by_clone"
	KeyNotePrefix      = "response_note_prefix"
	KeyNoCopies        = "response_not_found_copies"
	KeySearchLinkLabel = "response_search_link_prefix"
	KeyPriceLine       = "response_price_line"
	KeyFooter          = "response_footer"
	KeyBuyWord         = "search_query_buy_word"

	KeyRandomTitle     = "random_title"
	KeyPopularTitle    = "popular_title"
	KeyPopularEmpty    = "popular_empty"
	KeyHistoryTitle    = "history_title"
	KeyHistoryEmpty    = "history_empty"
	KeyHistoryNotFound = "history_not_found"
	KeyCountRequests   = "count_requests"
)

// DefaultLang is the fallback language of the embedded catalog.
const DefaultLang = "ru"

//go:embed messages.yaml
var embedded []byte

// file is the on-disk layout of a message catalog.
type file struct {
	Default   string                       `yaml:"default"`
	Languages map[string]map[string]string `yaml:"languages"`
}

// Catalog maps (language, key) to a display string. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	defaultLang string
	messages    map[string]map[string]string
}

// Parse decodes a YAML message catalog.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}
	if len(f.Languages) == 0 {
		return nil, fmt.Errorf("parse messages: no languages")
	}
	if f.Default == "" {
		f.Default = DefaultLang
	}
	if _, ok := f.Languages[f.Default]; !ok {
		return nil, fmt.Errorf("parse messages: default language %q not defined", f.Default)
	}
	return &Catalog{defaultLang: f.Default, messages: f.Languages}, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embedded)
		if err != nil {
			panic("i18n: embedded catalog: " + err.Error())
		}
		defaultCat = c
	})
	return defaultCat
}

// Load reads a catalog file and overlays it on the embedded one: keys and
// languages it defines win, everything else keeps the embedded text.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse messages %s: %w", path, err)
	}

	base := Default()
	merged := make(map[string]map[string]string, len(base.messages)+len(f.Languages))
	for lang, msgs := range base.messages {
		m := make(map[string]string, len(msgs))
		for k, v := range msgs {
			m[k] = v
		}
		merged[lang] = m
	}
	for lang, msgs := range f.Languages {
		if merged[lang] == nil {
			merged[lang] = make(map[string]string, len(msgs))
		}
		for k, v := range msgs {
			merged[lang][k] = v
		}
	}

	def := base.defaultLang
	if f.Default != "" {
		if _, ok := merged[f.Default]; !ok {
			return nil, fmt.Errorf("messages %s: default language %q not defined", path, f.Default)
		}
		def = f.Default
	}
	return &Catalog{defaultLang: def, messages: merged}, nil
}

// WithDefault returns a copy of c whose fallback language is lang.
func (c *Catalog) WithDefault(lang string) (*Catalog, error) {
	if !c.Has(lang) {
		return nil, fmt.Errorf("default language %q not defined", lang)
	}
	return &Catalog{defaultLang: lang, messages: c.messages}, nil
}

// DefaultLang returns the fallback language.
func (c *Catalog) DefaultLang() string { return c.defaultLang }

// Has reports whether lang has its own messages.
func (c *Catalog) Has(lang string) bool {
	_, ok := c.messages[lang]
	return ok
}

// Languages returns the defined languages, sorted.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.messages))
	for l := range c.messages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Message returns the text for key in lang. An unknown language falls back to
// the default language; a key missing there too yields "MISSING_MESSAGE_KEY:<key>".
func (c *Catalog) Message(key, lang string) string {
	msgs, ok := c.messages[lang]
	if !ok {
		msgs = c.messages[c.defaultLang]
	}
	if s, ok := msgs[key]; ok {
		return s
	}
	if s, ok := c.messages[c.defaultLang][key]; ok {
		return s
	}
	return "MISSING_MESSAGE_KEY:" + key
}

// Format returns Message(key, lang) with every {name} placeholder replaced by
// args[name]. Unknown placeholders are left as is.
func (c *Catalog) Format(key, lang string, args map[string]string) string {
	msg := c.Message(key, lang)
	if len(args) == 0 {
		return msg
	}
	pairs := make([]string, 0, 2*len(args))
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}
