package i18n

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Languages(t *testing.T) {
	c := Default()
	if c.DefaultLang() != "ru" {
		t.Errorf("DefaultLang = %q", c.DefaultLang())
	}
	got := c.Languages()
	if len(got) != 2 || got[0] != "en" || got[1] != "ru" {
		t.Errorf("Languages = %v", got)
	}
}

func TestMessage(t *testing.T) {
	c := Default()
	tests := []struct {
		key, lang, want string
	}{
		{KeyBuyWord, "en", "buy"},
		{KeyBuyWord, "ru", "купить"},
		{KeyBuyWord, "de", "купить"},
		{KeyBuyWord, "", "купить"},
		{"no_such_key", "en", "MISSING_MESSAGE_KEY:no_such_key"},
	}
	for _, tt := range tests {
		if got := c.Message(tt.key, tt.lang); got != tt.want {
			t.Errorf("Message(%q, %q) = %q, want %q", tt.key, tt.lang, got, tt.want)
		}
	}
}

func TestEveryKeyDefinedInEveryLanguage(t *testing.T) {
	c := Default()
	keys := []string{
		KeyEmptyQuery, KeyNotFound, KeyBrandOnly, KeyFuzzyMatch, KeyFoundByClone,
		KeyNotePrefix, KeyNoCopies, KeySearchLinkLabel, KeyPriceLine, KeyFooter, KeyBuyWord,
		KeyRandomTitle, KeyPopularTitle, KeyPopularEmpty, KeyHistoryTitle, KeyHistoryEmpty,
		KeyHistoryNotFound, KeyCountRequests,
	}
	for _, lang := range c.Languages() {
		for _, k := range keys {
			if _, ok := c.messages[lang][k]; !ok {
				t.Errorf("%s: missing %s", lang, k)
			}
		}
	}
}

func TestFormat(t *testing.T) {
	c := Default()
	got := c.Format(KeyBrandOnly, "en", map[string]string{"brand_name": "Chanel"})
	if !strings.Contains(got, "**Chanel**") || strings.Contains(got, "{brand_name}") {
		t.Errorf("Format = %q", got)
	}
	got = c.Format(KeyPriceLine, "en", map[string]string{"price": "12.50", "saved_amount": "80"})
	if got != "Price: 12.50 € | Savings: 80%" {
		t.Errorf("Format price = %q", got)
	}
	if got := c.Format(KeyBrandOnly, "en", nil); !strings.Contains(got, "{brand_name}") {
		t.Errorf("Format without args = %q", got)
	}
}

func TestLoad_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	data := `
default: en
languages:
  en:
    search_query_buy_word: "shop"
  fr:
    search_query_buy_word: "acheter"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DefaultLang() != "en" {
		t.Errorf("DefaultLang = %q", c.DefaultLang())
	}
	if got := c.Message(KeyBuyWord, "en"); got != "shop" {
		t.Errorf("en buy word = %q", got)
	}
	if got := c.Message(KeyBuyWord, "fr"); got != "acheter" {
		t.Errorf("fr buy word = %q", got)
	}
	// fr has no not-found text: falls back to the default language.
	if got := c.Message(KeyNotFound, "fr"); !strings.HasPrefix(got, "Sorry") {
		t.Errorf("fr fallback = %q", got)
	}
	// The embedded catalog is untouched.
	if got := Default().Message(KeyBuyWord, "en"); got != "buy" {
		t.Errorf("embedded mutated: %q", got)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, data := range []string{
		"languages: {}",
		"default: xx\nlanguages:\n  en:\n    a: b\n",
		"::not yaml",
	} {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("Parse(%q) succeeded", data)
		}
	}
}

func TestWithDefault(t *testing.T) {
	c, err := Default().WithDefault("en")
	if err != nil {
		t.Fatalf("WithDefault: %v", err)
	}
	if c.DefaultLang() != "en" || Default().DefaultLang() != DefaultLang {
		t.Errorf("defaults = %q, %q", c.DefaultLang(), Default().DefaultLang())
	}
	if got := c.Message(KeyBuyWord, "xx"); got != "buy" {
		t.Errorf("fallback = %q, want buy", got)
	}
	if _, err := Default().WithDefault("xx"); err == nil {
		t.Error("expected error for undefined language")
	}
}
