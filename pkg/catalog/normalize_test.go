package catalog

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Dior Sauvage", "dior sauvage"},
		{"  DIOR   sauvage!! ", "dior sauvage"},
		{"Dïor Sauvàge", "dior sauvage"},
		{"Jean-Paul Gaultier", "jean paul gaultier"},
		{"L'Homme", "lhomme"},
		{"L’Homme", "lhomme"},
		{"Dolce & Gabbana", "dolce and gabbana"},
		{"Dolce&Gabbana", "dolce and gabbana"},
		{"Chanel No.5", "chanel no 5"},
		{"Ｃｈａｎｅｌ", "chanel"},
		{"Диор", "dior"},
		{"", ""},
		{"   ", ""},
		{"?!...", ""},
		{"\t\n", ""},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalize_MixedScriptLookalikes(t *testing.T) {
	// Cyrillic о, С and а typed inside otherwise Latin words.
	tests := []struct {
		input, want string
	}{
		{"Diоr Sauvage", "dior sauvage"},
		{"Сhanel", "chanel"},
		{"Tom Ford Nоir", "tom ford noir"},
		{"Sаuvage", "sauvage"},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if got != Normalize(tt.want) {
			t.Errorf("Normalize(%q) and Normalize(%q) diverge", tt.input, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Dior Sauvage", "Jean-Paul Gaultier Le Mâle", "Dolce & Gabbana",
		"Диор Саваж", "Diоr", "L'Eau d'Issey", "Ｎｏ．５", "Maison Francis Kurkdjian — Baccarat Rouge 540",
		"", "   ", "!!!", "ß", "Æther",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("dior sauvage elixir")
	if len(got) != 3 || got[0] != "dior" || got[2] != "elixir" {
		t.Errorf("Tokens = %v", got)
	}
	if len(Tokens("")) != 0 {
		t.Error("Tokens(\"\") should be empty")
	}
}
