package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DUPEFINDER_ADDR", "")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":8430" || cfg.Database.Driver != "sqlite" || cfg.Matching.CloneThreshold != 80 || cfg.DefaultLang != "ru" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DUPEFINDER_ADDR", "")

	path := writeConfig(t, `
addr: ":9000"
default_lang: en
database:
  dsn: /var/lib/dupefinder/catalog.db
log:
  level: debug
  format: json
matching:
  clone_threshold: 95
  metric: jaro_winkler
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.DefaultLang != "en" || cfg.Matching.CloneThreshold != 95 || cfg.Matching.Metric != "jaro_winkler" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver default lost: %q", cfg.Database.Driver)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://bot:secret@db/perfumes?sslmode=disable")
	t.Setenv("DUPEFINDER_ADDR", ":7000")

	cfg, err := loadConfig(writeConfig(t, "addr: \":9000\"\n"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":7000" || cfg.Database.Driver != "postgres" || !strings.HasPrefix(cfg.Database.DSN, "postgres://") {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DUPEFINDER_ADDR", "")

	tests := []struct {
		name string
		body string
		want string
	}{
		{"threshold low", "matching:\n  clone_threshold: 70\n", "clone_threshold"},
		{"threshold high", "matching:\n  clone_threshold: 101\n", "clone_threshold"},
		{"metric", "matching:\n  metric: soundex\n", "matching.metric"},
		{"driver", "database:\n  driver: mysql\n", "database.driver"},
		{"level", "log:\n  level: loud\n", "log.level"},
		{"format", "log:\n  format: xml\n", "log.format"},
		{"yaml", "addr: [\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(logConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("output = %s", out)
	}
}

func TestNewResolver(t *testing.T) {
	if _, err := newResolver(matchingConfig{Metric: "soundex", CloneThreshold: 80}, nil, nil); err == nil {
		t.Error("unknown metric should fail")
	}
	r, err := newResolver(defaultConfig().Matching, nil, nil)
	if err != nil {
		t.Fatalf("newResolver(defaults): %v", err)
	}
	if r.CloneThreshold() != 80 {
		t.Errorf("CloneThreshold = %v, want 80", r.CloneThreshold())
	}
}
