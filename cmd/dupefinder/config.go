// CLAUDE:SUMMARY YAML config with defaults, DATABASE_URL / DUPEFINDER_ADDR overrides, validation and slog setup.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/dupefinder/pkg/resolve"
	"github.com/hazyhaar/dupefinder/pkg/similarity"
	"github.com/hazyhaar/dupefinder/pkg/store"
)

type config struct {
	Addr        string         `yaml:"addr"`
	DefaultLang string         `yaml:"default_lang"`
	Messages    string         `yaml:"messages"` // optional catalog overlay
	Database    databaseConfig `yaml:"database"`
	Log         logConfig      `yaml:"log"`
	Matching    matchingConfig `yaml:"matching"`
}

type databaseConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"dsn"`
}

type logConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type matchingConfig struct {
	CloneThreshold float64 `yaml:"clone_threshold"`
	Metric         string  `yaml:"metric"`
}

func defaultConfig() config {
	return config{
		Addr:        ":8430",
		DefaultLang: "ru",
		Database:    databaseConfig{Driver: store.DriverSQLite, DSN: "dupefinder.db"},
		Log:         logConfig{Level: "info", Format: "text"},
		Matching: matchingConfig{
			CloneThreshold: resolve.DefaultCloneThreshold,
			Metric:         similarity.MetricIndel,
		},
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			cfg.Database.Driver = store.DriverPostgres
		}
	}
	if v := os.Getenv("DUPEFINDER_ADDR"); v != "" {
		cfg.Addr = v
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is empty")
	}
	if t := c.Matching.CloneThreshold; t < resolve.DefaultCloneThreshold || t > resolve.MaxCloneThreshold {
		return fmt.Errorf("matching.clone_threshold %v outside [%v, %v]",
			t, resolve.DefaultCloneThreshold, resolve.MaxCloneThreshold)
	}
	if _, err := similarity.MetricByName(c.Matching.Metric); err != nil {
		return fmt.Errorf("matching.metric: %w", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

func newLogger(c logConfig, w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
