package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/dupefinder/pkg/api"
	"github.com/hazyhaar/dupefinder/pkg/catalog"
	"github.com/hazyhaar/dupefinder/pkg/format"
	"github.com/hazyhaar/dupefinder/pkg/i18n"
	"github.com/hazyhaar/dupefinder/pkg/kit"
	"github.com/hazyhaar/dupefinder/pkg/resolve"
	"github.com/hazyhaar/dupefinder/pkg/similarity"
	"github.com/hazyhaar/dupefinder/pkg/store"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	case "resolve":
		cmdResolve(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: dupefinder <command> [flags]

Commands:
  serve     Start the HTTP API (with MCP at /mcp)
  mcp       Serve the MCP tools over stdio
  import    Replace the stored catalog from a source
  export    Write the stored catalog as CSV
  resolve   Resolve a query from the command line
  stats     Print catalog and query statistics
  version   Print the version
`)
}

// app is the wiring shared by every command.
type app struct {
	cfg     config
	logger  *slog.Logger
	store   *store.Store
	catalog *catalog.Catalog
	backend *api.Backend
}

// openApp loads the config, opens the store and builds the resolver stack.
// The catalog snapshot is loaded only when load is set.
func openApp(ctx context.Context, cfgPath string, load bool) *app {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		fatal(logger, "open store", err)
	}

	msgs := i18n.Default()
	if cfg.Messages != "" {
		if msgs, err = i18n.Load(cfg.Messages); err != nil {
			fatal(logger, "load messages", err)
		}
	}
	if msgs, err = msgs.WithDefault(cfg.DefaultLang); err != nil {
		fatal(logger, "default_lang", err)
	}

	res, err := newResolver(cfg.Matching, st, logger)
	if err != nil {
		fatal(logger, "resolver", err)
	}

	cat := catalog.New(st, logger)
	if load {
		if err := cat.Load(ctx); err != nil {
			fatal(logger, "load catalog", err)
		}
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		catalog: cat,
		backend: &api.Backend{
			Catalog:  cat,
			Resolver: res,
			Store:    st,
			Renderer: format.New(msgs),
			Logger:   logger,
		},
	}
}

func newResolver(m matchingConfig, lookup resolve.Lookup, logger *slog.Logger) (*resolve.Resolver, error) {
	metric, err := similarity.MetricByName(m.Metric)
	if err != nil {
		return nil, err
	}
	return resolve.New(resolve.Config{
		Scorer:         similarity.NewWRatio(metric),
		Lookup:         lookup,
		CloneThreshold: m.CloneThreshold,
		Logger:         logger,
	})
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	a := openApp(context.Background(), *cfgPath, true)
	defer a.close()
	logger := a.logger

	router := api.NewRouter(a.backend, api.NewMCPServer(a.backend, version))
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGHUP: rebuild the catalog snapshot from the store.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading catalog")
			if err := a.catalog.Reload(ctx); err != nil {
				logger.Error("reload failed", "error", err)
			}
		}
	}()

	go func() {
		logger.Info("dupefinder listening",
			"addr", a.cfg.Addr,
			"driver", a.store.Driver(),
			"clone_threshold", a.backend.Resolver.CloneThreshold(),
			"metric", a.cfg.Matching.Metric,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	a := openApp(context.Background(), *cfgPath, true)
	defer a.close()

	if err := server.ServeStdio(api.NewMCPServer(a.backend, version)); err != nil {
		fatal(a.logger, "mcp stdio", err)
	}
}

func cmdResolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	lang := fs.String("lang", "", "reply language (default from config)")
	asJSON := fs.Bool("json", false, "print the full outcome as JSON")
	fs.Parse(args)

	ctx := kit.WithUserID(kit.WithTransport(context.Background(), "cli"), "cli")
	a := openApp(ctx, *cfgPath, true)
	defer a.close()

	resp, err := a.backend.Resolve(ctx, strings.Join(fs.Args(), " "), *lang)
	if err != nil {
		fatal(a.logger, "resolve", err)
	}
	if *asJSON {
		printJSON(resp)
		return
	}
	fmt.Println(resp.Text)
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	limit := fs.Int("limit", 10, "rows per top list")
	fs.Parse(args)

	ctx := context.Background()
	a := openApp(ctx, *cfgPath, false)
	defer a.close()

	st, err := a.store.Stats(ctx, *limit)
	if err != nil {
		fatal(a.logger, "stats", err)
	}
	runs, err := a.store.ListImports(ctx, *limit)
	if err != nil {
		fatal(a.logger, "list imports", err)
	}
	printJSON(struct {
		Stats   store.Stats       `json:"stats"`
		Imports []store.ImportRun `json:"imports"`
	}{st, runs})
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
