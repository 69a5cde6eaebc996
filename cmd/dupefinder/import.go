// CLAUDE:SUMMARY CLI subcommands that replace the stored catalog from an import adapter and export it back to CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hazyhaar/dupefinder/pkg/importer"
)

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	source := fs.String("source", "csv", "adapter ID (csv, legacy-sqlite)")
	from := fs.String("from", "", "local path or http(s) URL of the catalog")
	delimiter := fs.String("delimiter", "", "CSV delimiter (overrides manifest.yaml)")
	encoding := fs.String("encoding", "", "source charset, e.g. windows-1251 (overrides manifest.yaml)")
	list := fs.Bool("list", false, "list available adapters and recent imports")
	fs.Parse(args)

	if *list || *from == "" {
		fmt.Println("Available sources:")
		fmt.Println()
		for _, a := range importer.All() {
			fmt.Printf("  %-15s  %s\n", a.ID(), a.Description())
		}
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  dupefinder import --source <id> --from <path|url> [--config <file>]")
		if !*list {
			os.Exit(1)
		}
		printRecentImports(*cfgPath)
		return
	}

	a, err := importer.Get(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	env := openApp(ctx, *cfgPath, false)
	defer env.close()

	fmt.Printf("[%s] importing %s...\n", a.ID(), *from)
	rep, err := importer.Run(ctx, a, *from, importer.Options{Delimiter: *delimiter, Encoding: *encoding}, env.store, env.logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[%s] ERROR: %v\n", a.ID(), err)
		os.Exit(1)
	}
	fmt.Printf("[%s] OK: %d originals, %d clones, %d skipped in %s\n",
		a.ID(), rep.Result.Originals, rep.Result.Clones, rep.Result.Skipped, rep.Duration.Round(time.Millisecond))
	fmt.Println("Running servers pick the new catalog up on SIGHUP or POST /v1/reload.")
}

func printRecentImports(cfgPath string) {
	ctx := context.Background()
	env := openApp(ctx, cfgPath, false)
	defer env.close()

	runs, err := env.store.ListImports(ctx, 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list imports: %v\n", err)
		return
	}
	if len(runs) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Recent imports:")
	for _, r := range runs {
		fmt.Printf("  %s  %-15s  %5d originals  %5d clones  %4d skipped  %s\n",
			r.CreatedAt.Format(time.DateTime), r.Adapter, r.Originals, r.Clones, r.Skipped, r.Source)
	}
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	out := fs.String("out", "export", "output directory")
	fs.Parse(args)

	ctx := context.Background()
	env := openApp(ctx, *cfgPath, false)
	defer env.close()

	originals, clones, err := env.store.Dump(ctx)
	if err != nil {
		fatal(env.logger, "dump catalog", err)
	}
	m := importer.Manifest{
		Name:    "dupefinder",
		Version: time.Now().UTC().Format("2006-01-02"),
		Source:  env.store.Driver(),
	}
	if err := importer.ExportCSV(*out, originals, clones, m); err != nil {
		fatal(env.logger, "export", err)
	}
	fmt.Printf("exported %d originals, %d clones to %s\n", len(originals), len(clones), *out)
}
