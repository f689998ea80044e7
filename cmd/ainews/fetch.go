package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pevans/ainews/scraper"
)

func handleFetch(a *app, args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	dateFlag := fs.String("date", "", "Publication date to keep, YYYY-MM-DD (default: today)")
	all := fs.Bool("all", false, "Fetch every configured source")
	update := fs.Bool("update", false, "Update articles that are already stored")
	verbose := fs.Bool("verbose", false, "Show per-source errors")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: ainews fetch [--date YYYY-MM-DD] [--update] (--all | <source name>)")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	service, err := a.syncService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	date, err := parseDateFlag(*dateFlag, service.Today())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var targets []scraper.Source
	switch {
	case *all:
		targets = a.cfg.Sources
	case fs.NArg() > 0:
		name := strings.Join(fs.Args(), " ")
		src, ok := a.cfg.Source(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown source: %s (see 'ainews sources')\n", name)
			return 1
		}
		targets = []scraper.Source{src}
	default:
		fs.Usage()
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Fetching %d source(s) for %s...\n", len(targets), date)
	results := service.SyncAll(ctx, targets, date, *update)

	failed, found, matched, stored := 0, 0, 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		found += r.Result.Found
		matched += r.Result.Matched
		stored += r.Result.Stored
	}

	fmt.Println()
	fmt.Println("Fetch completed:")
	fmt.Printf("  Sources fetched: %d\n", len(results)-failed)
	fmt.Printf("  Sources failed: %d\n", failed)
	fmt.Printf("  Articles found: %d\n", found)
	fmt.Printf("  Published on %s: %d\n", date, matched)
	fmt.Printf("  Stored: %d\n", stored)

	if matched == 0 && failed == 0 {
		fmt.Printf("\nNo articles found for %s.\n", date)
	}

	if failed > 0 && *verbose {
		fmt.Println()
		fmt.Println("Errors:")
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("  - %s: %v\n", r.Label, r.Err)
			}
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}
