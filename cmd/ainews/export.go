package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/pevans/ainews/articles"
	"github.com/pevans/ainews/report"
)

func handleExport(a *app, args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dateFlag := fs.String("date", "", "Export AI-related articles published on this date (default: today)")
	ids := fs.String("ids", "", "Comma-separated article IDs to export instead of a date")
	output := fs.String("output", "", "Report file name (default: ai_news_<date>.pdf)")
	dir := fs.String("dir", "", "Write to this directory instead of the configured destination")
	fs.Parse(args)

	date, err := parseDateFlag(*dateFlag, civil.DateOf(time.Now()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var items []articles.Article
	if *ids != "" {
		selected, err := parseIDs(*ids)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		items, err = a.store.GetArticles(selected)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load articles: %v\n", err)
			return 1
		}
	} else {
		items, err = a.store.ListClassified(&date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list articles: %v\n", err)
			return 1
		}
	}

	data, err := a.exporter().Export(items)
	if errors.Is(err, report.ErrNothingToExport) {
		fmt.Println("No articles to export.")
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	name := *output
	if name == "" {
		name = report.FileName(date)
	}

	ctx, cancel := signalContext()
	defer cancel()

	sink, err := a.reportSink(ctx, *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	location, err := sink.Save(ctx, name, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Exported %d article(s) to %s\n", len(items), location)
	return 0
}

// parseIDs parses a comma-separated list of article IDs.
func parseIDs(value string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid article ID %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
