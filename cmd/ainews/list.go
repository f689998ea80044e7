package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pevans/ainews/articles"
)

func handleList(a *app, args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dateFlag := fs.String("date", "", "Only articles published on this date, YYYY-MM-DD")
	all := fs.Bool("all", false, "Show all stored articles, not just AI-related ones")
	unclassified := fs.Bool("unclassified", false, "Show only articles not yet classified")
	source := fs.String("source", "", "Filter by source name (with --all)")
	limit := fs.Int("limit", 0, "Maximum number of articles to display (with --all)")
	offset := fs.Int("offset", 0, "Number of articles to skip (with --all)")
	format := fs.String("format", "table", "Output format: table, json, detail")
	fs.Parse(args)

	var date *civil.Date
	if *dateFlag != "" {
		d, err := parseDateFlag(*dateFlag, civil.DateOf(time.Now()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		date = &d
	}

	var items []articles.Article
	var err error
	switch {
	case *unclassified:
		items, err = a.store.ListUnclassified()
	case *all:
		filter := articles.ArticleFilter{Date: date, Limit: *limit, Offset: *offset}
		if *source != "" {
			filter.Source = source
		}
		items, err = a.store.ListArticles(filter)
	default:
		items, err = a.store.ListClassified(date)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list articles: %v\n", err)
		return 1
	}

	switch *format {
	case "json":
		return exitOnPrintError(printArticleJSON(os.Stdout, items))
	case "detail":
		printArticleDetail(os.Stdout, items)
	case "table":
		printArticleTable(os.Stdout, items)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format: %s\n", *format)
		return 1
	}
	return 0
}
