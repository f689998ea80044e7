package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/pevans/ainews/articles"
	"github.com/pevans/ainews/scraper"
)

const (
	titleWidth  = 70
	sourceWidth = 20
)

// truncate shortens s to width display cells.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

func verdictLabel(item articles.Article) string {
	switch {
	case item.AIRelated == nil:
		return "-"
	case *item.AIRelated:
		return "yes"
	default:
		return "no"
	}
}

// printArticleTable prints articles in human-readable table format
func printArticleTable(w io.Writer, items []articles.Article) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No articles to display.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Date", "Source", "AI", "Title"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, item := range items {
		table.Append([]string{
			item.ID.String()[:8],
			item.PublicationDate.String(),
			truncate(item.Source, sourceWidth),
			verdictLabel(item),
			truncate(item.Title, titleWidth),
		})
	}
	table.Render()

	fmt.Fprintf(w, "\n%d article(s)\n", len(items))
}

// printArticleJSON prints articles in JSON format
func printArticleJSON(w io.Writer, items []articles.Article) error {
	output := map[string]any{
		"articles": items,
		"total":    len(items),
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Fprintln(w, string(data))
	return nil
}

// printArticleDetail prints each article with its URL and summary, the way
// the report lays them out.
func printArticleDetail(w io.Writer, items []articles.Article) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No articles to display.")
		return
	}

	for _, item := range items {
		fmt.Fprintf(w, "%s\n", item.Title)
		fmt.Fprintf(w, "   %s | %s | AI: %s\n", item.Source, item.PublicationDate, verdictLabel(item))
		fmt.Fprintf(w, "   URL: %s\n", item.URL)
		if item.Summary != nil {
			fmt.Fprintf(w, "   %s\n", truncate(*item.Summary, 150))
		}
		fmt.Fprintf(w, "   ID: %s\n", item.ID)
		fmt.Fprintln(w)
	}
}

// printSourceTable prints configured sources
func printSourceTable(w io.Writer, sources []scraper.Source, siteName string) {
	if len(sources) == 0 {
		fmt.Fprintln(w, "No sources configured.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Kind", "URL"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, src := range sources {
		table.Append([]string{src.Label(siteName), src.Kind, src.URL})
	}
	table.Render()
}

func exitOnPrintError(err error) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
