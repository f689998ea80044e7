package scraper

import (
	"cloud.google.com/go/civil"
	"github.com/pevans/ainews/articles"
)

// FilterByDate keeps the articles published on target, preserving order.
func FilterByDate(items []articles.Article, target civil.Date) []articles.Article {
	matched := []articles.Article{}
	for _, item := range items {
		if item.PublicationDate == target {
			matched = append(matched, item)
		}
	}
	return matched
}
