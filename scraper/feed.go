package scraper

import (
	"bytes"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/ainews/articles"
	"github.com/sirupsen/logrus"
)

// FeedExtractor reads articles from an RSS, Atom, or JSON feed published by
// the same site. Entries get the same link, dedup, and completeness rules
// as HTML cards.
type FeedExtractor struct {
	links    *linkResolver
	resolver *DateResolver
	log      logrus.FieldLogger
}

// NewFeedExtractor returns a feed extractor accepting links on the rules'
// domains.
func NewFeedExtractor(rules SiteRules, resolver *DateResolver, logger logrus.FieldLogger) (*FeedExtractor, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	links, err := newLinkResolver(rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if resolver == nil {
		resolver = NewDateResolver(logger)
	}

	return &FeedExtractor{links: links, resolver: resolver, log: logger}, nil
}

// Extract parses body as a feed and returns its complete entries.
func (f *FeedExtractor) Extract(body []byte, source string) ([]articles.Article, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	log := f.log.WithField("source", source)
	found := []articles.Article{}
	seen := map[string]bool{}

	for _, entry := range feed.Items {
		articleURL, ok := f.links.resolve(entry.Link)
		if !ok {
			log.WithField("href", entry.Link).Debug("discarding off-site or malformed link")
			continue
		}
		if seen[articleURL] {
			continue
		}
		seen[articleURL] = true

		title := normalizeText(entry.Title)
		date, ok := f.entryDate(entry)
		if title == "" || !ok {
			log.WithField("url", articleURL).Debug("skipping incomplete entry")
			continue
		}

		var summary *string
		if text := normalizeText(entry.Description); text != "" {
			summary = &text
		}

		found = append(found, articles.Article{
			Title:           title,
			URL:             articleURL,
			PublicationDate: date,
			Summary:         summary,
			Source:          source,
		})
	}

	log.WithField("articles", len(found)).Info("extracted feed entries")
	return found, nil
}

func (f *FeedExtractor) entryDate(entry *gofeed.Item) (civil.Date, bool) {
	loc := f.resolver.location()
	switch {
	case entry.PublishedParsed != nil:
		return civil.DateOf(entry.PublishedParsed.In(loc)), true
	case entry.UpdatedParsed != nil:
		return civil.DateOf(entry.UpdatedParsed.In(loc)), true
	case entry.Published != "":
		return f.resolver.Resolve(entry.Published)
	}
	return civil.Date{}, false
}
