package scraper

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/ainews/articles"
	"github.com/sirupsen/logrus"
)

// TitleUnavailable marks a card whose heading could not be found. Such
// cards never pass the completeness check.
const TitleUnavailable = "N/A"

// ErrParseFailed is returned when a document cannot be parsed at all.
var ErrParseFailed = errors.New("parse failed")

// ArticleExtractor pulls candidate articles out of a fetched page.
type ArticleExtractor interface {
	Extract(body []byte, source string) ([]articles.Article, error)
}

// Extractor reads article cards out of an HTML listing page.
type Extractor struct {
	rules    SiteRules
	links    *linkResolver
	resolver *DateResolver
	log      logrus.FieldLogger
}

// NewExtractor validates rules and returns an extractor for them.
func NewExtractor(rules SiteRules, resolver *DateResolver, logger logrus.FieldLogger) (*Extractor, error) {
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

	return &Extractor{
		rules:    rules,
		links:    links,
		resolver: resolver,
		log:      logger,
	}, nil
}

// Extract returns the complete articles found on the page, in document
// order, each URL at most once. Cards without a usable link, title, or date
// are dropped. A page with no cards yields an empty slice, not an error.
func (e *Extractor) Extract(body []byte, source string) ([]articles.Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	cards := doc.Find(e.rules.CardSelector)
	log := e.log.WithField("source", source)
	log.WithField("cards", cards.Length()).Debug("found article cards")

	found := []articles.Article{}
	seen := map[string]bool{}

	cards.Each(func(i int, card *goquery.Selection) {
		link := card.Find(e.rules.LinkSelector).FilterFunction(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			return strings.TrimSpace(href) != ""
		}).First()
		if link.Length() == 0 {
			return
		}

		href, _ := link.Attr("href")
		articleURL, ok := e.links.resolve(href)
		if !ok {
			log.WithField("href", href).Debug("discarding off-site or malformed link")
			return
		}
		if seen[articleURL] {
			return
		}
		seen[articleURL] = true

		item := articles.Article{
			Title:   e.title(link, card),
			URL:     articleURL,
			Summary: e.summary(card),
			Source:  source,
		}

		date, ok := e.date(card)
		if !ok || item.Title == TitleUnavailable {
			log.WithField("url", articleURL).Debug("skipping incomplete card")
			return
		}
		item.PublicationDate = date

		found = append(found, item)
	})

	log.WithField("articles", len(found)).Info("extracted articles")
	return found, nil
}

// title prefers a headline-marked heading inside the link, then any
// heading inside the link, then the same two searches across the card.
func (e *Extractor) title(link, card *goquery.Selection) string {
	for _, scope := range []*goquery.Selection{link, card} {
		for _, sel := range []string{e.rules.HeadlineSelector, e.rules.HeadingSelector} {
			if text := normalizeText(scope.Find(sel).First().Text()); text != "" {
				return text
			}
		}
	}
	return TitleUnavailable
}

func (e *Extractor) summary(card *goquery.Selection) *string {
	for _, sel := range []string{e.rules.DescriptionSelector, e.rules.ParagraphSelector} {
		node := card.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := normalizeText(node.Text()); text != "" {
			return &text
		}
		return nil
	}
	return nil
}

func (e *Extractor) date(card *goquery.Selection) (civil.Date, bool) {
	text := normalizeText(card.Find(e.rules.DateSelector).First().Text())
	if text == "" {
		return civil.Date{}, false
	}
	return e.resolver.Resolve(text)
}

// normalizeText collapses runs of whitespace into single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
