package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Source kinds.
const (
	KindHTML = "html"
	KindFeed = "feed"
)

var (
	ErrInvalidRules = errors.New("invalid site rules")
	ErrUnknownKind  = errors.New("source kind must be html or feed")
)

// SiteRules describes how article cards are marked up on one site's listing
// pages. When the site's markup drifts, extraction finds nothing until these
// are updated.
type SiteRules struct {
	// SiteName prefixes labels derived from listing URLs ("BBC Technology").
	SiteName string `yaml:"site_name" json:"site_name"`
	// BaseURL is the origin site-relative links are resolved against.
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Domains lists the hosts (and their subdomains) whose absolute links
	// are accepted.
	Domains []string `yaml:"domains" json:"domains"`

	CardSelector        string `yaml:"card_selector" json:"card_selector"`
	LinkSelector        string `yaml:"link_selector" json:"link_selector"`
	HeadlineSelector    string `yaml:"headline_selector" json:"headline_selector"`
	HeadingSelector     string `yaml:"heading_selector" json:"heading_selector"`
	DescriptionSelector string `yaml:"description_selector" json:"description_selector"`
	ParagraphSelector   string `yaml:"paragraph_selector" json:"paragraph_selector"`
	DateSelector        string `yaml:"date_selector" json:"date_selector"`
}

// DefaultSiteRules returns the markers used by bbc.com listing pages.
func DefaultSiteRules() SiteRules {
	return SiteRules{
		SiteName:            "BBC",
		BaseURL:             "https://www.bbc.com",
		Domains:             []string{"bbc.com", "bbc.co.uk"},
		CardSelector:        `div[data-indexcard="true"]`,
		LinkSelector:        `a[href]`,
		HeadlineSelector:    `h1[data-testid*="headline"], h2[data-testid*="headline"], h3[data-testid*="headline"]`,
		HeadingSelector:     `h1, h2, h3`,
		DescriptionSelector: `p[data-testid*="description"]`,
		ParagraphSelector:   `p:not([data-testid])`,
		DateSelector:        `span[data-testid="card-metadata-lastupdated"]`,
	}
}

// Validate checks that the base URL is absolute and every selector compiles.
func (r SiteRules) Validate() error {
	base, err := url.Parse(r.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("%w: base_url must be an absolute http(s) URL: %q", ErrInvalidRules, r.BaseURL)
	}
	if len(r.Domains) == 0 {
		return fmt.Errorf("%w: at least one domain is required", ErrInvalidRules)
	}

	selectors := map[string]string{
		"card_selector":        r.CardSelector,
		"link_selector":        r.LinkSelector,
		"headline_selector":    r.HeadlineSelector,
		"heading_selector":     r.HeadingSelector,
		"description_selector": r.DescriptionSelector,
		"paragraph_selector":   r.ParagraphSelector,
		"date_selector":        r.DateSelector,
	}
	for name, sel := range selectors {
		if sel == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalidRules, name)
		}
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRules, name, err)
		}
	}

	return nil
}

// Source is one listing page that can be fetched.
type Source struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
	Kind string `yaml:"kind" json:"kind"` // "html" (default) or "feed"
}

// DefaultSources returns the BBC sections offered out of the box.
func DefaultSources() []Source {
	return []Source{
		{Name: "BBC Innovation", URL: "https://www.bbc.com/innovation", Kind: KindHTML},
		{Name: "BBC News Home", URL: "https://www.bbc.com/news", Kind: KindHTML},
		{Name: "BBC Technology", URL: "https://www.bbc.com/news/technology", Kind: KindHTML},
		{Name: "BBC Science", URL: "https://www.bbc.com/news/science_and_environment", Kind: KindHTML},
		{Name: "BBC Business", URL: "https://www.bbc.com/news/business", Kind: KindHTML},
	}
}

// Label returns the source's name, deriving one from its URL when unset.
func (s Source) Label(siteName string) string {
	if s.Name != "" {
		return s.Name
	}
	return SourceLabel(siteName, s.URL)
}

// SourceLabel derives a display label from a listing URL's last path
// segment: "https://www.bbc.com/innovation" becomes "BBC Innovation". URLs
// without a path fall back to "<site> News".
func SourceLabel(siteName, listingURL string) string {
	fallback := strings.TrimSpace(siteName + " News")

	u, err := url.Parse(listingURL)
	if err != nil {
		return fallback
	}

	var section string
	for _, segment := range strings.Split(u.Path, "/") {
		if segment != "" {
			section = segment
		}
	}
	if section == "" {
		return fallback
	}

	section = strings.ToUpper(section[:1]) + strings.ToLower(section[1:])
	return strings.TrimSpace(siteName + " " + section)
}
