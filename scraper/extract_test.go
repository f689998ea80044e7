package scraper

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPage = `<!DOCTYPE html>
<html><body>
<main>
  <div data-indexcard="true">
    <a href="/news/articles/a1">
      <h2 data-testid="card-headline">  Robots learn
        to fold laundry </h2>
    </a>
    <p data-testid="card-description">A new model handles towels.</p>
    <span data-testid="card-metadata-lastupdated">3 hrs ago</span>
  </div>

  <div data-indexcard="true">
    <a href="/news/articles/a1#comments"><h2 data-testid="card-headline">Duplicate</h2></a>
    <span data-testid="card-metadata-lastupdated">3 hrs ago</span>
  </div>

  <div data-indexcard="true">
    <a href="https://example.com/elsewhere"><h2 data-testid="card-headline">Off-site</h2></a>
    <span data-testid="card-metadata-lastupdated">3 hrs ago</span>
  </div>

  <div data-indexcard="true">
    <a href="//www.bbc.co.uk/news/b2"><h2 data-testid="card-headline">Protocol relative</h2></a>
    <span data-testid="card-metadata-lastupdated">Yesterday</span>
  </div>

  <div data-indexcard="true">
    <a href="/news/articles/no-date"><h2 data-testid="card-headline">No date</h2></a>
  </div>

  <div data-indexcard="true">
    <a href="/news/articles/fallback"><h3>Plain heading</h3></a>
    <p>First plain paragraph.</p>
    <p>Second plain paragraph.</p>
    <span data-testid="card-metadata-lastupdated">2 days ago</span>
  </div>

  <div data-indexcard="true">
    <a href="/news/articles/no-title"><span>Just a link</span></a>
    <span data-testid="card-metadata-lastupdated">3 hrs ago</span>
  </div>

  <div data-indexcard="true">
    <a href="/news/articles/no-summary"><h2 data-testid="card-headline">No summary</h2></a>
    <span data-testid="card-metadata-lastupdated">5 mins ago</span>
  </div>

  <div data-indexcard="true">
    <a href="">Empty link</a>
    <span data-testid="card-metadata-lastupdated">3 hrs ago</span>
  </div>

  <div data-indexcard="true">
    <a href="mailto:news@bbc.co.uk"><h2 data-testid="card-headline">Mail</h2></a>
    <span data-testid="card-metadata-lastupdated">3 hrs ago</span>
  </div>

  <div data-indexcard="true">
    <a href="/news/articles/bad-date"><h2 data-testid="card-headline">Bad date</h2></a>
    <span data-testid="card-metadata-lastupdated">sometime soon</span>
  </div>
</main>
</body></html>`

// Test helper: create an extractor for the default rules and a fixed clock
func createTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	e, err := NewExtractor(DefaultSiteRules(), createTestResolver(t), logger)
	require.NoError(t, err, "should create extractor")
	return e
}

// TestExtract_ListingPage verifies card extraction end to end
func TestExtract_ListingPage(t *testing.T) {
	e := createTestExtractor(t)

	items, err := e.Extract([]byte(listingPage), "BBC Innovation")
	require.NoError(t, err)
	require.Len(t, items, 4)

	first := items[0]
	assert.Equal(t, "Robots learn to fold laundry", first.Title)
	assert.Equal(t, "https://www.bbc.com/news/articles/a1", first.URL)
	assert.Equal(t, date(2025, 4, 15), first.PublicationDate)
	require.NotNil(t, first.Summary)
	assert.Equal(t, "A new model handles towels.", *first.Summary)
	assert.Equal(t, "BBC Innovation", first.Source)

	assert.Equal(t, "https://www.bbc.co.uk/news/b2", items[1].URL)
	assert.Equal(t, date(2025, 4, 14), items[1].PublicationDate)

	fallback := items[2]
	assert.Equal(t, "Plain heading", fallback.Title)
	require.NotNil(t, fallback.Summary)
	assert.Equal(t, "First plain paragraph.", *fallback.Summary)
	assert.Equal(t, date(2025, 4, 13), fallback.PublicationDate)

	noSummary := items[3]
	assert.Equal(t, "No summary", noSummary.Title)
	assert.Nil(t, noSummary.Summary)
}

// TestExtract_Dedup verifies one record per URL even across fragments
func TestExtract_Dedup(t *testing.T) {
	e := createTestExtractor(t)
	page := `<div data-indexcard="true"><a href="/a"><h2>One</h2></a>
		<span data-testid="card-metadata-lastupdated">3 hrs ago</span></div>
		<div data-indexcard="true"><a href="https://www.bbc.com/a"><h2>Two</h2></a>
		<span data-testid="card-metadata-lastupdated">3 hrs ago</span></div>`

	items, err := e.Extract([]byte(page), "BBC News")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "One", items[0].Title, "first occurrence wins")
}

// TestExtract_TitleScope verifies the link is searched before the card
func TestExtract_TitleScope(t *testing.T) {
	e := createTestExtractor(t)
	page := `<div data-indexcard="true">
		<a href="/news/articles/image-only"><img src="/thumb.jpg" alt=""></a>
		<h3 data-testid="card-headline">Heading beside the image</h3>
		<span data-testid="card-metadata-lastupdated">3 hrs ago</span></div>
		<div data-indexcard="true">
		<h2>Section heading</h2>
		<a href="/news/articles/in-link"><h3>Heading in the link</h3></a>
		<span data-testid="card-metadata-lastupdated">3 hrs ago</span></div>`

	items, err := e.Extract([]byte(page), "BBC News")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://www.bbc.com/news/articles/image-only", items[0].URL)
	assert.Equal(t, "Heading beside the image", items[0].Title, "card heading used when the link has none")

	assert.Equal(t, "https://www.bbc.com/news/articles/in-link", items[1].URL)
	assert.Equal(t, "Heading in the link", items[1].Title, "link heading beats card heading")
}

// TestExtract_ZeroCards verifies a page without cards is not an error
func TestExtract_ZeroCards(t *testing.T) {
	e := createTestExtractor(t)

	items, err := e.Extract([]byte("<html><body><p>Nothing here</p></body></html>"), "BBC News")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

// TestExtract_EveryRecordComplete verifies the completeness gate
func TestExtract_EveryRecordComplete(t *testing.T) {
	e := createTestExtractor(t)

	items, err := e.Extract([]byte(listingPage), "BBC Innovation")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, item := range items {
		assert.NotEmpty(t, item.Title)
		assert.NotEqual(t, TitleUnavailable, item.Title)
		assert.False(t, item.PublicationDate.IsZero())
		assert.False(t, seen[item.URL], "URL %s returned twice", item.URL)
		seen[item.URL] = true
	}
}

// TestNewExtractor_InvalidRules verifies rule validation
func TestNewExtractor_InvalidRules(t *testing.T) {
	badSelector := DefaultSiteRules()
	badSelector.CardSelector = "div[data-indexcard"
	_, err := NewExtractor(badSelector, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRules)

	badBase := DefaultSiteRules()
	badBase.BaseURL = "/relative"
	_, err = NewExtractor(badBase, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRules)

	noDomains := DefaultSiteRules()
	noDomains.Domains = nil
	_, err = NewExtractor(noDomains, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRules)
}

// TestLinkResolver verifies link normalization and the domain check
func TestLinkResolver(t *testing.T) {
	links, err := newLinkResolver(DefaultSiteRules())
	require.NoError(t, err)

	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"/news/articles/x", "https://www.bbc.com/news/articles/x", true},
		{"/news/articles/x#top", "https://www.bbc.com/news/articles/x", true},
		{"https://www.bbc.co.uk/news/y", "https://www.bbc.co.uk/news/y", true},
		{"https://bbc.com/z", "https://bbc.com/z", true},
		{"//www.bbc.com/w", "https://www.bbc.com/w", true},
		{"//evil.example/w", "", false},
		{"https://notbbc.com/z", "", false},
		{"https://example.com/a", "", false},
		{"javascript:void(0)", "", false},
		{"relative/path", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, ok := links.resolve(tt.href)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
