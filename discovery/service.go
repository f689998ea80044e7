package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pevans/ainews/articles"
	"github.com/pevans/ainews/scraper"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves the raw body of a listing page.
type Fetcher interface {
	Fetch(url string) ([]byte, error)
}

// Store persists extracted articles.
type Store interface {
	StoreArticles(items []articles.Article, updateExisting bool) articles.StoreResult
}

// Service runs the fetch, extract, filter, store sequence for listing pages.
// Sources are processed one at a time, including across goroutines.
type Service struct {
	mu         sync.Mutex
	fetcher    Fetcher
	store      Store
	extractors map[string]scraper.ArticleExtractor
	siteName   string
	now        func() time.Time
	log        logrus.FieldLogger
}

// SyncResult counts what happened to one source's articles.
type SyncResult struct {
	Found   int `json:"found"`   // complete articles on the page
	Matched int `json:"matched"` // of those, published on the requested date
	Stored  int `json:"stored"`  // inserted or updated
	Skipped int `json:"skipped"`
}

// SourceResult is the outcome of syncing one source as part of a batch.
type SourceResult struct {
	Source scraper.Source `json:"source"`
	Label  string         `json:"label"`
	Result SyncResult     `json:"result"`
	Err    error          `json:"-"`
}

// NewService creates a sync service. extractors is keyed by source kind
// (scraper.KindHTML, scraper.KindFeed).
func NewService(
	fetcher Fetcher,
	store Store,
	extractors map[string]scraper.ArticleExtractor,
	siteName string,
	logger logrus.FieldLogger,
) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Service{
		fetcher:    fetcher,
		store:      store,
		extractors: extractors,
		siteName:   siteName,
		now:        time.Now,
		log:        logger,
	}
}

// Sync fetches src, keeps the articles published on date, and stores them.
// A fetch or parse failure is returned as an error so callers can tell it
// apart from a page that simply had nothing for that date.
func (s *Service) Sync(src scraper.Source, date civil.Date, updateExisting bool) (SyncResult, error) {
	label := src.Label(s.siteName)
	log := s.log.WithFields(logrus.Fields{"source": label, "date": date.String()})

	kind := src.Kind
	if kind == "" {
		kind = scraper.KindHTML
	}
	extractor, ok := s.extractors[kind]
	if !ok {
		return SyncResult{}, fmt.Errorf("%w: %q", scraper.ErrUnknownKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	startTime := time.Now()

	body, err := s.fetcher.Fetch(src.URL)
	if err != nil {
		log.WithError(err).Error("fetch failed")
		return SyncResult{}, fmt.Errorf("failed to fetch %s: %w", label, err)
	}

	items, err := extractor.Extract(body, label)
	if err != nil {
		log.WithError(err).Error("extraction failed")
		return SyncResult{}, fmt.Errorf("failed to extract %s: %w", label, err)
	}

	matched := scraper.FilterByDate(items, date)
	result := SyncResult{Found: len(items), Matched: len(matched)}

	if len(matched) == 0 {
		log.WithField("found", len(items)).Info("no articles for date")
		return result, nil
	}

	stored := s.store.StoreArticles(matched, updateExisting)
	result.Stored = stored.Count()
	result.Skipped = stored.Skipped

	log.WithFields(logrus.Fields{
		"found":    result.Found,
		"matched":  result.Matched,
		"stored":   result.Stored,
		"skipped":  result.Skipped,
		"duration": time.Since(startTime).String(),
	}).Info("sync complete")

	return result, nil
}

// SyncAll syncs each source in turn. A failing source is recorded in its
// result and does not stop the others; a cancelled context does.
func (s *Service) SyncAll(ctx context.Context, sources []scraper.Source, date civil.Date, updateExisting bool) []SourceResult {
	results := make([]SourceResult, 0, len(sources))

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}

		result, err := s.Sync(src, date, updateExisting)
		results = append(results, SourceResult{
			Source: src,
			Label:  src.Label(s.siteName),
			Result: result,
			Err:    err,
		})
	}

	return results
}

// Today returns the current calendar date in local time.
func (s *Service) Today() civil.Date {
	return civil.DateOf(s.now())
}

// Run syncs every source for the current date immediately and then once per
// interval, until ctx is cancelled.
func (s *Service) Run(ctx context.Context, sources []scraper.Source, interval time.Duration) error {
	s.log.WithField("interval", interval.String()).Info("sync loop starting")

	s.logBatch(s.SyncAll(ctx, sources, s.Today(), false))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sync loop stopping")
			return ctx.Err()
		case <-ticker.C:
			s.logBatch(s.SyncAll(ctx, sources, s.Today(), false))
		}
	}
}

func (s *Service) logBatch(results []SourceResult) {
	stored, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		stored += r.Result.Stored
	}

	entry := s.log.WithFields(logrus.Fields{"sources": len(results), "stored": stored, "failed": failed})
	if failed > 0 {
		entry.Warn("sync pass finished with failures")
		return
	}
	entry.Info("sync pass finished")
}
