package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pevans/ainews/articles"
	"github.com/pevans/ainews/classifier"
	"github.com/pevans/ainews/config"
	"github.com/pevans/ainews/discovery"
	"github.com/pevans/ainews/logging"
	"github.com/pevans/ainews/report"
	"github.com/pevans/ainews/scraper"
	"github.com/sirupsen/logrus"
)

// app holds what every subcommand needs: configuration, the logger and an
// open article store.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	store *articles.Store
}

func newApp() (*app, error) {
	cfg, err := config.Load(getEnv("AINEWS_CONFIG", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Log)

	if cfg.Storage.Driver == "sqlite3" {
		if err := ensureDBDir(cfg.Storage.DSN); err != nil {
			return nil, err
		}
	}

	store, err := articles.NewStore(cfg.Storage.Driver, cfg.Storage.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open article store: %w", err)
	}

	return &app{cfg: cfg, log: logger, store: store}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close article store")
	}
}

// ensureDBDir creates the directory holding a SQLite database file.
func ensureDBDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// syncService wires the fetcher and both extractors into a sync service.
func (a *app) syncService() (*discovery.Service, error) {
	resolver := scraper.NewDateResolver(a.log)

	htmlExtractor, err := scraper.NewExtractor(a.cfg.Site, resolver, a.log)
	if err != nil {
		return nil, err
	}
	feedExtractor, err := scraper.NewFeedExtractor(a.cfg.Site, resolver, a.log)
	if err != nil {
		return nil, err
	}

	extractors := map[string]scraper.ArticleExtractor{
		scraper.KindHTML: htmlExtractor,
		scraper.KindFeed: feedExtractor,
	}

	fetcher := scraper.NewFetcher(a.cfg.Fetch, a.log)
	return discovery.NewService(fetcher, a.store, extractors, a.cfg.Site.SiteName, a.log), nil
}

// classifierRunner connects to Gemini. The returned close function releases
// the client.
func (a *app) classifierRunner(ctx context.Context) (*classifier.Runner, func(), error) {
	model, err := classifier.NewGeminiModel(ctx, a.cfg.Classifier.APIKey, a.cfg.Classifier.Model)
	if err != nil {
		return nil, nil, err
	}

	c := classifier.New(model, a.cfg.Classifier.RetryPolicy(), a.log)
	runner := classifier.NewRunner(c, a.store, a.cfg.Classifier.Pacing, a.log)

	return runner, func() { model.Close() }, nil
}

func (a *app) exporter() *report.Exporter {
	return report.NewExporter(a.cfg.Report.Exporter(), a.log)
}

// reportSink returns the S3 sink when a bucket is configured, otherwise the
// local output directory. dir overrides the configured output directory.
func (a *app) reportSink(ctx context.Context, dir string) (report.Sink, error) {
	if a.cfg.Report.S3.Bucket != "" && dir == "" {
		return report.NewS3Sink(ctx, a.cfg.Report.S3)
	}
	if dir == "" {
		dir = a.cfg.Report.OutputDir
	}
	return report.FileSink{Dir: dir}, nil
}
