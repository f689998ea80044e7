package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pevans/ainews/classifier"
	"github.com/pevans/ainews/report"
	"github.com/pevans/ainews/scraper"
)

var (
	ErrInvalidDriver      = errors.New("storage driver must be sqlite3 or postgres")
	ErrInvalidMaxAttempts = errors.New("classifier max_attempts must be at least 1")
	ErrNoSources          = errors.New("at least one source is required")
	ErrInvalidLogLevel    = errors.New("log level must be debug, info, warn or error")
	ErrInvalidSourceKind  = errors.New("source kind must be html or feed")
)

// Config is the full application configuration.
type Config struct {
	Storage    Storage             `yaml:"storage"`
	Fetch      scraper.FetchConfig `yaml:"fetch"`
	Site       scraper.SiteRules   `yaml:"site"`
	Sources    []scraper.Source    `yaml:"sources"`
	Classifier Classifier          `yaml:"classifier"`
	Report     Report              `yaml:"report"`
	Log        Log                 `yaml:"logging"`
	API        API                 `yaml:"api"`
}

// Storage selects the article database.
type Storage struct {
	Driver string `yaml:"driver"` // sqlite3 or postgres
	DSN    string `yaml:"dsn"`
}

// Classifier configures the Gemini classifier. APIKey is normally taken
// from GEMINI_API_KEY.
type Classifier struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Pacing      time.Duration `yaml:"pacing"`
}

// RetryPolicy returns the classifier retry policy.
func (c Classifier) RetryPolicy() classifier.RetryPolicy {
	return classifier.RetryPolicy{MaxAttempts: c.MaxAttempts, Delay: c.RetryDelay}
}

// Report configures PDF rendering and where reports are saved. S3 is used
// when S3.Bucket is set, otherwise OutputDir.
type Report struct {
	Title     string          `yaml:"title"`
	FontDir   string          `yaml:"font_dir"`
	OutputDir string          `yaml:"output_dir"`
	S3        report.S3Config `yaml:"s3"`
}

// Exporter returns the exporter settings.
func (r Report) Exporter() report.Config {
	return report.Config{Title: r.Title, FontDir: r.FontDir}
}

// Log configures the application logger. File "-" means stderr.
type Log struct {
	Level     string `yaml:"level"`
	Formatter string `yaml:"formatter"` // text or json
	File      string `yaml:"file"`
}

// API configures the HTTP server.
type API struct {
	Addr string `yaml:"addr"`
	// PollInterval re-syncs every source on this interval while serving;
	// zero disables polling.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: Storage{
			Driver: "sqlite3",
			DSN:    "~/.ainews/ainews.db",
		},
		Fetch:   scraper.DefaultFetchConfig(),
		Site:    scraper.DefaultSiteRules(),
		Sources: scraper.DefaultSources(),
		Classifier: Classifier{
			Model:       classifier.DefaultModelName,
			MaxAttempts: classifier.DefaultRetryPolicy().MaxAttempts,
			RetryDelay:  classifier.DefaultRetryPolicy().Delay,
			Pacing:      classifier.DefaultPacing,
		},
		Report: Report{
			Title:     report.DefaultTitle,
			FontDir:   "fonts",
			OutputDir: ".",
		},
		Log: Log{
			Level:     "info",
			Formatter: "text",
			File:      "-",
		},
		API: API{
			Addr: ":8080",
		},
	}
}

// Validate checks the configuration for values the application can't run
// with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.Storage.Driver)
	}

	if c.Classifier.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}

	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	for _, src := range c.Sources {
		if src.URL == "" {
			return fmt.Errorf("source %q has no url", src.Name)
		}
		switch src.Kind {
		case scraper.KindHTML, scraper.KindFeed:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidSourceKind, src.Kind)
		}
	}

	if err := c.Site.Validate(); err != nil {
		return err
	}

	return nil
}

// Source returns the configured source whose name matches, ignoring case.
func (c *Config) Source(name string) (scraper.Source, bool) {
	for _, src := range c.Sources {
		if equalFold(src.Label(c.Site.SiteName), name) {
			return src, true
		}
	}
	return scraper.Source{}, false
}
