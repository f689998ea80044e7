package scraper

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultUserAgent is a desktop browser identity; some listing pages serve
// reduced markup to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const (
	DefaultFetchTimeout = 20 * time.Second
	DefaultFetchDelay   = 1 * time.Second
)

// ErrFetchFailed wraps every network, status, or body-read failure.
var ErrFetchFailed = errors.New("fetch failed")

// FetchConfig controls how listing pages are requested.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Delay     time.Duration `yaml:"delay"`
	UserAgent string        `yaml:"user_agent"`
}

// DefaultFetchConfig returns the default request settings.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Timeout:   DefaultFetchTimeout,
		Delay:     DefaultFetchDelay,
		UserAgent: DefaultUserAgent,
	}
}

// Fetcher retrieves listing pages. Each successful fetch is followed by a
// fixed pause.
type Fetcher struct {
	client    *http.Client
	userAgent string
	delay     time.Duration
	sleep     func(time.Duration)
	log       logrus.FieldLogger
}

// NewFetcher creates a fetcher. A zero timeout or empty user agent falls
// back to the default; a zero delay disables the pause.
func NewFetcher(cfg FetchConfig, logger logrus.FieldLogger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		delay:     cfg.Delay,
		sleep:     time.Sleep,
		log:       logger,
	}
}

// Fetch returns the body of a 2xx response. Any other outcome returns an
// error wrapping ErrFetchFailed.
func (f *Fetcher) Fetch(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	f.log.WithField("url", url).Info("fetching listing page")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: HTTP error: %s", ErrFetchFailed, url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read body: %w", ErrFetchFailed, url, err)
	}

	if f.delay > 0 {
		f.sleep(f.delay)
	}

	return body, nil
}
