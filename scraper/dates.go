package scraper

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/araddon/dateparse"
	"github.com/pevans/ainews/articles"
	"github.com/sirupsen/logrus"
)

const (
	maxHoursAgo = math.MaxInt64 / int64(time.Hour)
	maxDaysAgo  = 3_000_000
)

// DateResolver turns the date text shown on a card ("3 hrs ago",
// "Yesterday", "15 Apr 2025") into a calendar date. Relative phrases are
// measured from Now in Location.
type DateResolver struct {
	Now      func() time.Time
	Location *time.Location
	log      logrus.FieldLogger
}

// NewDateResolver returns a resolver using the wall clock and local time.
func NewDateResolver(logger logrus.FieldLogger) *DateResolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DateResolver{
		Now:      time.Now,
		Location: time.Local,
		log:      logger,
	}
}

// Resolve returns the calendar date for phrase, or false when the phrase is
// empty, malformed, or unrecognised. It never panics.
func (r *DateResolver) Resolve(phrase string) (date civil.Date, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger().WithField("phrase", phrase).Warnf("date resolution panicked: %v", rec)
			date, ok = civil.Date{}, false
		}
	}()

	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return civil.Date{}, false
	}

	now := r.now()
	today := civil.DateOf(now)
	lower := strings.ToLower(phrase)

	switch {
	case strings.Contains(lower, "yesterday"):
		return today.AddDays(-1), true

	case containsAny(lower, "hr ago", "hrs ago"):
		n, ok := leadingCount(lower, maxHoursAgo)
		if !ok {
			return r.unresolved(phrase)
		}
		return r.bounded(civil.DateOf(now.Add(-time.Duration(n)*time.Hour)), phrase)

	case containsAny(lower, "day ago", "days ago"):
		n, ok := leadingCount(lower, maxDaysAgo)
		if !ok {
			return r.unresolved(phrase)
		}
		return r.bounded(today.AddDays(-int(max(n, 1))), phrase)

	case containsAny(lower, "min ago", "mins ago"):
		return today, true
	}

	return r.resolveAbsolute(phrase, now)
}

// resolveAbsolute tries the whole phrase, then ever shorter runs of its
// tokens, so that surrounding words like "Updated" or "GMT+1" don't block a
// parse. Dates shown without a year ("15 Apr") are taken to be in the
// current year.
func (r *DateResolver) resolveAbsolute(phrase string, now time.Time) (civil.Date, bool) {
	runs := fuzzyCandidates(phrase)
	candidates := append([]string{}, runs...)
	year := strconv.Itoa(now.Year())
	for _, run := range runs {
		candidates = append(candidates, run+" "+year)
	}

	for _, candidate := range candidates {
		t, err := dateparse.ParseIn(candidate, r.location())
		if err != nil {
			continue
		}
		if date := civil.DateOf(t); articles.StorableDate(date) {
			return date, true
		}
	}

	return r.unresolved(phrase)
}

// bounded rejects dates outside years 1 to 9999.
func (r *DateResolver) bounded(date civil.Date, phrase string) (civil.Date, bool) {
	if !articles.StorableDate(date) {
		return r.unresolved(phrase)
	}
	return date, true
}

func (r *DateResolver) unresolved(phrase string) (civil.Date, bool) {
	r.logger().WithField("phrase", phrase).Debug("could not resolve date")
	return civil.Date{}, false
}

func (r *DateResolver) now() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return now().In(r.location())
}

func (r *DateResolver) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

func (r *DateResolver) logger() logrus.FieldLogger {
	if r.log == nil {
		return logrus.StandardLogger()
	}
	return r.log
}

// leadingCount parses the first token of phrase as a non-negative count no
// larger than limit.
func leadingCount(phrase string, limit int64) (int64, bool) {
	fields := strings.Fields(phrase)
	if len(fields) == 0 {
		return 0, false
	}

	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || n < 0 || n > limit {
		return 0, false
	}
	return n, true
}

// fuzzyCandidates lists the phrase followed by each contiguous token run,
// longest first. Runs without a digit can't be dates and are skipped.
func fuzzyCandidates(phrase string) []string {
	tokens := strings.Fields(phrase)
	var candidates []string

	for size := len(tokens); size > 0; size-- {
		for start := 0; start+size <= len(tokens); start++ {
			candidate := strings.Join(tokens[start:start+size], " ")
			candidate = strings.Trim(candidate, ",;|·")
			if len(candidate) < 4 || !strings.ContainsFunc(candidate, unicode.IsDigit) {
				continue
			}
			candidates = append(candidates, candidate)
		}
	}

	return candidates
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
