package articles

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Article is one article discovered on a listing page. ID, AddedAt,
// AIRelated and CheckedAt are assigned by the Store; everything else comes
// from extraction.
type Article struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	PublicationDate civil.Date `json:"publication_date"`
	Summary         *string    `json:"summary"`
	Source          string     `json:"source"`
	AddedAt         time.Time  `json:"added_at"`
	AIRelated       *bool      `json:"ai_related"`
	CheckedAt       *time.Time `json:"checked_at,omitempty"`
}

// IsClassified reports whether the classifier has written a verdict.
func (a *Article) IsClassified() bool {
	return a.AIRelated != nil
}

// SummaryText returns the summary, or fallback when there is none.
func (a *Article) SummaryText(fallback string) string {
	if a.Summary == nil {
		return fallback
	}
	return *a.Summary
}

// NoSummary stands in for a missing summary in prompts and reports.
const NoSummary = "No summary available."

// StorableDate reports whether d is a real calendar date with a four-digit
// year, the range the store can write and read back.
func StorableDate(d civil.Date) bool {
	return d.IsValid() && d.Year >= 1 && d.Year <= 9999
}
