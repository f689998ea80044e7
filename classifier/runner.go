package classifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/ainews/articles"
	"github.com/sirupsen/logrus"
)

// DefaultPacing keeps the run just under 60 requests a minute.
const DefaultPacing = 1100 * time.Millisecond

// Store is the part of the article store a classification run needs.
type Store interface {
	ListUnclassified() ([]articles.Article, error)
	SetClassification(id uuid.UUID, related bool) (bool, error)
}

// RunResult counts the outcome of one classification run.
type RunResult struct {
	Checked   int `json:"checked"`   // unclassified articles found
	Processed int `json:"processed"` // verdicts written
	Related   int `json:"related"`   // of those, AI-related
	Deferred  int `json:"deferred"`  // left unclassified for a later run
}

// Runner classifies every unclassified article in the store.
type Runner struct {
	classifier *Classifier
	store      Store
	pacing     time.Duration
	sleep      func(context.Context, time.Duration) error
	log        logrus.FieldLogger
}

// NewRunner creates a runner that waits pacing after each verdict written.
func NewRunner(classifier *Classifier, store Store, pacing time.Duration, logger logrus.FieldLogger) *Runner {
	if pacing < 0 {
		pacing = 0
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Runner{
		classifier: classifier,
		store:      store,
		pacing:     pacing,
		sleep:      sleepContext,
		log:        logger,
	}
}

// Run classifies the articles that have no verdict yet, oldest first. It
// stops early, returning the partial result and the context's error, when
// ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	var result RunResult

	pending, err := r.store.ListUnclassified()
	if err != nil {
		return result, err
	}
	result.Checked = len(pending)
	r.log.WithField("pending", len(pending)).Info("starting classification run")

	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		log := r.log.WithFields(logrus.Fields{"id": item.ID, "title": item.Title})

		verdict := r.classifier.Classify(ctx, item.Title, item.SummaryText(""))
		if verdict == VerdictUnknown {
			log.Warn("classification failed; will retry on a later run")
			result.Deferred++
			continue
		}

		related := verdict == VerdictRelated
		updated, err := r.store.SetClassification(item.ID, related)
		if err != nil {
			log.WithError(err).Warn("failed to save classification")
			result.Deferred++
			continue
		}
		if !updated {
			log.Debug("article was already classified")
			continue
		}

		result.Processed++
		if related {
			result.Related++
		}

		if err := r.sleep(ctx, r.pacing); err != nil {
			return result, err
		}
	}

	r.log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"related":   result.Related,
		"deferred":  result.Deferred,
	}).Info("classification run complete")

	return result, nil
}
