package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pevans/ainews/articles"
	"github.com/sirupsen/logrus"
)

// Verdict is the classifier's answer for one article.
type Verdict int

const (
	// VerdictUnknown means no answer could be obtained; the article should
	// be retried on a later run and nothing is written back.
	VerdictUnknown Verdict = iota
	VerdictRelated
	VerdictUnrelated
)

func (v Verdict) String() string {
	switch v {
	case VerdictRelated:
		return "related"
	case VerdictUnrelated:
		return "unrelated"
	default:
		return "unknown"
	}
}

// ErrBlocked is returned by a Model when the provider refused to answer.
var ErrBlocked = errors.New("response blocked")

const promptTemplate = `
Analyze the following article title and summary.
Is the article primarily about Artificial Intelligence (AI), machine learning, large language models, generative AI, neural networks, or closely related AI subfields?

Title: "%s"
Summary: "%s"

Answer ONLY with "Yes" or "No".
`

// Model sends a prompt to a language model and returns its text answer.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RetryPolicy bounds how often one article is attempted.
type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"retry_delay"`
}

// DefaultRetryPolicy returns 3 attempts with 5 seconds between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second}
}

// Classifier decides whether articles are about AI.
type Classifier struct {
	model  Model
	policy RetryPolicy
	sleep  func(context.Context, time.Duration) error
	log    logrus.FieldLogger
}

// New creates a classifier. A policy with fewer than one attempt uses the
// default policy.
func New(model Model, policy RetryPolicy, logger logrus.FieldLogger) *Classifier {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Classifier{
		model:  model,
		policy: policy,
		sleep:  sleepContext,
		log:    logger,
	}
}

// Classify asks the model about one article. Errors that persist through
// the last attempt give VerdictUnknown; a blocked or unclear answer on the
// last attempt gives VerdictUnrelated. An empty title is never sent.
func (c *Classifier) Classify(ctx context.Context, title, summary string) Verdict {
	log := c.log.WithField("title", title)

	if strings.TrimSpace(title) == "" {
		log.Warn("cannot classify article without a title")
		return VerdictUnknown
	}
	if summary == "" {
		summary = articles.NoSummary
	}
	prompt := fmt.Sprintf(promptTemplate, title, summary)

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		last := attempt == c.policy.MaxAttempts
		attemptLog := log.WithField("attempt", fmt.Sprintf("%d/%d", attempt, c.policy.MaxAttempts))

		answer, err := c.model.Generate(ctx, prompt)
		switch {
		case errors.Is(err, ErrBlocked):
			attemptLog.Warn("model response blocked")
			if last {
				return VerdictUnrelated
			}

		case err != nil:
			attemptLog.WithError(err).Error("model call failed")
			if isRateLimit(err) {
				attemptLog.Warn("rate limit likely hit")
			}
			if last {
				log.Error("max attempts reached; classification deferred")
				return VerdictUnknown
			}

		default:
			switch normalizeAnswer(answer) {
			case "yes":
				log.Debug("classified as AI-related")
				return VerdictRelated
			case "no":
				log.Debug("classified as not AI-related")
				return VerdictUnrelated
			}
			attemptLog.WithField("answer", answer).Warn("unexpected model answer")
			if last {
				return VerdictUnrelated
			}
		}

		if err := c.sleep(ctx, c.policy.Delay); err != nil {
			return VerdictUnknown
		}
	}

	return VerdictUnknown
}

func normalizeAnswer(answer string) string {
	answer = strings.ToLower(strings.TrimSpace(answer))
	return strings.ReplaceAll(answer, ".", "")
}

func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource exhausted")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
