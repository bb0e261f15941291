package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lberthe/dicolex/internal/apperr"
	"github.com/lberthe/dicolex/internal/models"
	"github.com/lberthe/dicolex/internal/writer"
)

// Defaults for the orchestrator's polling loop.
const (
	DefaultMaxAttempts  = 20
	DefaultPollInterval = 500 * time.Millisecond
)

// Factory constructs a fresh classification session. A rate-limited
// session is discarded and replaced rather than reused.
type Factory func() (Client, error)

// OrchestratorConfig tunes the classification loop.
type OrchestratorConfig struct {
	MaxAttempts  int           // poll ceiling per classification
	PollInterval time.Duration // wait between polls
}

// Orchestrator drives a term through classification and persists the
// answer. The session is created lazily on first use and kept across
// calls; on a rate limit it retries exactly once with a fresh session,
// then gives up so a hard quota never turns into a hot loop.
type Orchestrator struct {
	factory Factory
	writer  *writer.Writer
	logger  *slog.Logger
	cfg     OrchestratorConfig

	mu      sync.Mutex
	session Client
}

// NewOrchestrator creates an Orchestrator. Zero config fields fall back
// to the package defaults.
func NewOrchestrator(factory Factory, w *writer.Writer, cfg OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Orchestrator{factory: factory, writer: w, cfg: cfg, logger: logger}
}

// ClassifyTerm classifies targetWord and writes the answer into its note
// under the do-not-clobber policy: classification enriches blank fields
// and appends an example, it never overwrites curated values.
func (o *Orchestrator) ClassifyTerm(ctx context.Context, targetWord string) (*Result, error) {
	result, err := o.classify(ctx, targetWord)
	if err != nil {
		return nil, err
	}

	term := models.Term{
		TargetWord: targetWord,
		SourceWord: result.SourceWord,
		Type:       result.Type,
		Context:    result.Context,
		Examples:   result.Example,
	}
	if _, err := o.writer.UpsertTerm(ctx, term, false); err != nil {
		return nil, fmt.Errorf("classification write-back: %w", err)
	}
	o.logger.Info("term classified",
		slog.String("term", targetWord), slog.String("type", result.Type))
	return result, nil
}

func (o *Orchestrator) classify(ctx context.Context, targetWord string) (*Result, error) {
	client, err := o.currentSession()
	if err != nil {
		return nil, err
	}

	result, err := o.await(ctx, client, targetWord)
	if errors.Is(err, apperr.ErrRateLimited) {
		o.logger.Warn("classifier rate limited, retrying with fresh session",
			slog.String("term", targetWord))
		client, err = o.resetSession()
		if err != nil {
			return nil, err
		}
		result, err = o.await(ctx, client, targetWord)
	}
	if err != nil {
		// Both sentinels survive so the API can tell quota exhaustion
		// apart from other failures.
		return nil, fmt.Errorf("%w: %s: %w", apperr.ErrClassification, targetWord, err)
	}
	return result, nil
}

// await polls the session until it produces an answer or the attempt
// ceiling is reached. A synchronous backend answers on the first attempt;
// the loop exists for backends that return not-ready errors while a job
// is still running. Rate limiting aborts immediately so the caller can
// swap the session.
func (o *Orchestrator) await(ctx context.Context, client Client, targetWord string) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt < o.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.cfg.PollInterval):
			}
		}
		result, err := client.Classify(ctx, targetWord)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, apperr.ErrRateLimited) || errors.Is(err, apperr.ErrMalformedResponse) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no answer after %d attempts: %w", o.cfg.MaxAttempts, lastErr)
}

// currentSession returns the live session, creating it on first use.
// Setup is idempotent: concurrent callers share one session.
func (o *Orchestrator) currentSession() (Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		return o.session, nil
	}
	s, err := o.factory()
	if err != nil {
		return nil, fmt.Errorf("classifier session setup: %w", err)
	}
	o.session = s
	return s, nil
}

func (o *Orchestrator) resetSession() (Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, err := o.factory()
	if err != nil {
		return nil, fmt.Errorf("classifier session setup: %w", err)
	}
	o.session = s
	return s, nil
}
