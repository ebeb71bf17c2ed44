package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
	"github.com/custodia-labs/navo/internal/logger"
)

// sourceOutcome is the result of querying one source.
type sourceOutcome struct {
	batch sourceBatch
	err   error
}

// Orchestrator fans a query out to sources and fuses what comes back.
type Orchestrator struct {
	registry *SourceRegistry
	settings domain.OrchestratorSettings
	ranker   *Ranker
	now      func() time.Time
	jitter   func(time.Duration) time.Duration
}

// NewOrchestrator creates an orchestrator over the registry's sources.
func NewOrchestrator(
	registry *SourceRegistry, settings domain.OrchestratorSettings, ranking domain.RankingSettings,
) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		settings: settings,
		ranker:   NewRanker(ranking),
		now:      time.Now,
		jitter:   equalJitter,
	}
}

// Resolve queries every selected source concurrently and returns fused,
// sorted, de-duplicated results. Failing sources are reported in
// Resolution.Degraded. It returns an error only for an unknown source filter
// or when ctx ends before the pass completes.
func (o *Orchestrator) Resolve(
	ctx context.Context, q *domain.Query, perms domain.PermissionSet,
) (*domain.Resolution, error) {
	logger.Section("Orchestrate")

	sources, err := o.registry.selectSources(q.Filters.Sources)
	if err != nil {
		return nil, err
	}

	req := driven.SearchRequest{
		Query:       q.Normalized,
		Entities:    q.Entities,
		Permissions: perms,
		Limit:       o.settings.PerSourceLimit,
	}

	outcomes := make([]sourceOutcome, len(sources))
	var g errgroup.Group
	for i, s := range sources {
		g.Go(func() error {
			outcomes[i] = o.query(ctx, s, req)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("orchestration interrupted: %w", err)
	}

	res := &domain.Resolution{Queried: len(sources)}
	batches := make([]sourceBatch, 0, len(sources))
	for i, out := range outcomes {
		if out.err != nil {
			res.Degraded = append(res.Degraded, domain.DegradedSource{
				SourceID: sources[i].adapter.ID(),
				Reason:   degradedReason(out.err),
			})
			continue
		}
		batches = append(batches, out.batch)
	}
	res.AllUnavailable = len(sources) > 0 && len(res.Degraded) == len(sources)
	res.Results = o.ranker.Rank(batches, o.now())

	logger.Debug("Orchestrated %d source(s): %d result(s), %d degraded",
		res.Queried, len(res.Results), len(res.Degraded))
	return res, nil
}

// query runs one source under its own deadline, which covers every attempt.
func (o *Orchestrator) query(ctx context.Context, s *registeredSource, req driven.SearchRequest) sourceOutcome {
	id := s.adapter.ID()
	timeout := s.settings.Timeout
	if timeout <= 0 {
		timeout = o.settings.SourceTimeout
	}

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	candidates, attempts, err := o.searchWithRetry(sctx, s, req)
	if ctx.Err() == nil {
		s.record(err, time.Since(start), o.now())
	}
	if err != nil {
		logger.Warn("Source %s degraded after %d attempt(s): %v", id, attempts, err)
		return sourceOutcome{err: &domain.SourceError{SourceID: id, Attempts: attempts, Err: err}}
	}

	logger.Debug("Source %s returned %d candidate(s) in %v", id, len(candidates), time.Since(start))
	return sourceOutcome{batch: sourceBatch{
		sourceID:   id,
		authority:  s.settings.Authority,
		candidates: sanitizeCandidates(id, candidates, o.settings.PerSourceLimit),
	}}
}

// searchWithRetry retries with exponential backoff and jitter. Permanent
// errors and an ended context stop it early.
func (o *Orchestrator) searchWithRetry(
	ctx context.Context, s *registeredSource, req driven.SearchRequest,
) ([]domain.Candidate, int, error) {
	maxAttempts := max(o.settings.MaxAttempts, 1)
	backoff := o.settings.BaseBackoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, attempt - 1, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
			}
		}

		candidates, err := s.adapter.Search(ctx, req)
		if err == nil {
			return candidates, attempt, nil
		}
		lastErr = err

		if domain.IsPermanent(err) {
			return nil, attempt, err
		}
		if ctx.Err() != nil {
			return nil, attempt, errors.Join(err, ctx.Err())
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, attempt, errors.Join(lastErr, ctx.Err())
			case <-time.After(o.jitter(backoff)):
				backoff = min(backoff*2, o.settings.MaxBackoff)
			}
		}
	}

	return nil, maxAttempts, lastErr
}

// sanitizeCandidates stamps the source ID, drops candidates without a
// document ID, zeroes non-finite relevance and enforces the limit.
func sanitizeCandidates(sourceID string, candidates []domain.Candidate, limit int) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.DocumentID == "" {
			continue
		}
		c.SourceID = sourceID
		if math.IsNaN(c.Relevance) || math.IsInf(c.Relevance, 0) {
			c.Relevance = 0
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func degradedReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var se *domain.SourceError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}

// equalJitter returns a random duration in [d/2, d].
func equalJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + rand.N(d-half+1)
}
