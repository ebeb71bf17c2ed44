package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
	"github.com/custodia-labs/navo/internal/core/ports/driving"
	"github.com/custodia-labs/navo/internal/logger"
)

// Verify interface compliance.
var _ driving.AnswerService = (*AnswerService)(nil)

// pass is the outcome of one computation for a fingerprint, shared by every
// caller that attached to it.
type pass struct {
	results        []domain.RankedResult
	trace          *domain.ReasoningTrace
	degraded       []domain.DegradedSource
	allUnavailable bool
	cacheBypassed  bool
	fromCache      bool
}

// AnswerService runs the query pipeline: process, resolve permissions, look
// up the cache, and on a miss orchestrate, reinforce, filter, reason and
// store. Every answer is recorded in the caller's history.
type AnswerService struct {
	processor    *QueryProcessor
	identity     driven.IdentityProvider
	registry     *SourceRegistry
	cache        *CacheManager
	orchestrator *Orchestrator
	reasoning    *ReasoningEngine
	traces       driven.TraceStore
	now          func() time.Time
}

// NewAnswerService creates the answer pipeline.
// The trace store is optional (can be nil).
func NewAnswerService(
	processor *QueryProcessor,
	identity driven.IdentityProvider,
	registry *SourceRegistry,
	cache *CacheManager,
	orchestrator *Orchestrator,
	reasoning *ReasoningEngine,
	traces driven.TraceStore,
) *AnswerService {
	return &AnswerService{
		processor:    processor,
		identity:     identity,
		registry:     registry,
		cache:        cache,
		orchestrator: orchestrator,
		reasoning:    reasoning,
		traces:       traces,
		now:          time.Now,
	}
}

// Answer resolves a question. Input errors are returned before any network
// call. Source, cache and reasoning failures are reported in the Answer.
// A cancelled ctx returns its error.
func (s *AnswerService) Answer(
	ctx context.Context, rawText string, caller domain.CallerContext, opts domain.AnswerOptions,
) (*domain.Answer, error) {
	logger.Section("Answer")
	start := s.now()

	q, err := s.processor.Process(ctx, rawText, caller, domain.QueryFilters{Sources: opts.Sources})
	if err != nil {
		return nil, err
	}
	sources, err := s.registry.selectSources(q.Filters.Sources)
	if err != nil {
		return nil, err
	}

	perms := s.permissionsFor(ctx, caller)
	q = withPermissionScope(q, perms.Scope())

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = domain.DefaultMaxResults
	}

	entry, available := s.cache.Lookup(ctx, q.Fingerprint)
	if entry != nil {
		logger.Debug("Answer served from cache")
		a := finish(q, entry.Results, entry.Trace, maxResults, opts.MinConfidence, &domain.Answer{FromCache: true})
		s.recordHistory(ctx, q, entry.Trace, a, start)
		return a, nil
	}

	sourceIDs := make([]string, len(sources))
	for i, src := range sources {
		sourceIDs[i] = src.adapter.ID()
	}

	v, shared, err := s.cache.Do(ctx, q.Fingerprint, func(ctx context.Context) (any, error) {
		// A flight that ended between our lookup and this one has stored its answer.
		if entry, _ := s.cache.Lookup(ctx, q.Fingerprint); entry != nil {
			return &pass{results: entry.Results, trace: entry.Trace, fromCache: true}, nil
		}
		return s.compute(ctx, q, perms, sourceIDs, available)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("Attached to in-flight computation for %s", shortFingerprint(q.Fingerprint))
	}

	p := v.(*pass)
	a := finish(q, p.results, p.trace, maxResults, opts.MinConfidence, &domain.Answer{
		DegradedSources:       p.degraded,
		AllSourcesUnavailable: p.allUnavailable,
		CacheBypassed:         p.cacheBypassed,
		FromCache:             p.fromCache,
	})
	s.recordHistory(ctx, q, p.trace, a, start)
	return a, nil
}

// compute runs one full pass. Only passes in which every source answered
// are cached, and only when no invalidation happened while they ran.
func (s *AnswerService) compute(
	ctx context.Context, q *domain.Query, perms domain.PermissionSet, sourceIDs []string, cacheAvailable bool,
) (*pass, error) {
	gen := s.cache.Generation()

	res, err := s.orchestrator.Resolve(ctx, q, perms)
	if err != nil {
		return nil, err
	}

	ranked := s.reinforce(ctx, res.Results)
	permitted := FilterByPermission(ranked, perms)
	logger.Debug("Permission filter kept %d of %d result(s)", len(permitted), len(res.Results))

	trace := s.reasoning.Analyze(ctx, q, permitted)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.traces != nil {
		if err := s.traces.Save(ctx, trace); err != nil {
			logger.Warn("Failed to save trace %s: %v", trace.ID, err)
		}
	}

	p := &pass{
		results:        permitted,
		trace:          trace,
		degraded:       res.Degraded,
		allUnavailable: res.AllUnavailable,
		cacheBypassed:  !cacheAvailable,
	}

	if len(res.Degraded) > 0 {
		logger.Debug("Not caching pass with %d degraded source(s)", len(res.Degraded))
		return p, nil
	}

	now := s.now()
	entry := &domain.CacheEntry{
		Fingerprint: q.Fingerprint,
		Results:     permitted,
		Trace:       trace,
		CreatedAt:   now,
		TTL:         s.cache.TTL(),
		Tags:        domain.TagsFor(permitted, sourceIDs),
	}
	if _, err := s.cache.StoreIfCurrent(ctx, entry, gen); err != nil {
		if errors.Is(err, domain.ErrCacheUnavailable) {
			p.cacheBypassed = true
		}
		logger.Warn("Answer not cached: %v", err)
	}
	return p, nil
}

// reinforce applies recorded feedback to the ranking. Without a trace store
// or when the lookup fails the ranking is returned unchanged.
func (s *AnswerService) reinforce(ctx context.Context, results []domain.RankedResult) []domain.RankedResult {
	if s.traces == nil || len(results) == 0 {
		return results
	}
	success, err := s.traces.DocumentSuccess(ctx, documentKeys(results))
	if err != nil {
		logger.Warn("Failed to load document feedback: %v", err)
		return results
	}
	return Reinforce(results, success)
}

// recordHistory appends the answer to the caller's history.
func (s *AnswerService) recordHistory(
	ctx context.Context, q *domain.Query, trace *domain.ReasoningTrace, a *domain.Answer, start time.Time,
) {
	if s.traces == nil || trace == nil {
		return
	}
	entry := domain.HistoryEntry{
		TraceID:    trace.ID,
		UserID:     q.Caller.UserID,
		Query:      q.Raw,
		Intent:     q.Intent,
		Confidence: trace.Confidence,
		Level:      trace.Level,
		Results:    len(a.Results),
		FromCache:  a.FromCache,
		Elapsed:    s.now().Sub(start),
		AskedAt:    start,
	}
	if err := s.traces.SaveHistory(ctx, entry); err != nil {
		logger.Warn("Failed to record history for trace %s: %v", trace.ID, err)
	}
}

// permissionsFor resolves the caller's permissions. When the identity
// provider fails the caller only sees public documents.
func (s *AnswerService) permissionsFor(ctx context.Context, caller domain.CallerContext) domain.PermissionSet {
	if s.identity == nil {
		return domain.NewPermissionSet(domain.PrincipalEveryone)
	}
	perms, err := s.identity.PermissionsFor(ctx, caller)
	if err != nil {
		logger.Warn("Identity lookup for %q failed, restricting to public documents: %v", caller.UserID, err)
		return domain.NewPermissionSet(domain.PrincipalEveryone)
	}
	return perms
}

// withPermissionScope returns a copy of q keyed to a permission scope.
func withPermissionScope(q *domain.Query, scope string) *domain.Query {
	scoped := *q
	scoped.Filters.PermissionScope = scope
	scoped.Fingerprint = domain.Fingerprint(scoped.Normalized, scoped.Filters, scoped.Intent)
	return &scoped
}

// finish fills in the caller-facing parts of an answer.
func finish(
	q *domain.Query, results []domain.RankedResult, trace *domain.ReasoningTrace,
	maxResults int, minConfidence float64, a *domain.Answer,
) *domain.Answer {
	n := min(maxResults, len(results))
	a.Query = *q
	a.Results = append([]domain.RankedResult{}, results[:n]...)
	a.Trace = trace
	if trace != nil && trace.Confidence < minConfidence {
		a.Trace = nil
		a.TraceSuppressed = true
	}
	return a
}
