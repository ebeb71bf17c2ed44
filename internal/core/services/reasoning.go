package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
	"github.com/custodia-labs/navo/internal/logger"
)

// Knowledge gaps reported by the diagnostic step.
const (
	GapNoResults    = "no_results"
	GapFewResults   = "few_results"
	GapAllStale     = "all_stale"
	GapWeakTopScore = "weak_top_score"
)

// scoreGapScale is the top-1/top-2 gap treated as a decisive lead.
const scoreGapScale = 0.25

// completionSystemPrompt frames the prescriptive synthesis.
const completionSystemPrompt = "You recommend the next action for an employee's question. " +
	"Use only the documents provided. Answer in one or two sentences and cite the document title."

// stepInput is what every reasoning step reads.
type stepInput struct {
	query   *domain.Query
	results []domain.RankedResult
	terms   []string
}

// stepResult is what a step produces. Only the fields relevant to the step are set.
type stepResult struct {
	rationale    string
	confidence   float64
	gaps         []string
	action       string
	alternatives []domain.Alternative
}

type reasoningStep struct {
	kind domain.StepKind
	run  func(ctx context.Context, in *stepInput) (stepResult, error)
}

// ReasoningEngine produces an auditable trace for a ranked, filtered result set.
type ReasoningEngine struct {
	settings   domain.ReasoningSettings
	completion driven.CompletionService
	steps      []reasoningStep
	now        func() time.Time
}

// NewReasoningEngine creates a reasoning engine.
// The completion service is optional (can be nil).
func NewReasoningEngine(settings domain.ReasoningSettings, completion driven.CompletionService) *ReasoningEngine {
	e := &ReasoningEngine{
		settings:   settings,
		completion: completion,
		now:        time.Now,
	}
	e.steps = []reasoningStep{
		{domain.StepAnalytical, e.analytical},
		{domain.StepPredictive, e.predictive},
		{domain.StepDiagnostic, e.diagnostic},
		{domain.StepPrescriptive, e.prescriptive},
		{domain.StepComparative, e.comparative},
	}
	return e
}

// Analyze runs every step in order. A failing step is recorded with zero
// confidence and does not stop the others. Overall confidence is the
// minimum step confidence.
func (e *ReasoningEngine) Analyze(ctx context.Context, q *domain.Query, results []domain.RankedResult) *domain.ReasoningTrace {
	logger.Section("Reasoning")

	in := &stepInput{
		query:   q,
		results: results,
		terms:   queryTerms(q),
	}
	trace := &domain.ReasoningTrace{
		ID:          uuid.NewString(),
		Fingerprint: q.Fingerprint,
		Steps:       make([]domain.Step, 0, len(e.steps)),
		Confidence:  1,
		CreatedAt:   e.now(),
	}

	for _, step := range e.steps {
		start := time.Now()
		out, err := runStep(ctx, step, in)
		s := domain.Step{Kind: step.kind, Elapsed: time.Since(start)}
		if err != nil {
			logger.Warn("Reasoning step %s: %v", step.kind, err)
			s.Rationale = domain.RationaleStepFailed
			s.Failed = true
		} else {
			s.Rationale = out.rationale
			s.Confidence = clamp01(out.confidence)
			trace.Gaps = append(trace.Gaps, out.gaps...)
			if out.action != "" {
				trace.Action = out.action
			}
			if out.alternatives != nil {
				trace.Alternatives = out.alternatives
			}
		}
		trace.Steps = append(trace.Steps, s)
		trace.Confidence = math.Min(trace.Confidence, s.Confidence)
		logger.Debug("  %s: confidence=%.2f %s", s.Kind, s.Confidence, s.Rationale)
	}
	if len(trace.Steps) == 0 {
		trace.Confidence = 0
	}

	trace.Level = domain.LevelFor(trace.Confidence)
	trace.Summary = fmt.Sprintf("%s query, %d result(s), %s confidence (%.2f)",
		q.Intent, len(results), trace.Level, trace.Confidence)
	return trace
}

// runStep converts a panic into a step failure.
func runStep(ctx context.Context, step reasoningStep, in *stepInput) (out stepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrStepFailed, r)
		}
	}()
	out, err = step.run(ctx, in)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrStepFailed, err)
	}
	return out, err
}

// analytical measures how well the top results cover the query's terms.
func (e *ReasoningEngine) analytical(_ context.Context, in *stepInput) (stepResult, error) {
	top := topN(in.results, e.settings.TopN)
	if len(top) == 0 {
		return stepResult{
			rationale: fmt.Sprintf("%s intent with %d extracted entities; no results to analyze",
				in.query.Intent, len(in.query.Entities)),
		}, nil
	}

	covered, missing := coverage(in.terms, top)
	confidence := termRatio(len(covered), len(in.terms))
	rationale := fmt.Sprintf("%s intent; top %d result(s) cover %d of %d query term(s)",
		in.query.Intent, len(top), len(covered), len(in.terms))
	if len(missing) > 0 {
		rationale += fmt.Sprintf(" (missing: %s)", strings.Join(missing, ", "))
	}
	return stepResult{rationale: rationale, confidence: confidence}, nil
}

// predictive estimates whether the top result is the one the caller needs.
func (e *ReasoningEngine) predictive(_ context.Context, in *stepInput) (stepResult, error) {
	if len(in.results) == 0 {
		return stepResult{rationale: "No results to predict from"}, nil
	}

	top := in.results[0]
	gap := top.FusedScore
	if len(in.results) > 1 {
		gap = top.FusedScore - in.results[1].FusedScore
	}
	covered, _ := coverage(in.terms, in.results[:1])
	overlap := termRatio(len(covered), len(in.terms))
	confidence := 0.6*overlap + 0.4*math.Min(1, gap/scoreGapScale)

	return stepResult{
		rationale: fmt.Sprintf("%q leads by %.2f and matches %d of %d query term(s)",
			top.Candidate.Title, gap, len(covered), len(in.terms)),
		confidence: confidence,
	}, nil
}

// diagnostic lists knowledge gaps in the result set.
func (e *ReasoningEngine) diagnostic(_ context.Context, in *stepInput) (stepResult, error) {
	var gaps []string
	if len(in.results) == 0 {
		gaps = append(gaps, GapNoResults)
		return stepResult{rationale: "No permitted documents match the query", gaps: gaps}, nil
	}

	if len(in.results) < e.settings.MinResults {
		gaps = append(gaps, GapFewResults)
	}
	allStale := true
	for _, r := range in.results {
		if r.Freshness != domain.FreshnessStale {
			allStale = false
			break
		}
	}
	if allStale {
		gaps = append(gaps, GapAllStale)
	}
	if in.results[0].FusedScore < e.settings.WeakScore {
		gaps = append(gaps, GapWeakTopScore)
	}

	confidence := math.Max(0.1, 1-0.25*float64(len(gaps)))
	rationale := "No knowledge gaps detected"
	if len(gaps) > 0 {
		rationale = "Knowledge gaps: " + strings.Join(gaps, ", ")
	}
	return stepResult{rationale: rationale, confidence: confidence, gaps: gaps}, nil
}

// prescriptive recommends an action drawn only from the result set.
func (e *ReasoningEngine) prescriptive(ctx context.Context, in *stepInput) (stepResult, error) {
	if len(in.results) == 0 {
		return stepResult{
			rationale: "Nothing to recommend from an empty result set",
			action:    "Refine the query or ask the owning team",
		}, nil
	}

	top := in.results[0]
	action := templateAction(in.query.Intent, top.Candidate)
	rationale := fmt.Sprintf("Action derived from %s intent and the top result", in.query.Intent)

	if synthesized, ok := e.synthesize(ctx, in); ok {
		action = synthesized
		rationale = fmt.Sprintf("Action synthesized by %s from %d document(s)",
			e.completion.ModelName(), len(topN(in.results, e.settings.TopN)))
	}

	return stepResult{rationale: rationale, confidence: top.FusedScore, action: action}, nil
}

// synthesize asks the completion service for an action. Any failure falls
// back to the template.
func (e *ReasoningEngine) synthesize(ctx context.Context, in *stepInput) (string, bool) {
	if e.completion == nil {
		return "", false
	}

	top := topN(in.results, e.settings.TopN)
	docs := make([]driven.PromptDocument, len(top))
	for i, r := range top {
		docs[i] = driven.PromptDocument{Title: r.Candidate.Title, URL: r.Candidate.URL, Excerpt: r.Candidate.Excerpt}
	}

	cctx, cancel := context.WithTimeout(ctx, e.settings.CompletionTimeout)
	defer cancel()

	completion, err := e.completion.Complete(cctx, driven.PromptContext{
		System:    completionSystemPrompt,
		Question:  in.query.Raw,
		Documents: docs,
		MaxTokens: 200,
	})
	if err != nil {
		logger.Debug("Completion failed, using template action: %v", err)
		return "", false
	}
	text := strings.TrimSpace(completion.Text)
	return text, text != ""
}

// comparative ranks the top alternatives and says what sets each apart.
func (e *ReasoningEngine) comparative(_ context.Context, in *stepInput) (stepResult, error) {
	top := topN(in.results, e.settings.TopK)
	if len(top) == 0 {
		return stepResult{rationale: "No alternatives to compare", alternatives: []domain.Alternative{}}, nil
	}

	alternatives := make([]domain.Alternative, len(top))
	sources := make(map[string]struct{})
	for i, r := range top {
		c := r.Candidate
		sources[c.SourceID] = struct{}{}
		alternatives[i] = domain.Alternative{
			Rank:       i + 1,
			SourceID:   c.SourceID,
			DocumentID: c.DocumentID,
			Title:      c.Title,
			URL:        c.URL,
			Score:      r.FusedScore,
			Rationale:  distinguish(i, r, top),
		}
	}

	confidence := top[0].FusedScore
	if len(top) > 1 {
		confidence = 0.5 + (top[0].FusedScore - top[len(top)-1].FusedScore)
	}
	return stepResult{
		rationale:    fmt.Sprintf("Compared %d alternative(s) from %d source(s)", len(top), len(sources)),
		confidence:   confidence,
		alternatives: alternatives,
	}, nil
}

// distinguish describes what sets one alternative apart from the others.
func distinguish(i int, r domain.RankedResult, all []domain.RankedResult) string {
	var parts []string
	if i == 0 {
		parts = append(parts, "highest fused score")
	} else {
		parts = append(parts, fmt.Sprintf("%.2f below the top result", all[0].FusedScore-r.FusedScore))
	}

	freshest := true
	authoritative := true
	for j, other := range all {
		if j == i {
			continue
		}
		if other.Freshness.Rank() <= r.Freshness.Rank() {
			freshest = false
		}
		if other.Authority >= r.Authority {
			authoritative = false
		}
	}
	if freshest && len(all) > 1 {
		parts = append(parts, "freshest")
	}
	if authoritative && len(all) > 1 {
		parts = append(parts, "most authoritative source")
	}
	if n := len(r.MergedFrom); n > 0 {
		parts = append(parts, fmt.Sprintf("also found in %d other source(s)", n))
	}
	parts = append(parts, fmt.Sprintf("%s, from %s", r.Freshness, r.Candidate.SourceID))
	return strings.Join(parts, "; ")
}

func templateAction(intent domain.Intent, top domain.Candidate) string {
	switch intent {
	case domain.IntentTroubleshooting:
		return fmt.Sprintf("Apply the fix described in %q (%s); escalate if the problem persists", top.Title, top.URL)
	case domain.IntentProcedural:
		return fmt.Sprintf("Follow the steps in %q (%s)", top.Title, top.URL)
	case domain.IntentFactual:
		return fmt.Sprintf("Read %q (%s) for the answer", top.Title, top.URL)
	default:
		return fmt.Sprintf("Start with %q (%s), then explore the related documents", top.Title, top.URL)
	}
}

// queryTerms returns the keywords and entity texts, lowercased and unique.
func queryTerms(q *domain.Query) []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(t string) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	for _, k := range q.Keywords {
		add(k)
	}
	for _, e := range q.Entities {
		add(e.Text)
	}
	return terms
}

// coverage splits terms into those found in any result's title or excerpt and the rest.
func coverage(terms []string, results []domain.RankedResult) (covered, missing []string) {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = strings.ToLower(r.Candidate.Title + " " + r.Candidate.Excerpt)
	}
	for _, t := range terms {
		found := false
		for _, text := range texts {
			if strings.Contains(text, t) {
				found = true
				break
			}
		}
		if found {
			covered = append(covered, t)
		} else {
			missing = append(missing, t)
		}
	}
	return covered, missing
}

// termRatio is covered/total, or a neutral 0.5 when the query has no terms.
func termRatio(covered, total int) float64 {
	if total == 0 {
		return 0.5
	}
	return float64(covered) / float64(total)
}

func topN(results []domain.RankedResult, n int) []domain.RankedResult {
	if n <= 0 || n >= len(results) {
		return results
	}
	return results[:n]
}
