package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		confidence float64
		want       ConfidenceLevel
	}{
		{0, ConfidenceVeryLow},
		{0.29, ConfidenceVeryLow},
		{0.3, ConfidenceLow},
		{0.5, ConfidenceMedium},
		{0.7, ConfidenceHigh},
		{0.9, ConfidenceVeryHigh},
		{1, ConfidenceVeryHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.confidence), "confidence %v", tt.confidence)
	}
}

func TestStepKinds_Order(t *testing.T) {
	assert.Equal(t, []StepKind{
		StepAnalytical, StepPredictive, StepDiagnostic, StepPrescriptive, StepComparative,
	}, StepKinds())
}

func TestReasoningTrace_Step(t *testing.T) {
	trace := ReasoningTrace{Steps: []Step{{Kind: StepAnalytical, Confidence: 0.4}}}

	s, ok := trace.Step(StepAnalytical)
	assert.True(t, ok)
	assert.Equal(t, 0.4, s.Confidence)

	_, ok = trace.Step(StepComparative)
	assert.False(t, ok)
}

func TestFreshness_Rank(t *testing.T) {
	assert.Less(t, FreshnessFresh.Rank(), FreshnessAging.Rank())
	assert.Less(t, FreshnessAging.Rank(), FreshnessStale.Rank())
}

func TestDocumentSuccess_Boost(t *testing.T) {
	tests := []struct {
		name    string
		success DocumentSuccess
		want    float64
	}{
		{"no votes", DocumentSuccess{}, 0},
		{"one helpful", DocumentSuccess{Helpful: 1}, FeedbackStep},
		{"net unhelpful", DocumentSuccess{Helpful: 1, Unhelpful: 3}, -2 * FeedbackStep},
		{"capped up", DocumentSuccess{Helpful: 50}, MaxFeedbackBoost},
		{"capped down", DocumentSuccess{Unhelpful: 50}, -MaxFeedbackBoost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.success.Boost(), 1e-9)
		})
	}
}

func TestFeedback_Key(t *testing.T) {
	f := Feedback{SourceID: "wiki", DocumentID: "runbooks/deploy"}
	assert.Equal(t, "wiki/runbooks/deploy", f.Key())
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := []HistoryEntry{
		{TraceID: "t3", Confidence: 0.9, Level: ConfidenceVeryHigh, Intent: IntentProcedural, Elapsed: 30 * time.Millisecond, AskedAt: now, FromCache: true},
		{TraceID: "t2", Confidence: 0.6, Level: ConfidenceMedium, Intent: IntentProcedural, Elapsed: 20 * time.Millisecond, AskedAt: now.Add(-time.Minute)},
		{TraceID: "t1", Confidence: 0.3, Level: ConfidenceLow, Intent: IntentFactual, Elapsed: 10 * time.Millisecond, AskedAt: now.Add(-2 * time.Minute)},
	}

	a := Summarize(history, 2)

	assert.Equal(t, 3, a.TotalQueries)
	assert.Equal(t, 1, a.CacheHits)
	assert.InDelta(t, 0.6, a.AverageConfidence, 1e-9)
	assert.Equal(t, 20*time.Millisecond, a.AverageElapsed)
	assert.Equal(t, 2, a.Intents[IntentProcedural])
	assert.Equal(t, 1, a.Levels[ConfidenceLow])
	require.Len(t, a.Recent, 2)
	assert.Equal(t, "t3", a.Recent[0].TraceID)
}

func TestSummarize_Empty(t *testing.T) {
	a := Summarize(nil, 10)

	assert.Zero(t, a.TotalQueries)
	assert.Zero(t, a.AverageConfidence)
	assert.NotNil(t, a.Recent)
	assert.Empty(t, a.Recent)
}
