package entities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/navo/internal/core/domain"
)

func TestRuleExtractor_DefaultVocabulary(t *testing.T) {
	e := NewRuleExtractor(nil)

	got, err := e.Extract(context.Background(), "How do I deploy React apps to Kubernetes from Jira?")
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{
		{Text: "React", Type: "technology"},
		{Text: "Kubernetes", Type: "technology"},
		{Text: "Jira", Type: "system"},
	}, got)
}

func TestRuleExtractor_Patterns(t *testing.T) {
	e := NewRuleExtractor(map[string][]string{"team": {"platform"}})

	got, err := e.Extract(context.Background(),
		"OPS-1234 broke v2.3.1 for platform, see https://wiki.example.com/x or mail sre@example.com")
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{
		{Text: "OPS-1234", Type: TypeTicket},
		{Text: "v2.3.1", Type: TypeVersion},
		{Text: "platform", Type: "team"},
		{Text: "https://wiki.example.com/x", Type: TypeURL},
		{Text: "sre@example.com", Type: TypeEmail},
	}, got)
}

func TestRuleExtractor_URLSwallowsInnerMatches(t *testing.T) {
	e := NewRuleExtractor(map[string][]string{"system": {"confluence"}})

	got, err := e.Extract(context.Background(), "https://confluence.example.com/v1.2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, TypeURL, got[0].Type)
}

func TestRuleExtractor_WholeWordsOnly(t *testing.T) {
	e := NewRuleExtractor(map[string][]string{"technology": {"go"}})

	got, err := e.Extract(context.Background(), "google good gopher")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = e.Extract(context.Background(), "write it in Go")
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{{Text: "Go", Type: "technology"}}, got)
}

func TestRuleExtractor_LongestTermWins(t *testing.T) {
	e := NewRuleExtractor(map[string][]string{"system": {"google", "google drive"}})

	got, err := e.Extract(context.Background(), "search google drive")
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{{Text: "google drive", Type: "system"}}, got)
}

func TestRuleExtractor_Deduplicates(t *testing.T) {
	e := NewRuleExtractor(nil)

	got, err := e.Extract(context.Background(), "slack vs Slack vs SLACK")
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{{Text: "slack", Type: "system"}}, got)
}

func TestRuleExtractor_NothingFound(t *testing.T) {
	e := NewRuleExtractor(nil)

	got, err := e.Extract(context.Background(), "vacation policy")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRuleExtractor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRuleExtractor(nil).Extract(ctx, "jira")
	assert.ErrorIs(t, err, context.Canceled)
}
