package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/navo/internal/core/domain"
)

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestStyles_Confidence(t *testing.T) {
	s := DefaultStyles()
	theme := s.Theme()

	tests := []struct {
		level    domain.ConfidenceLevel
		expected any
	}{
		{domain.ConfidenceVeryHigh, theme.Success},
		{domain.ConfidenceHigh, theme.Success},
		{domain.ConfidenceMedium, theme.Warning},
		{domain.ConfidenceLow, theme.Error},
		{domain.ConfidenceVeryLow, theme.Error},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Confidence(tt.level).GetForeground())
		})
	}
}

func TestStyles_Status(t *testing.T) {
	s := DefaultStyles()
	theme := s.Theme()

	assert.Equal(t, theme.Success, s.Status(domain.SourceStatusHealthy).GetForeground())
	assert.Equal(t, theme.Warning, s.Status(domain.SourceStatusDegraded).GetForeground())
	assert.Equal(t, theme.Error, s.Status(domain.SourceStatusDown).GetForeground())
	assert.Equal(t, theme.Muted, s.Status(domain.SourceStatusUnknown).GetForeground())
}
