package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSourceHealth_Record(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := SourceHealth{SourceID: "wiki", Status: SourceStatusUnknown}

	h.Record(nil, 40*time.Millisecond, at)
	assert.Equal(t, SourceStatusHealthy, h.Status)
	assert.Equal(t, at, h.LastSuccessAt)

	boom := errors.New("connection refused")
	h.Record(boom, time.Second, at.Add(time.Minute))
	assert.Equal(t, SourceStatusDegraded, h.Status)
	assert.Equal(t, "connection refused", h.LastError)
	assert.Equal(t, 1, h.ConsecutiveFailures)

	h.Record(boom, time.Second, at.Add(2*time.Minute))
	h.Record(boom, time.Second, at.Add(3*time.Minute))
	assert.Equal(t, SourceStatusDown, h.Status)
	assert.Equal(t, int64(4), h.Queries)
	assert.Equal(t, int64(3), h.Failures)

	h.Record(nil, 10*time.Millisecond, at.Add(4*time.Minute))
	assert.Equal(t, SourceStatusHealthy, h.Status)
	assert.Zero(t, h.ConsecutiveFailures)
	assert.Equal(t, "connection refused", h.LastError)
}
