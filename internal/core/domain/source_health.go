package domain

import "time"

// SourceStatus is the observed state of a source.
type SourceStatus string

// Source states.
const (
	SourceStatusUnknown  SourceStatus = "unknown"
	SourceStatusHealthy  SourceStatus = "healthy"
	SourceStatusDegraded SourceStatus = "degraded"
	SourceStatusDown     SourceStatus = "down"
)

// SourceDownAfter consecutive failures mark a source down.
const SourceDownAfter = 3

// SourceHealth counts the outcomes of queries sent to one source.
type SourceHealth struct {
	SourceID            string        `json:"source_id"`
	Type                string        `json:"type"`
	Status              SourceStatus  `json:"status"`
	Queries             int64         `json:"queries"`
	Failures            int64         `json:"failures"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastError           string        `json:"last_error,omitempty"`
	LastErrorAt         time.Time     `json:"last_error_at"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	LastLatency         time.Duration `json:"last_latency"`
}

// Record folds one query outcome into the counters.
func (h *SourceHealth) Record(err error, latency time.Duration, at time.Time) {
	h.Queries++
	h.LastLatency = latency
	if err == nil {
		h.ConsecutiveFailures = 0
		h.LastSuccessAt = at
		h.Status = SourceStatusHealthy
		return
	}

	h.Failures++
	h.ConsecutiveFailures++
	h.LastError = err.Error()
	h.LastErrorAt = at
	h.Status = SourceStatusDegraded
	if h.ConsecutiveFailures >= SourceDownAfter {
		h.Status = SourceStatusDown
	}
}
