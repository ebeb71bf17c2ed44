package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// traceStore implements driven.TraceStore.
type traceStore struct {
	store *Store
}

var _ driven.TraceStore = (*traceStore)(nil)

// Save stores a trace. Saving an existing ID leaves the stored trace unchanged.
func (s *traceStore) Save(ctx context.Context, trace *domain.ReasoningTrace) error {
	payload, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("marshalling trace: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO traces (id, fingerprint, confidence, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, trace.ID, trace.Fingerprint, trace.Confidence, string(payload), trace.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving trace: %w", err)
	}
	return nil
}

// Get retrieves a trace by ID.
func (s *traceStore) Get(ctx context.Context, id string) (*domain.ReasoningTrace, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT payload FROM traces WHERE id = ?", id)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning trace: %w", err)
	}

	var trace domain.ReasoningTrace
	if err := json.Unmarshal([]byte(payload), &trace); err != nil {
		return nil, fmt.Errorf("unmarshaling trace: %w", err)
	}
	return &trace, nil
}

// SaveFeedback records feedback against a stored trace.
func (s *traceStore) SaveFeedback(ctx context.Context, fb domain.Feedback) error {
	recordedAt := fb.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.store.now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO feedback (trace_id, source_id, document_id, helpful, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, fb.TraceID, fb.SourceID, fb.DocumentID, boolToInt(fb.Helpful), recordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving feedback: %w", err)
	}
	return nil
}

// ListFeedback returns feedback for a trace, oldest first.
func (s *traceStore) ListFeedback(ctx context.Context, traceID string) ([]domain.Feedback, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT trace_id, source_id, document_id, helpful, recorded_at
		FROM feedback WHERE trace_id = ?
		ORDER BY recorded_at, id
	`, traceID)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var out []domain.Feedback //nolint:prealloc // size unknown from query
	for rows.Next() {
		var fb domain.Feedback
		var helpful int
		var recordedAt int64
		if err := rows.Scan(&fb.TraceID, &fb.SourceID, &fb.DocumentID, &helpful, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		fb.Helpful = helpful != 0
		fb.RecordedAt = time.Unix(0, recordedAt).UTC()
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback: %w", err)
	}
	return out, nil
}

// DocumentSuccess tallies feedback for the documents named by keys.
func (s *traceStore) DocumentSuccess(ctx context.Context, keys []string) (map[string]domain.DocumentSuccess, error) {
	out := make(map[string]domain.DocumentSuccess)
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id || '/' || document_id AS doc_key,
		       SUM(helpful), SUM(1 - helpful)
		FROM feedback
		WHERE source_id || '/' || document_id IN (`+placeholders+`)
		GROUP BY source_id, document_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying document feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var success domain.DocumentSuccess
		if err := rows.Scan(&key, &success.Helpful, &success.Unhelpful); err != nil {
			return nil, fmt.Errorf("scanning document feedback: %w", err)
		}
		out[key] = success
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document feedback: %w", err)
	}
	return out, nil
}

// SaveHistory appends one answered question.
func (s *traceStore) SaveHistory(ctx context.Context, h domain.HistoryEntry) error {
	askedAt := h.AskedAt
	if askedAt.IsZero() {
		askedAt = s.store.now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO history (trace_id, user_id, query, intent, confidence, level, results, from_cache, elapsed_ns, asked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.TraceID, h.UserID, h.Query, string(h.Intent), h.Confidence, string(h.Level),
		h.Results, boolToInt(h.FromCache), int64(h.Elapsed), askedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// List returns history newest first. An empty userID lists every caller.
func (s *traceStore) List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT trace_id, user_id, query, intent, confidence, level, results, from_cache, elapsed_ns, asked_at
		FROM history
		WHERE ? = '' OR user_id = ?
		ORDER BY asked_at DESC, id DESC
		LIMIT ?
	`, userID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	out := []domain.HistoryEntry{}
	for rows.Next() {
		var h domain.HistoryEntry
		var intent, level string
		var fromCache int
		var elapsed, askedAt int64
		if err := rows.Scan(&h.TraceID, &h.UserID, &h.Query, &intent, &h.Confidence, &level,
			&h.Results, &fromCache, &elapsed, &askedAt); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		h.Intent = domain.Intent(intent)
		h.Level = domain.ConfidenceLevel(level)
		h.FromCache = fromCache != 0
		h.Elapsed = time.Duration(elapsed)
		h.AskedAt = time.Unix(0, askedAt).UTC()
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
