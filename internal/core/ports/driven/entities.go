package driven

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// EntityExtractor finds entities in query text.
// Extraction is best-effort: callers treat an error as "no entities".
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]domain.Entity, error)
}
