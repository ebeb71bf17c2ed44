package driving

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// CacheService exposes cache administration.
type CacheService interface {
	// InvalidateFingerprint evicts one cached answer from every tier.
	InvalidateFingerprint(ctx context.Context, fingerprint string) error

	// InvalidateSource evicts every answer that drew on a source.
	InvalidateSource(ctx context.Context, sourceID string) (int, error)

	// InvalidateDocument evicts every answer containing a document.
	InvalidateDocument(ctx context.Context, sourceID, documentID string) (int, error)

	// Stats summarises cache behaviour.
	Stats() domain.CacheStats
}
