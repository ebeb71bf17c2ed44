package driving

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// SourceCatalog lists the enabled sources.
type SourceCatalog interface {
	// List returns the settings of every enabled source, ordered by ID.
	List() []domain.SourceSettings

	// Health returns the query counters of every enabled source, ordered by ID.
	Health() []domain.SourceHealth

	// Check queries every source once, records the outcome and returns the
	// updated health.
	Check(ctx context.Context) []domain.SourceHealth
}
