package driven

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// SourceAdapter searches one knowledge repository.
// Each source type (confluence, github, drive, filesystem) implements this interface.
type SourceAdapter interface {
	// ID returns the configured source ID stamped on every candidate.
	ID() string

	// Type returns the adapter variant.
	Type() string

	// Search returns candidates for the request. It must honour ctx's deadline
	// and return a timeout-class error when it cannot. Errors wrapped with
	// domain.Permanent are not retried.
	Search(ctx context.Context, req SearchRequest) ([]domain.Candidate, error)

	// Close releases resources.
	Close() error
}

// SearchRequest is what the orchestrator sends to each adapter.
type SearchRequest struct {
	// Query is the normalized query text.
	Query string

	// Entities are the extracted entities, usable as filters.
	Entities []domain.Entity

	// Permissions is the caller's permission set. Adapters may use it to
	// pre-filter, but the permission filter runs regardless.
	Permissions domain.PermissionSet

	// Limit is the maximum number of candidates wanted.
	Limit int
}

// ChangeNotifier is implemented by adapters that can report content changes.
// The callback receives the source ID and, when known, the changed document ID.
// Watch returns once watching has started; notifications stop when ctx is done.
type ChangeNotifier interface {
	Watch(ctx context.Context, onChange func(sourceID, documentID string)) error
}

// SourceFactory builds source adapters from configuration.
type SourceFactory interface {
	// Create builds an adapter for the settings or returns domain.ErrUnsupportedType.
	Create(ctx context.Context, settings domain.SourceSettings) (SourceAdapter, error)

	// SupportedTypes returns the adapter variants the factory can build.
	SupportedTypes() []string
}
