package cli

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/ports/driving"
	"github.com/custodia-labs/navo/internal/logger"
)

// sourceWatcher is implemented by source catalogs that can report changes.
type sourceWatcher interface {
	Watch(ctx context.Context, onChange func(sourceID, documentID string)) []string
}

// invalidateOnChange evicts cached answers affected by a source change.
// An empty document ID evicts everything drawn from the source.
func invalidateOnChange(ctx context.Context, cache driving.CacheService) func(sourceID, documentID string) {
	ctx = context.WithoutCancel(ctx)
	return func(sourceID, documentID string) {
		var (
			n   int
			err error
		)
		if documentID == "" {
			n, err = cache.InvalidateSource(ctx, sourceID)
		} else {
			n, err = cache.InvalidateDocument(ctx, sourceID, documentID)
		}
		if err != nil {
			logger.Warn("Invalidate after change in %s: %v", sourceID, err)
			return
		}
		logger.Debug("Change in %s/%s evicted %d answer(s)", sourceID, documentID, n)
	}
}
