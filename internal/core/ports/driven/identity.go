package driven

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// IdentityProvider resolves the principals a caller holds.
// Called once per query, before the cache lookup and the permission filter.
type IdentityProvider interface {
	PermissionsFor(ctx context.Context, caller domain.CallerContext) (domain.PermissionSet, error)
}
