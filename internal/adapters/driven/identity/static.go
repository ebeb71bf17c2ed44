// Package identity resolves callers to permission sets.
package identity

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// Principal prefixes granted from the caller context.
const (
	UserPrefix    = "user:"
	TeamPrefix    = "team:"
	ProjectPrefix = "project:"
)

// StaticProvider grants principals from configured mappings.
// Every caller holds everyone; a caller with a user ID also holds user:<id>,
// and team or project membership adds team:<name> or project:<name> plus
// whatever the mapping lists.
type StaticProvider struct {
	users    map[string][]string
	teams    map[string][]string
	projects map[string][]string
}

var _ driven.IdentityProvider = (*StaticProvider)(nil)

// NewStaticProvider creates a provider from identity settings.
func NewStaticProvider(settings domain.IdentitySettings) *StaticProvider {
	return &StaticProvider{
		users:    settings.Users,
		teams:    settings.Teams,
		projects: settings.Projects,
	}
}

// PermissionsFor resolves the caller's principals.
func (p *StaticProvider) PermissionsFor(ctx context.Context, caller domain.CallerContext) (domain.PermissionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	principals := []string{domain.PrincipalEveryone}
	if caller.UserID != "" {
		principals = append(principals, UserPrefix+caller.UserID)
		principals = append(principals, p.users[caller.UserID]...)
	}
	if caller.Team != "" {
		principals = append(principals, TeamPrefix+caller.Team)
		principals = append(principals, p.teams[caller.Team]...)
	}
	if caller.Project != "" {
		principals = append(principals, ProjectPrefix+caller.Project)
		principals = append(principals, p.projects[caller.Project]...)
	}
	return domain.NewPermissionSet(principals...), nil
}
