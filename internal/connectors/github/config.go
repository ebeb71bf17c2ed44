package github

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/navo/internal/connectors/match"
	"github.com/custodia-labs/navo/internal/core/domain"
)

// Config holds the parsed configuration for a GitHub source.
type Config struct {
	// Token authenticates API calls.
	Token string

	// Repos limits search to owner/name repositories.
	Repos []string

	// Org limits search to an organisation.
	Org string

	// IncludePRs includes pull requests in results.
	IncludePRs bool

	// APIURL overrides the API root.
	APIURL string

	// Principals are granted on every result in addition to repo:<owner>/<name>.
	Principals []string
}

// ParseConfig parses a source's config map into a Config struct.
func ParseConfig(settings domain.SourceSettings) (*Config, error) {
	cfg := &Config{
		Token:      settings.Config["token"],
		Org:        strings.TrimSpace(settings.Config["org"]),
		APIURL:     settings.Config["api_url"],
		Principals: match.Principals(settings.Config),
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: github source %s: token is required", domain.ErrInvalidSettings, settings.ID)
	}

	for _, repo := range match.SplitList(settings.Config["repos"]) {
		if owner, name, ok := strings.Cut(repo, "/"); !ok || owner == "" || name == "" {
			return nil, fmt.Errorf("%w: github source %s: repo %q must be owner/name",
				domain.ErrInvalidSettings, settings.ID, repo)
		}
		cfg.Repos = append(cfg.Repos, repo)
	}

	if v := settings.Config["include_prs"]; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: github source %s: include_prs: %w", domain.ErrInvalidSettings, settings.ID, err)
		}
		cfg.IncludePRs = b
	}

	return cfg, nil
}

// Qualifiers returns the search qualifiers that scope every query.
func (c *Config) Qualifiers() []string {
	var q []string
	if !c.IncludePRs {
		q = append(q, "is:issue")
	}
	for _, repo := range c.Repos {
		q = append(q, "repo:"+repo)
	}
	if c.Org != "" && len(c.Repos) == 0 {
		q = append(q, "org:"+c.Org)
	}
	return q
}
