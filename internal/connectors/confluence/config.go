package confluence

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/navo/internal/connectors/match"
	"github.com/custodia-labs/navo/internal/core/domain"
)

// Config holds the parsed configuration for a Confluence source.
type Config struct {
	// BaseURL is the site root, e.g. https://example.atlassian.net/wiki.
	BaseURL string

	// Email and Token authenticate with basic auth (Confluence Cloud).
	Email string
	Token string

	// Spaces restricts search to these space keys. Empty searches all spaces.
	Spaces []string

	// Principals are granted on every page in addition to space:<KEY>.
	Principals []string
}

// ParseConfig parses a source's config map into a Config.
func ParseConfig(settings domain.SourceSettings) (*Config, error) {
	base := strings.TrimRight(settings.Config["base_url"], "/")
	if base == "" {
		return nil, fmt.Errorf("%w: confluence source %s: base_url is required", domain.ErrInvalidSettings, settings.ID)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: confluence source %s: base_url: %w", domain.ErrInvalidSettings, settings.ID, err)
	}

	return &Config{
		BaseURL:    base,
		Email:      settings.Config["email"],
		Token:      settings.Config["token"],
		Spaces:     match.SplitList(settings.Config["spaces"]),
		Principals: match.Principals(settings.Config),
	}, nil
}
