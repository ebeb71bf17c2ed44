// Package confluence searches Confluence pages through the REST search API.
package confluence

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/navo/internal/connectors/match"
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// Type is the source type identifier.
const Type = "confluence"

// SpacePrefix prefixes the principal granted per space.
const SpacePrefix = "space:"

const excerptRunes = 300

// Ensure Source implements the interface.
var _ driven.SourceAdapter = (*Source)(nil)

// Source searches one Confluence site.
type Source struct {
	id     string
	config *Config
	client *Client
	mu     sync.Mutex
	closed bool
}

// New creates a Confluence source.
func New(id string, cfg *Config) *Source {
	return &Source{id: id, config: cfg, client: NewClient(cfg)}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return s.id
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return Type
}

// Search runs a CQL text search. Relevance follows the order Confluence returns.
func (s *Source) Search(ctx context.Context, req driven.SearchRequest) ([]domain.Candidate, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, domain.Permanent(domain.ErrSourceClosed)
	}

	terms := match.Terms(req.Query)
	if len(terms) == 0 {
		return []domain.Candidate{}, nil
	}

	results, err := s.client.Search(ctx, BuildCQL(terms, req.Entities, s.config.Spaces), req.Limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(results))
	for i, r := range results {
		if r.Content.ID == "" {
			continue
		}
		title := r.Content.Title
		if title == "" {
			title = match.StripHTML(r.Title)
		}
		var perms []string
		perms = append(perms, s.config.Principals...)
		if key := r.Content.Space.Key; key != "" {
			perms = append(perms, SpacePrefix+key)
		}
		candidates = append(candidates, domain.Candidate{
			DocumentID:   r.Content.ID,
			Title:        strings.TrimSpace(title),
			URL:          s.pageURL(r.URL),
			Excerpt:      match.Excerpt(match.StripHTML(r.Excerpt), terms, excerptRunes),
			LastModified: parseTime(r.LastModified),
			Relevance:    1 - float64(i)/float64(len(results)),
			Permissions:  perms,
		})
	}
	return candidates, nil
}

// Close releases resources.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.client.Close()
	}
	return nil
}

func (s *Source) pageURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	return s.config.BaseURL + path
}

// BuildCQL builds a CQL query matching every term, or any extracted
// system or technology entity, within the configured spaces.
func BuildCQL(terms []string, entities []domain.Entity, spaces []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, fmt.Sprintf(`text ~ "%s"`, escapeCQL(t)))
	}
	cql := "type = page AND (" + strings.Join(quoted, " AND ")
	for _, e := range entities {
		if e.Type == "system" || e.Type == "technology" || e.Type == "ticket" {
			cql += fmt.Sprintf(` OR title ~ "%s"`, escapeCQL(e.Text))
		}
	}
	cql += ")"

	if len(spaces) > 0 {
		keys := make([]string, len(spaces))
		for i, sp := range spaces {
			keys[i] = fmt.Sprintf(`"%s"`, escapeCQL(sp))
		}
		cql += " AND space in (" + strings.Join(keys, ",") + ")"
	}
	return cql
}

func escapeCQL(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
