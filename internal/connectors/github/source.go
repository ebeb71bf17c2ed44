package github

import (
	"context"
	"fmt"
	"strings"
	"sync"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/navo/internal/connectors/match"
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// Type is the source type identifier.
const Type = "github"

// RepoPrefix prefixes the principal granted per repository.
const RepoPrefix = "repo:"

const (
	excerptRunes = 300
	maxPerPage   = 100
)

// Ensure Source implements the interface.
var _ driven.SourceAdapter = (*Source)(nil)

// Source searches GitHub issues.
type Source struct {
	id     string
	config *Config
	client *Client
	mu     sync.Mutex
	closed bool
}

// New creates a GitHub source.
func New(ctx context.Context, id string, cfg *Config) (*Source, error) {
	client, err := NewClient(ctx, cfg.Token, cfg.APIURL)
	if err != nil {
		return nil, err
	}
	return &Source{id: id, config: cfg, client: client}, nil
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return s.id
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return Type
}

// Search runs one issue search. GitHub returns best matches first; relevance
// follows that order.
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

	issues, err := s.client.SearchIssues(ctx, BuildQuery(terms, s.config), min(max(req.Limit, 1), maxPerPage))
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(issues))
	for i, issue := range issues {
		repo := repoName(issue)
		perms := append([]string(nil), s.config.Principals...)
		if repo != "" {
			perms = append(perms, RepoPrefix+repo)
		}
		candidates = append(candidates, domain.Candidate{
			DocumentID:   fmt.Sprintf("%s#%d", repo, issue.GetNumber()),
			Title:        issue.GetTitle(),
			URL:          issue.GetHTMLURL(),
			Excerpt:      match.Excerpt(issue.GetBody(), terms, excerptRunes),
			LastModified: issue.GetUpdatedAt().Time,
			Relevance:    1 - float64(i)/float64(len(issues)),
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

// BuildQuery joins the search terms with the configured qualifiers.
func BuildQuery(terms []string, cfg *Config) string {
	parts := append([]string{}, terms...)
	parts = append(parts, "in:title,body")
	parts = append(parts, cfg.Qualifiers()...)
	return strings.Join(parts, " ")
}

// repoName extracts owner/name from the issue's repository API URL.
func repoName(issue *gh.Issue) string {
	if r := issue.GetRepository(); r != nil && r.GetFullName() != "" {
		return r.GetFullName()
	}
	_, name, ok := strings.Cut(issue.GetRepositoryURL(), "/repos/")
	if !ok {
		return ""
	}
	return name
}
