// Package drive searches Google Drive files with full-text queries.
package drive

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/navo/internal/connectors/google"
	"github.com/custodia-labs/navo/internal/connectors/match"
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// Type is the source type identifier.
const Type = "drive"

// Principal prefixes derived from Drive sharing permissions.
const (
	UserPrefix   = "user:"
	GroupPrefix  = "group:"
	DomainPrefix = "domain:"
)

const (
	defaultLimit = 20
	excerptRunes = 300
	listFields   = "files(id,name,mimeType,webViewLink,modifiedTime,description,permissions(type,emailAddress,domain))"
)

// Ensure Source implements the interface.
var _ driven.SourceAdapter = (*Source)(nil)

// Source searches one Google Drive account.
type Source struct {
	id          string
	config      *Config
	svc         *drive.Service
	rateLimiter *google.RateLimiter
	mu          sync.Mutex
	closed      bool
}

// New creates a Drive source and its API client.
func New(ctx context.Context, id string, cfg *Config) (*Source, error) {
	svc, err := google.NewDriveService(ctx, cfg.Credentials)
	if err != nil {
		return nil, err
	}
	return &Source{
		id:          id,
		config:      cfg,
		svc:         svc,
		rateLimiter: google.NewRateLimiter(google.DriveRateLimit),
	}, nil
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return s.id
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return Type
}

// Search runs a Drive full-text query. Drive orders full-text results by
// its own relevance, so Relevance follows that order.
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

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	call := s.svc.Files.List().
		Context(ctx).
		Q(BuildQuery(terms, s.config.FolderIDs, s.config.MimeTypes)).
		PageSize(int64(limit)).
		Fields(listFields)
	if s.config.SharedDrives {
		call = call.SupportsAllDrives(true).IncludeItemsFromAllDrives(true)
	}

	list, err := call.Do()
	if err != nil {
		if google.IsRateLimited(err) {
			s.rateLimiter.RecordRateLimitError(0)
		}
		return nil, google.WrapError(err)
	}

	candidates := make([]domain.Candidate, 0, len(list.Files))
	for i, f := range list.Files {
		if f.Id == "" {
			continue
		}
		modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
		candidates = append(candidates, domain.Candidate{
			DocumentID:   f.Id,
			Title:        f.Name,
			URL:          f.WebViewLink,
			Excerpt:      match.Excerpt(f.Description, terms, excerptRunes),
			LastModified: modified.UTC(),
			Relevance:    1 - float64(i)/float64(len(list.Files)),
			Permissions:  s.principals(f.Permissions),
		})
	}
	return candidates, nil
}

// Close releases resources.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// principals maps a file's sharing permissions to principals.
func (s *Source) principals(perms []*drive.Permission) []string {
	out := append([]string(nil), s.config.Principals...)
	for _, p := range perms {
		switch p.Type {
		case "anyone":
			out = append(out, domain.PrincipalEveryone)
		case "user":
			if p.EmailAddress != "" {
				out = append(out, UserPrefix+strings.ToLower(p.EmailAddress))
			}
		case "group":
			if p.EmailAddress != "" {
				out = append(out, GroupPrefix+strings.ToLower(p.EmailAddress))
			}
		case "domain":
			if p.Domain != "" {
				out = append(out, DomainPrefix+strings.ToLower(p.Domain))
			}
		}
	}
	return out
}

// BuildQuery builds a Drive query requiring every term, excluding trashed
// files and honouring folder and MIME type restrictions.
func BuildQuery(terms, folderIDs, mimeTypes []string) string {
	clauses := make([]string, 0, len(terms)+3)
	for _, t := range terms {
		clauses = append(clauses, fmt.Sprintf("fullText contains '%s'", escape(t)))
	}
	clauses = append(clauses, "trashed = false")

	if len(folderIDs) > 0 {
		parts := make([]string, len(folderIDs))
		for i, id := range folderIDs {
			parts[i] = fmt.Sprintf("'%s' in parents", escape(id))
		}
		clauses = append(clauses, "("+strings.Join(parts, " or ")+")")
	}
	if len(mimeTypes) > 0 {
		parts := make([]string, len(mimeTypes))
		for i, m := range mimeTypes {
			parts[i] = fmt.Sprintf("mimeType = '%s'", escape(m))
		}
		clauses = append(clauses, "("+strings.Join(parts, " or ")+")")
	}
	return strings.Join(clauses, " and ")
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
