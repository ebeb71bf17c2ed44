// Package filesystem searches text files under a local directory and
// reports changes to them through fsnotify.
package filesystem

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/navo/internal/connectors/match"
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
	"github.com/custodia-labs/navo/internal/logger"
)

// Type is the source type identifier.
const Type = "filesystem"

const (
	defaultLimit = 20
	excerptRunes = 300
)

// Ensure Source implements the interfaces.
var (
	_ driven.SourceAdapter  = (*Source)(nil)
	_ driven.ChangeNotifier = (*Source)(nil)
)

// Source searches files below a root directory.
type Source struct {
	id       string
	config   *Config
	mu       sync.Mutex
	watchers []*fsnotify.Watcher
	closed   bool
}

// New creates a filesystem source.
func New(id string, cfg *Config) *Source {
	return &Source{id: id, config: cfg}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return s.id
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return Type
}

// hit is a matching file before conversion to a candidate.
type hit struct {
	rel   string
	score float64
	doc   document
}

// Search walks the root and scores every readable text file against the
// query terms. Relevance is the term match score.
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

	var hits []hit
	err := filepath.WalkDir(s.config.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			logger.Debug("filesystem %s: skipping %s: %v", s.id, path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, _ := filepath.Rel(s.config.Root, path)
		if rel != "." && isHidden(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !s.hasSearchableExt(path) {
			return nil
		}

		doc, ok := s.read(path, d)
		if !ok {
			return nil
		}
		if score := match.Score(terms, doc.title, doc.body); score > 0 {
			hits = append(hits, hit{rel: filepath.ToSlash(rel), score: score, doc: doc})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("walk %s: %w", s.config.Root, err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].rel < hits[j].rel
	})

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	candidates := make([]domain.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = domain.Candidate{
			DocumentID:   h.rel,
			Title:        h.doc.title,
			URL:          fileURL(filepath.Join(s.config.Root, filepath.FromSlash(h.rel))),
			Excerpt:      match.Excerpt(h.doc.body, terms, excerptRunes),
			LastModified: h.doc.modified,
			Relevance:    h.score,
			Permissions:  s.config.Principals,
		}
	}
	return candidates, nil
}

// Watch reports file changes below the root until ctx is done or the
// source is closed. Directories created later are watched too.
func (s *Source) Watch(ctx context.Context, onChange func(sourceID, documentID string)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Permanent(domain.ErrSourceClosed)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("create watcher: %w", err)
	}
	s.watchers = append(s.watchers, watcher)
	s.mu.Unlock()

	if err := s.addTree(watcher, s.config.Root); err != nil {
		s.removeWatcher(watcher)
		return err
	}

	go s.run(ctx, watcher, onChange)
	return nil
}

func (s *Source) run(ctx context.Context, watcher *fsnotify.Watcher, onChange func(sourceID, documentID string)) {
	defer s.removeWatcher(watcher)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if docID, changed := s.handleEvent(watcher, event); changed {
				onChange(s.id, docID)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("filesystem %s: watch error: %v", s.id, err)
		}
	}
}

// handleEvent returns the document ID affected by an event. An empty
// document ID with changed set affects the whole source: a new file can
// match answers that never contained it, and a directory may have held
// many documents.
func (s *Source) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(s.config.Root, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || isHidden(rel) {
		return "", false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.addTree(watcher, event.Name); err != nil {
				logger.Warn("filesystem %s: %v", s.id, err)
			}
			return "", true
		}
		if s.hasSearchableExt(event.Name) {
			return "", true
		}
	}

	removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if !removed && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if s.hasSearchableExt(event.Name) {
		return filepath.ToSlash(rel), true
	}
	// A removed path without an extension may have been a directory.
	if removed && filepath.Ext(event.Name) == "" {
		return "", true
	}
	return "", false
}

// Close stops every watcher and rejects further searches.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var errs []error
	for _, w := range s.watchers {
		errs = append(errs, w.Close())
	}
	s.watchers = nil
	return errors.Join(errs...)
}

func (s *Source) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(s.config.Root, path); rel != "." && isHidden(rel) {
			return fs.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (s *Source) removeWatcher(watcher *fsnotify.Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.watchers, watcher); i >= 0 {
		s.watchers = slices.Delete(s.watchers, i, i+1)
		_ = watcher.Close()
	}
}

func (s *Source) hasSearchableExt(path string) bool {
	return slices.Contains(s.config.Extensions, strings.ToLower(filepath.Ext(path)))
}

// document is the searchable view of one file.
type document struct {
	title    string
	body     string
	modified time.Time
}

func (s *Source) read(path string, d fs.DirEntry) (document, bool) {
	info, err := d.Info()
	if err != nil || !info.Mode().IsRegular() || info.Size() > s.config.MaxFileBytes {
		return document{}, false
	}

	f, err := os.Open(path)
	if err != nil {
		return document{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.config.MaxFileBytes))
	if err != nil || bytes.IndexByte(data, 0) >= 0 {
		return document{}, false
	}

	return document{
		title:    title(data, filepath.Base(path)),
		body:     string(data),
		modified: info.ModTime().UTC(),
	}, true
}

// title returns the first markdown heading, or the file name without extension.
func title(data []byte, name string) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for i := 0; sc.Scan() && i < 20; i++ {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}

func fileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
