package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
	"github.com/custodia-labs/navo/internal/core/ports/driving"
	"github.com/custodia-labs/navo/internal/logger"
)

// Ensure SourceRegistry implements the interface.
var _ driving.SourceCatalog = (*SourceRegistry)(nil)

// Check sends healthCheckQuery to every source, waiting at most
// defaultCheckTimeout for sources without their own timeout.
const (
	healthCheckQuery    = "navo health check"
	defaultCheckTimeout = 10 * time.Second
)

// registeredSource is an enabled adapter with its settings and throttle.
type registeredSource struct {
	adapter  driven.SourceAdapter
	settings domain.SourceSettings

	// limiter is nil when the source is not throttled.
	limiter *rate.Limiter

	mu     sync.Mutex
	health domain.SourceHealth
}

// record folds one query outcome into the source's health.
func (s *registeredSource) record(err error, latency time.Duration, at time.Time) {
	s.mu.Lock()
	s.health.Record(err, latency, at)
	s.mu.Unlock()
}

func (s *registeredSource) snapshot() domain.SourceHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

// SourceRegistry holds the enabled source adapters, built once at startup.
type SourceRegistry struct {
	sources map[string]*registeredSource
}

// NewSourceRegistry creates an empty registry.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{
		sources: make(map[string]*registeredSource),
	}
}

// LoadSourceRegistry builds adapters for every enabled source. A source whose
// adapter cannot be built is logged and left out.
func LoadSourceRegistry(ctx context.Context, factory driven.SourceFactory, sources []domain.SourceSettings) *SourceRegistry {
	r := NewSourceRegistry()
	for _, s := range sources {
		if !s.Enabled {
			logger.Debug("Source %s is disabled", s.ID)
			continue
		}
		adapter, err := factory.Create(ctx, s)
		if err != nil {
			logger.Warn("Source %s (%s) not loaded: %v", s.ID, s.Type, err)
			continue
		}
		if err := r.Register(adapter, s); err != nil {
			logger.Warn("Source %s not registered: %v", s.ID, err)
			_ = adapter.Close()
		}
	}
	logger.Debug("Loaded %d source(s)", r.Len())
	return r
}

// Register adds an adapter. Source IDs must be unique.
func (r *SourceRegistry) Register(adapter driven.SourceAdapter, settings domain.SourceSettings) error {
	id := adapter.ID()
	if _, exists := r.sources[id]; exists {
		return fmt.Errorf("%w: duplicate source id %s", domain.ErrInvalidSettings, id)
	}

	var limiter *rate.Limiter
	if settings.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(settings.RatePerSecond), max(settings.Burst, 1))
	}

	settings.ID = id
	r.sources[id] = &registeredSource{
		adapter:  adapter,
		settings: settings,
		limiter:  limiter,
		health: domain.SourceHealth{
			SourceID: id,
			Type:     settings.Type,
			Status:   domain.SourceStatusUnknown,
		},
	}
	return nil
}

// selectSources returns the sources named by filter, or every source when filter is
// empty, ordered by ID. Naming a source that is not registered is an input error.
func (r *SourceRegistry) selectSources(filter []string) ([]*registeredSource, error) {
	if len(filter) == 0 {
		return r.all(), nil
	}

	out := make([]*registeredSource, 0, len(filter))
	for _, id := range filter {
		s, ok := r.sources[id]
		if !ok {
			return nil, domain.NewInputError(domain.ErrUnknownSource, "%q is not an enabled source", id)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].adapter.ID() < out[j].adapter.ID() })
	return out, nil
}

// Get returns the adapter for a source ID.
func (r *SourceRegistry) Get(id string) (driven.SourceAdapter, bool) {
	s, ok := r.sources[id]
	if !ok {
		return nil, false
	}
	return s.adapter, true
}

// List returns the settings of every registered source, ordered by ID.
func (r *SourceRegistry) List() []domain.SourceSettings {
	all := r.all()
	out := make([]domain.SourceSettings, len(all))
	for i, s := range all {
		out[i] = s.settings
	}
	return out
}

// Health returns the query counters of every registered source, ordered by ID.
func (r *SourceRegistry) Health() []domain.SourceHealth {
	all := r.all()
	out := make([]domain.SourceHealth, len(all))
	for i, s := range all {
		out[i] = s.snapshot()
	}
	return out
}

// Check sends a one-result query to every source and records each outcome
// in its health. Sources are checked concurrently.
func (r *SourceRegistry) Check(ctx context.Context) []domain.SourceHealth {
	req := driven.SearchRequest{
		Query:       healthCheckQuery,
		Permissions: domain.NewPermissionSet(domain.PrincipalEveryone),
		Limit:       1,
	}

	var g errgroup.Group
	for _, s := range r.all() {
		g.Go(func() error {
			timeout := s.settings.Timeout
			if timeout <= 0 {
				timeout = defaultCheckTimeout
			}
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			_, err := s.adapter.Search(cctx, req)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				logger.Warn("Source %s failed its health check: %v", s.adapter.ID(), err)
			}
			s.record(err, time.Since(start), time.Now())
			return nil
		})
	}
	_ = g.Wait()
	return r.Health()
}

// Adapters returns every registered adapter, ordered by ID.
func (r *SourceRegistry) Adapters() []driven.SourceAdapter {
	all := r.all()
	out := make([]driven.SourceAdapter, len(all))
	for i, s := range all {
		out[i] = s.adapter
	}
	return out
}

// Len returns the number of registered sources.
func (r *SourceRegistry) Len() int {
	return len(r.sources)
}

// Watch starts change notification on every adapter that supports it and
// returns the IDs of the sources being watched. A source that fails to start
// watching is logged and skipped.
func (r *SourceRegistry) Watch(ctx context.Context, onChange func(sourceID, documentID string)) []string {
	var watching []string
	for _, s := range r.all() {
		notifier, ok := s.adapter.(driven.ChangeNotifier)
		if !ok {
			continue
		}
		if err := notifier.Watch(ctx, onChange); err != nil {
			logger.Warn("Source %s: watch not started: %v", s.adapter.ID(), err)
			continue
		}
		watching = append(watching, s.adapter.ID())
	}
	return watching
}

// Close closes every adapter.
func (r *SourceRegistry) Close() error {
	var errs []error
	for _, s := range r.all() {
		if err := s.adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source %s: %w", s.adapter.ID(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *SourceRegistry) all() []*registeredSource {
	out := make([]*registeredSource, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].adapter.ID() < out[j].adapter.ID() })
	return out
}
