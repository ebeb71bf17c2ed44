package connectors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/navo/internal/connectors/confluence"
	"github.com/custodia-labs/navo/internal/connectors/filesystem"
	"github.com/custodia-labs/navo/internal/connectors/github"
	"github.com/custodia-labs/navo/internal/connectors/google/drive"
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// Builder creates a source adapter from its settings.
type Builder func(ctx context.Context, settings domain.SourceSettings) (driven.SourceAdapter, error)

// Ensure Factory implements the interface.
var _ driven.SourceFactory = (*Factory)(nil)

// Factory creates source adapters by type.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewFactory creates a factory with the built-in source types registered.
func NewFactory() *Factory {
	f := &Factory{builders: make(map[string]Builder)}
	f.Register(confluence.Type, buildConfluence)
	f.Register(github.Type, buildGitHub)
	f.Register(drive.Type, buildDrive)
	f.Register(filesystem.Type, buildFilesystem)
	return f
}

// Register adds or replaces the builder for a source type.
func (f *Factory) Register(sourceType string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[sourceType] = builder
}

// Create builds the adapter for a source.
// Returns domain.ErrUnsupportedType if the type is unknown.
func (f *Factory) Create(ctx context.Context, settings domain.SourceSettings) (driven.SourceAdapter, error) {
	f.mu.RLock()
	builder, ok := f.builders[settings.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: source type %q", domain.ErrUnsupportedType, settings.Type)
	}
	return builder(ctx, settings)
}

// SupportedTypes returns the registered source types, sorted.
func (f *Factory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func buildConfluence(_ context.Context, settings domain.SourceSettings) (driven.SourceAdapter, error) {
	cfg, err := confluence.ParseConfig(settings)
	if err != nil {
		return nil, err
	}
	return confluence.New(settings.ID, cfg), nil
}

func buildGitHub(ctx context.Context, settings domain.SourceSettings) (driven.SourceAdapter, error) {
	cfg, err := github.ParseConfig(settings)
	if err != nil {
		return nil, err
	}
	src, err := github.New(ctx, settings.ID, cfg)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func buildDrive(ctx context.Context, settings domain.SourceSettings) (driven.SourceAdapter, error) {
	cfg, err := drive.ParseConfig(settings)
	if err != nil {
		return nil, err
	}
	src, err := drive.New(ctx, settings.ID, cfg)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func buildFilesystem(_ context.Context, settings domain.SourceSettings) (driven.SourceAdapter, error) {
	cfg, err := filesystem.ParseConfig(settings)
	if err != nil {
		return nil, err
	}
	return filesystem.New(settings.ID, cfg), nil
}
