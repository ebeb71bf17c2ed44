package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/navo/internal/adapters/driven/ai"
	"github.com/custodia-labs/navo/internal/adapters/driven/cache/memory"
	"github.com/custodia-labs/navo/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/navo/internal/adapters/driven/config/file"
	"github.com/custodia-labs/navo/internal/adapters/driven/entities"
	"github.com/custodia-labs/navo/internal/adapters/driven/identity"
	memstore "github.com/custodia-labs/navo/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/navo/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/navo/internal/adapters/driving/cli"
	"github.com/custodia-labs/navo/internal/connectors"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
	"github.com/custodia-labs/navo/internal/core/services"
	"github.com/custodia-labs/navo/internal/logger"
)

// closers releases resources in reverse order of acquisition.
type closers []func() error

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// load builds every service from the config file at path.
func load(ctx context.Context, path string) (*cli.App, error) {
	store, err := openConfig(path)
	if err != nil {
		return nil, err
	}
	settings := store.Settings()
	logger.Debug("Config loaded from %s", store.Path())

	var cleanup closers
	fail := func(err error) (*cli.App, error) {
		_ = cleanup.close()
		return nil, err
	}

	hot, err := memory.New(settings.Cache.HotSize)
	if err != nil {
		return fail(fmt.Errorf("hot cache: %w", err))
	}
	tiers := []driven.CacheTier{hot}

	if settings.Cache.RedisAddr != "" {
		tiers = append(tiers, redis.New(redis.Options{
			Addr:     settings.Cache.RedisAddr,
			Password: settings.Cache.RedisPassword,
			DB:       settings.Cache.RedisDB,
			TagTTL:   2 * settings.Cache.TTL,
		}))
	}

	var (
		traces driven.TraceStore = memstore.NewTraceStore()
		prune  func(context.Context) (int, error)
	)
	if settings.Cache.DataDir != "" {
		db, err := sqlite.NewStore(settings.Cache.DataDir)
		if err != nil {
			return fail(fmt.Errorf("open data store: %w", err))
		}
		cleanup = append(cleanup, db.Close)
		materialized := db.CacheTier()
		tiers = append(tiers, materialized)
		traces = db.TraceStore()
		prune = materialized.PruneExpired
	} else {
		logger.Debug("No data_dir set; traces are kept in memory")
	}

	cache := services.NewCacheManager(settings.Cache, tiers...)
	cleanup = append(cleanup, cache.Close)
	logTierHealth(ctx, cache)

	completion, err := ai.CreateCompletionService(settings.Completion)
	if err != nil {
		return fail(fmt.Errorf("completion service: %w", err))
	}
	if completion != nil {
		cleanup = append(cleanup, completion.Close)
		logger.Debug("Completion model: %s", completion.ModelName())
	}

	registry := services.LoadSourceRegistry(ctx, connectors.NewFactory(), settings.Sources)
	cleanup = append(cleanup, registry.Close)
	if registry.Len() == 0 {
		logger.Warn("No sources enabled; run 'navo config init' and add sources to %s", store.Path())
	}

	permissions := identity.NewCachedProvider(
		identity.NewStaticProvider(settings.Identity),
		settings.Identity.CacheSize,
		settings.Identity.CacheTTL,
	)

	answers := services.NewAnswerService(
		services.NewQueryProcessor(settings.Query, entities.NewRuleExtractor(settings.Entities.Vocabulary)),
		permissions,
		registry,
		cache,
		services.NewOrchestrator(registry, settings.Orchestrator, settings.Ranking),
		services.NewReasoningEngine(settings.Reasoning, completion),
		traces,
	)

	return &cli.App{
		Answer:  answers,
		Trace:   services.NewTraceService(traces, cache),
		Cache:   cache,
		Sources: registry,
		Prune:   prune,
		Close:   cleanup.close,
	}, nil
}

func openConfig(path string) (*file.ConfigStore, error) {
	if path != "" {
		return file.NewConfigStoreAt(path)
	}
	return file.NewConfigStore("")
}

func logTierHealth(ctx context.Context, cache *services.CacheManager) {
	if !logger.IsVerbose() {
		return
	}
	for name, err := range cache.Health(ctx) {
		if err != nil {
			logger.Debug("Cache tier %s unreachable: %v", name, err)
			continue
		}
		logger.Debug("Cache tier %s ready", name)
	}
}
