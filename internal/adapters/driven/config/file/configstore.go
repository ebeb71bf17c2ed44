package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// ConfigStore loads settings from a TOML file in the navo config directory.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	settings domain.Settings
}

// NewConfigStore creates a store for configDir/config.toml and loads it.
// If configDir is empty, defaults to ~/.navo. A missing file yields defaults.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".navo")
	}
	return NewConfigStoreAt(filepath.Join(configDir, "config.toml"))
}

// NewConfigStoreAt creates a store for an explicit file path and loads it.
func NewConfigStoreAt(path string) (*ConfigStore, error) {
	s := &ConfigStore{filePath: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Settings returns the loaded settings.
func (s *ConfigStore) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Load reads and validates the TOML file. Keys absent from the file keep
// their defaults.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := fromSettings(domain.DefaultSettings())

	data, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file yet - run on defaults
	case err != nil:
		return fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidSettings, s.filePath, err)
		}
	}

	settings := cfg.toSettings()
	if err := settings.Validate(); err != nil {
		return err
	}
	s.settings = settings
	return nil
}

// WriteDefault writes the default configuration if the file does not exist.
// It returns false when a file was already present.
func (s *ConfigStore) WriteDefault() (bool, error) {
	if _, err := os.Stat(s.filePath); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return false, err
	}

	data, err := toml.Marshal(fromSettings(domain.DefaultSettings()))
	if err != nil {
		return false, err
	}

	// Write with restricted permissions
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return false, err
	}
	return true, nil
}

// duration reads Go duration strings such as "250ms" or "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type fileConfig struct {
	Query        queryConfig        `toml:"query"`
	Ranking      rankingConfig      `toml:"ranking"`
	Orchestrator orchestratorConfig `toml:"orchestrator"`
	Cache        cacheConfig        `toml:"cache"`
	Reasoning    reasoningConfig    `toml:"reasoning"`
	Completion   completionConfig   `toml:"completion"`
	Identity     identityConfig     `toml:"identity"`
	Entities     entitiesConfig     `toml:"entities"`
	Sources      []sourceConfig     `toml:"sources,omitempty"`
}

type queryConfig struct {
	MaxChars  int `toml:"max_chars"`
	MinTokens int `toml:"min_tokens"`
}

type rankingConfig struct {
	RelevanceWeight float64  `toml:"relevance_weight"`
	FreshnessWeight float64  `toml:"freshness_weight"`
	AuthorityWeight float64  `toml:"authority_weight"`
	FreshnessFloor  float64  `toml:"freshness_floor"`
	HalfLife        duration `toml:"half_life"`
	FreshWithin     duration `toml:"fresh_within"`
	StaleAfter      duration `toml:"stale_after"`
	DedupSimilarity float64  `toml:"dedup_similarity"`
}

type orchestratorConfig struct {
	SourceTimeout  duration `toml:"source_timeout"`
	MaxAttempts    int      `toml:"max_attempts"`
	BaseBackoff    duration `toml:"base_backoff"`
	MaxBackoff     duration `toml:"max_backoff"`
	PerSourceLimit int      `toml:"per_source_limit"`
}

type cacheConfig struct {
	TTL           duration `toml:"ttl"`
	HotSize       int      `toml:"hot_size"`
	TierTimeout   duration `toml:"tier_timeout"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	DataDir       string   `toml:"data_dir"`
}

type reasoningConfig struct {
	TopN              int      `toml:"top_n"`
	TopK              int      `toml:"top_k"`
	MinResults        int      `toml:"min_results"`
	WeakScore         float64  `toml:"weak_score"`
	CompletionTimeout duration `toml:"completion_timeout"`
}

type completionConfig struct {
	Provider string   `toml:"provider"`
	BaseURL  string   `toml:"base_url"`
	APIKey   string   `toml:"api_key"`
	Model    string   `toml:"model"`
	Timeout  duration `toml:"timeout"`
}

type identityConfig struct {
	Users     map[string][]string `toml:"users,omitempty"`
	Teams     map[string][]string `toml:"teams,omitempty"`
	Projects  map[string][]string `toml:"projects,omitempty"`
	CacheTTL  duration            `toml:"cache_ttl"`
	CacheSize int                 `toml:"cache_size"`
}

type entitiesConfig struct {
	Vocabulary map[string][]string `toml:"vocabulary,omitempty"`
}

type sourceConfig struct {
	ID            string            `toml:"id"`
	Type          string            `toml:"type"`
	Enabled       *bool             `toml:"enabled"`
	Authority     float64           `toml:"authority"`
	Timeout       duration          `toml:"timeout"`
	RatePerSecond float64           `toml:"rate_per_second"`
	Burst         int               `toml:"burst"`
	Config        map[string]string `toml:"config,omitempty"`
}

func fromSettings(s domain.Settings) fileConfig {
	cfg := fileConfig{
		Query: queryConfig{MaxChars: s.Query.MaxChars, MinTokens: s.Query.MinTokens},
		Ranking: rankingConfig{
			RelevanceWeight: s.Ranking.RelevanceWeight,
			FreshnessWeight: s.Ranking.FreshnessWeight,
			AuthorityWeight: s.Ranking.AuthorityWeight,
			FreshnessFloor:  s.Ranking.FreshnessFloor,
			HalfLife:        duration{s.Ranking.HalfLife},
			FreshWithin:     duration{s.Ranking.FreshWithin},
			StaleAfter:      duration{s.Ranking.StaleAfter},
			DedupSimilarity: s.Ranking.DedupSimilarity,
		},
		Orchestrator: orchestratorConfig{
			SourceTimeout:  duration{s.Orchestrator.SourceTimeout},
			MaxAttempts:    s.Orchestrator.MaxAttempts,
			BaseBackoff:    duration{s.Orchestrator.BaseBackoff},
			MaxBackoff:     duration{s.Orchestrator.MaxBackoff},
			PerSourceLimit: s.Orchestrator.PerSourceLimit,
		},
		Cache: cacheConfig{
			TTL:           duration{s.Cache.TTL},
			HotSize:       s.Cache.HotSize,
			TierTimeout:   duration{s.Cache.TierTimeout},
			RedisAddr:     s.Cache.RedisAddr,
			RedisPassword: s.Cache.RedisPassword,
			RedisDB:       s.Cache.RedisDB,
			DataDir:       s.Cache.DataDir,
		},
		Reasoning: reasoningConfig{
			TopN:              s.Reasoning.TopN,
			TopK:              s.Reasoning.TopK,
			MinResults:        s.Reasoning.MinResults,
			WeakScore:         s.Reasoning.WeakScore,
			CompletionTimeout: duration{s.Reasoning.CompletionTimeout},
		},
		Completion: completionConfig{
			Provider: s.Completion.Provider,
			BaseURL:  s.Completion.BaseURL,
			APIKey:   s.Completion.APIKey,
			Model:    s.Completion.Model,
			Timeout:  duration{s.Completion.Timeout},
		},
		Identity: identityConfig{
			Users:     s.Identity.Users,
			Teams:     s.Identity.Teams,
			Projects:  s.Identity.Projects,
			CacheTTL:  duration{s.Identity.CacheTTL},
			CacheSize: s.Identity.CacheSize,
		},
		Entities: entitiesConfig{Vocabulary: s.Entities.Vocabulary},
	}
	for _, src := range s.Sources {
		enabled := src.Enabled
		cfg.Sources = append(cfg.Sources, sourceConfig{
			ID:            src.ID,
			Type:          src.Type,
			Enabled:       &enabled,
			Authority:     src.Authority,
			Timeout:       duration{src.Timeout},
			RatePerSecond: src.RatePerSecond,
			Burst:         src.Burst,
			Config:        src.Config,
		})
	}
	return cfg
}

func (c fileConfig) toSettings() domain.Settings {
	s := domain.Settings{
		Query: domain.QuerySettings{MaxChars: c.Query.MaxChars, MinTokens: c.Query.MinTokens},
		Ranking: domain.RankingSettings{
			RelevanceWeight: c.Ranking.RelevanceWeight,
			FreshnessWeight: c.Ranking.FreshnessWeight,
			AuthorityWeight: c.Ranking.AuthorityWeight,
			FreshnessFloor:  c.Ranking.FreshnessFloor,
			HalfLife:        c.Ranking.HalfLife.Duration,
			FreshWithin:     c.Ranking.FreshWithin.Duration,
			StaleAfter:      c.Ranking.StaleAfter.Duration,
			DedupSimilarity: c.Ranking.DedupSimilarity,
		},
		Orchestrator: domain.OrchestratorSettings{
			SourceTimeout:  c.Orchestrator.SourceTimeout.Duration,
			MaxAttempts:    c.Orchestrator.MaxAttempts,
			BaseBackoff:    c.Orchestrator.BaseBackoff.Duration,
			MaxBackoff:     c.Orchestrator.MaxBackoff.Duration,
			PerSourceLimit: c.Orchestrator.PerSourceLimit,
		},
		Cache: domain.CacheSettings{
			TTL:           c.Cache.TTL.Duration,
			HotSize:       c.Cache.HotSize,
			TierTimeout:   c.Cache.TierTimeout.Duration,
			RedisAddr:     c.Cache.RedisAddr,
			RedisPassword: os.ExpandEnv(c.Cache.RedisPassword),
			RedisDB:       c.Cache.RedisDB,
			DataDir:       expandHome(c.Cache.DataDir),
		},
		Reasoning: domain.ReasoningSettings{
			TopN:              c.Reasoning.TopN,
			TopK:              c.Reasoning.TopK,
			MinResults:        c.Reasoning.MinResults,
			WeakScore:         c.Reasoning.WeakScore,
			CompletionTimeout: c.Reasoning.CompletionTimeout.Duration,
		},
		Completion: domain.CompletionSettings{
			Provider: c.Completion.Provider,
			BaseURL:  c.Completion.BaseURL,
			APIKey:   os.ExpandEnv(c.Completion.APIKey),
			Model:    c.Completion.Model,
			Timeout:  c.Completion.Timeout.Duration,
		},
		Identity: domain.IdentitySettings{
			Users:     c.Identity.Users,
			Teams:     c.Identity.Teams,
			Projects:  c.Identity.Projects,
			CacheTTL:  c.Identity.CacheTTL.Duration,
			CacheSize: c.Identity.CacheSize,
		},
		Entities: domain.EntitySettings{Vocabulary: c.Entities.Vocabulary},
	}
	for _, src := range c.Sources {
		enabled := src.Enabled == nil || *src.Enabled
		config := make(map[string]string, len(src.Config))
		for k, v := range src.Config {
			config[k] = os.ExpandEnv(v)
		}
		s.Sources = append(s.Sources, domain.SourceSettings{
			ID:            src.ID,
			Type:          src.Type,
			Enabled:       enabled,
			Authority:     src.Authority,
			Timeout:       src.Timeout.Duration,
			RatePerSecond: src.RatePerSecond,
			Burst:         src.Burst,
			Config:        config,
		})
	}
	return s
}

// expandHome resolves environment variables and a leading ~ in a path.
func expandHome(path string) string {
	path = os.ExpandEnv(path)
	if path == "~" || (len(path) > 1 && path[:2] == "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
