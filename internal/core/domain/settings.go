package domain

import (
	"fmt"
	"math"
	"time"
)

// weightTolerance absorbs float rounding when weights are summed.
const weightTolerance = 1e-6

// Settings is the full runtime configuration.
type Settings struct {
	Query        QuerySettings
	Ranking      RankingSettings
	Orchestrator OrchestratorSettings
	Cache        CacheSettings
	Reasoning    ReasoningSettings
	Completion   CompletionSettings
	Identity     IdentitySettings
	Entities     EntitySettings
	Sources      []SourceSettings
}

// QuerySettings bounds accepted queries.
type QuerySettings struct {
	// MaxChars is the maximum raw query length in characters.
	MaxChars int

	// MinTokens is the minimum token count after normalisation.
	MinTokens int
}

// RankingSettings configures the fused score.
type RankingSettings struct {
	// RelevanceWeight weights the per-source normalised relevance.
	RelevanceWeight float64

	// FreshnessWeight weights the freshness decay term.
	FreshnessWeight float64

	// AuthorityWeight weights the static source authority.
	AuthorityWeight float64

	// FreshnessFloor is the minimum value of the decay term.
	FreshnessFloor float64

	// HalfLife is the age at which the decay term halves.
	HalfLife time.Duration

	// FreshWithin is the maximum age of a "fresh" document.
	FreshWithin time.Duration

	// StaleAfter is the minimum age of a "stale" document.
	StaleAfter time.Duration

	// DedupSimilarity is the excerpt similarity at which two candidates are one document.
	DedupSimilarity float64
}

// Validate checks that the weights form a convex combination.
func (r RankingSettings) Validate() error {
	for name, w := range map[string]float64{
		"relevance_weight": r.RelevanceWeight,
		"freshness_weight": r.FreshnessWeight,
		"authority_weight": r.AuthorityWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: ranking.%s must be in [0,1], got %g", ErrInvalidSettings, name, w)
		}
	}
	sum := r.RelevanceWeight + r.FreshnessWeight + r.AuthorityWeight
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: ranking weights must sum to 1, got %g", ErrInvalidSettings, sum)
	}
	if r.FreshnessFloor < 0 || r.FreshnessFloor > 1 {
		return fmt.Errorf("%w: ranking.freshness_floor must be in [0,1]", ErrInvalidSettings)
	}
	if r.HalfLife <= 0 {
		return fmt.Errorf("%w: ranking.half_life must be positive", ErrInvalidSettings)
	}
	if r.StaleAfter < r.FreshWithin {
		return fmt.Errorf("%w: ranking.stale_after must not be shorter than fresh_within", ErrInvalidSettings)
	}
	if r.DedupSimilarity <= 0 || r.DedupSimilarity > 1 {
		return fmt.Errorf("%w: ranking.dedup_similarity must be in (0,1]", ErrInvalidSettings)
	}
	return nil
}

// OrchestratorSettings configures source fan-out.
type OrchestratorSettings struct {
	// SourceTimeout bounds each source's dispatch, retries included.
	SourceTimeout time.Duration

	// MaxAttempts is the number of tries per source.
	MaxAttempts int

	// BaseBackoff is the delay before the second attempt.
	BaseBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// PerSourceLimit is the number of candidates requested from each source.
	PerSourceLimit int
}

// CacheSettings configures the cache tiers.
type CacheSettings struct {
	// TTL is how long an answer stays cached.
	TTL time.Duration

	// HotSize is the capacity of the in-process tier.
	HotSize int

	// TierTimeout bounds each call to a remote tier.
	TierTimeout time.Duration

	// RedisAddr enables the warm tier when set.
	RedisAddr string

	// RedisPassword authenticates to the warm tier.
	RedisPassword string

	// RedisDB selects the Redis database.
	RedisDB int

	// DataDir holds the materialized tier and trace database. Empty disables it.
	DataDir string
}

// ReasoningSettings configures the reasoning passes.
type ReasoningSettings struct {
	// TopN is how many results the analytical pass inspects.
	TopN int

	// TopK is how many alternatives the comparative pass ranks.
	TopK int

	// MinResults is the result count below which a gap is reported.
	MinResults int

	// WeakScore is the top score below which a gap is reported.
	WeakScore float64

	// CompletionTimeout bounds the prescriptive pass's completion call.
	CompletionTimeout time.Duration
}

// CompletionSettings configures the optional completion service.
type CompletionSettings struct {
	// Provider selects the adapter ("openai" or empty to disable).
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// IsConfigured returns true if a completion provider is set up.
func (c CompletionSettings) IsConfigured() bool {
	return c.Provider != "" && c.APIKey != ""
}

// IdentitySettings maps callers to principals for the static identity provider.
type IdentitySettings struct {
	// Users maps user IDs to extra principals.
	Users map[string][]string

	// Teams maps team names to principals granted to members.
	Teams map[string][]string

	// Projects maps project names to principals granted to participants.
	Projects map[string][]string

	// CacheTTL is how long resolved permission sets are reused.
	CacheTTL time.Duration

	// CacheSize caps the number of cached permission sets.
	CacheSize int
}

// EntitySettings configures the rule-based entity extractor.
type EntitySettings struct {
	// Vocabulary maps an entity type to known terms of that type.
	Vocabulary map[string][]string
}

// SourceSettings configures one source adapter.
type SourceSettings struct {
	// ID is the stable source identifier stamped on candidates.
	ID string

	// Type selects the adapter variant.
	Type string

	// Enabled includes the source in fan-out.
	Enabled bool

	// Authority is the static weight in [0,1].
	Authority float64

	// Timeout overrides the orchestrator's source timeout when set.
	Timeout time.Duration

	// RatePerSecond throttles calls to the source. Zero means unlimited.
	RatePerSecond float64

	// Burst is the token bucket size.
	Burst int

	// Config holds type-specific keys.
	Config map[string]string
}

// Validate checks a source's settings.
func (s SourceSettings) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidSettings)
	}
	if s.Type == "" {
		return fmt.Errorf("%w: source %s: type is required", ErrInvalidSettings, s.ID)
	}
	if s.Authority < 0 || s.Authority > 1 {
		return fmt.Errorf("%w: source %s: authority must be in [0,1]", ErrInvalidSettings, s.ID)
	}
	if s.RatePerSecond < 0 {
		return fmt.Errorf("%w: source %s: rate must not be negative", ErrInvalidSettings, s.ID)
	}
	return nil
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	return Settings{
		Query: QuerySettings{
			MaxChars:  2000,
			MinTokens: 1,
		},
		Ranking: RankingSettings{
			RelevanceWeight: 0.6,
			FreshnessWeight: 0.25,
			AuthorityWeight: 0.15,
			FreshnessFloor:  0.1,
			HalfLife:        90 * 24 * time.Hour,
			FreshWithin:     30 * 24 * time.Hour,
			StaleAfter:      365 * 24 * time.Hour,
			DedupSimilarity: 0.9,
		},
		Orchestrator: OrchestratorSettings{
			SourceTimeout:  5 * time.Second,
			MaxAttempts:    2,
			BaseBackoff:    100 * time.Millisecond,
			MaxBackoff:     time.Second,
			PerSourceLimit: 25,
		},
		Cache: CacheSettings{
			TTL:         30 * time.Minute,
			HotSize:     1024,
			TierTimeout: 250 * time.Millisecond,
		},
		Reasoning: ReasoningSettings{
			TopN:              3,
			TopK:              3,
			MinResults:        3,
			WeakScore:         0.3,
			CompletionTimeout: 3 * time.Second,
		},
		Completion: CompletionSettings{
			Timeout: 30 * time.Second,
		},
		Identity: IdentitySettings{
			CacheTTL:  5 * time.Minute,
			CacheSize: 4096,
		},
	}
}

// Validate checks the settings as a whole.
func (s *Settings) Validate() error {
	if s.Query.MaxChars <= 0 {
		return fmt.Errorf("%w: query.max_chars must be positive", ErrInvalidSettings)
	}
	if s.Query.MinTokens < 1 {
		return fmt.Errorf("%w: query.min_tokens must be at least 1", ErrInvalidSettings)
	}
	if err := s.Ranking.Validate(); err != nil {
		return err
	}
	if s.Orchestrator.MaxAttempts < 1 {
		return fmt.Errorf("%w: orchestrator.max_attempts must be at least 1", ErrInvalidSettings)
	}
	if s.Orchestrator.SourceTimeout <= 0 {
		return fmt.Errorf("%w: orchestrator.source_timeout must be positive", ErrInvalidSettings)
	}
	if s.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache.ttl must be positive", ErrInvalidSettings)
	}
	seen := make(map[string]bool, len(s.Sources))
	for _, src := range s.Sources {
		if err := src.Validate(); err != nil {
			return err
		}
		if seen[src.ID] {
			return fmt.Errorf("%w: duplicate source id %s", ErrInvalidSettings, src.ID)
		}
		seen[src.ID] = true
	}
	return nil
}
