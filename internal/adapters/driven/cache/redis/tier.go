// Package redis provides the shared warm cache tier backed by Redis.
//
// Entries are stored as JSON under navo:cache:<fingerprint> with a native
// Redis TTL. Each tag is a set under navo:tag:<tag> listing the
// fingerprints that carry it.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// TierName is the name the warm tier reports.
const TierName = "warm"

const (
	entryPrefix = "navo:cache:"
	tagPrefix   = "navo:tag:"
)

// Options configure the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int

	// TagTTL bounds how long a tag set outlives its last write. It should be
	// at least the cache TTL.
	TagTTL time.Duration
}

// Tier implements driven.CacheTier on Redis.
type Tier struct {
	client *redis.Client
	tagTTL time.Duration
}

var _ driven.CacheTier = (*Tier)(nil)

// New connects a warm tier. The connection is established lazily.
func New(opts Options) *Tier {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(client, opts.TagTTL)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, tagTTL time.Duration) *Tier {
	if tagTTL <= 0 {
		tagTTL = 24 * time.Hour
	}
	return &Tier{client: client, tagTTL: tagTTL}
}

// Name returns the tier name.
func (t *Tier) Name() string {
	return TierName
}

// Get retrieves an entry by fingerprint.
func (t *Tier) Get(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	data, err := t.client.Get(ctx, entryKey(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshaling cache entry: %w", err)
	}
	return &entry, nil
}

// Set stores the entry with a native TTL and adds it to its tag sets.
func (t *Tier) Set(ctx context.Context, entry *domain.CacheEntry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling cache entry: %w", err)
	}

	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entryKey(entry.Fingerprint), data, ttl)
		for _, tag := range entry.Tags {
			pipe.SAdd(ctx, tagKey(tag), entry.Fingerprint)
			pipe.Expire(ctx, tagKey(tag), t.tagTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes one entry. Tag sets are cleaned up lazily.
func (t *Tier) Delete(ctx context.Context, fingerprint string) error {
	if err := t.client.Del(ctx, entryKey(fingerprint)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeleteByTag removes every entry in the tag's set, then the set itself.
func (t *Tier) DeleteByTag(ctx context.Context, tag string) (int, error) {
	fingerprints, err := t.client.SMembers(ctx, tagKey(tag)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers: %w", err)
	}
	if len(fingerprints) == 0 {
		return 0, nil
	}

	keys := make([]string, len(fingerprints))
	for i, fp := range fingerprints {
		keys[i] = entryKey(fp)
	}

	var deleted *redis.IntCmd
	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.Del(ctx, tagKey(tag))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis delete by tag: %w", err)
	}
	return int(deleted.Val()), nil
}

// Ping checks the connection.
func (t *Tier) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Close closes the client.
func (t *Tier) Close() error {
	return t.client.Close()
}

func entryKey(fingerprint string) string {
	return entryPrefix + fingerprint
}

func tagKey(tag string) string {
	return tagPrefix + tag
}
