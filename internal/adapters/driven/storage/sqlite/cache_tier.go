package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// TierName is the name the materialized tier reports.
const TierName = "materialized"

// CacheTier implements driven.CacheTier on the shared store.
type CacheTier struct {
	store *Store
}

var _ driven.CacheTier = (*CacheTier)(nil)

// Name returns the tier name.
func (c *CacheTier) Name() string {
	return TierName
}

// Get retrieves an entry by fingerprint. Expired rows are misses.
func (c *CacheTier) Get(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT payload, expires_at FROM cache_entries WHERE fingerprint = ?
	`, fingerprint)

	var payload string
	var expiresAt int64
	if err := row.Scan(&payload, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("scanning cache entry: %w", err)
	}
	if !c.store.now().Before(time.Unix(0, expiresAt)) {
		return nil, domain.ErrCacheMiss
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return nil, fmt.Errorf("unmarshaling cache entry: %w", err)
	}
	return &entry, nil
}

// Set replaces the entry and its tags in one transaction.
func (c *CacheTier) Set(ctx context.Context, entry *domain.CacheEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling cache entry: %w", err)
	}
	expiresAt := c.store.now().Add(ttl)

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cache_entries (fingerprint, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, entry.Fingerprint, string(payload), entry.CreatedAt.UnixNano(), expiresAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cache_tags WHERE fingerprint = ?", entry.Fingerprint); err != nil {
		return fmt.Errorf("clearing cache tags: %w", err)
	}
	for _, tag := range entry.Tags {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO cache_tags (fingerprint, tag) VALUES (?, ?)
		`, entry.Fingerprint, tag)
		if err != nil {
			return fmt.Errorf("saving cache tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry. Its tags cascade.
func (c *CacheTier) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.store.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE fingerprint = ?", fingerprint)
	if err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// DeleteByTag removes every entry carrying the tag.
func (c *CacheTier) DeleteByTag(ctx context.Context, tag string) (int, error) {
	res, err := c.store.db.ExecContext(ctx, `
		DELETE FROM cache_entries
		WHERE fingerprint IN (SELECT fingerprint FROM cache_tags WHERE tag = ?)
	`, tag)
	if err != nil {
		return 0, fmt.Errorf("deleting cache entries by tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted entries: %w", err)
	}
	return int(n), nil
}

// PruneExpired removes expired entries and returns how many.
func (c *CacheTier) PruneExpired(ctx context.Context) (int, error) {
	res, err := c.store.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE expires_at <= ?", c.store.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned entries: %w", err)
	}
	return int(n), nil
}

// Ping checks the database connection.
func (c *CacheTier) Ping(ctx context.Context) error {
	return c.store.db.PingContext(ctx)
}

// Close is a no-op. The Store owns the connection.
func (c *CacheTier) Close() error {
	return nil
}
