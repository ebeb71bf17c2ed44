package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/navo/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))
	return dir
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_Load_NonExistentUsesDefaults(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultSettings(), store.Settings())
}

func TestConfigStore_Load_OverridesKeepDefaults(t *testing.T) {
	dir := writeConfig(t, `
[ranking]
relevance_weight = 0.5
freshness_weight = 0.3
authority_weight = 0.2
half_life = "720h"

[orchestrator]
source_timeout = "2s"

[cache]
ttl = "10m"
redis_addr = "localhost:6379"

[[sources]]
id = "wiki"
type = "confluence"
authority = 0.9
timeout = "1500ms"
rate_per_second = 5
burst = 2

[sources.config]
base_url = "https://wiki.example.com"

[[sources]]
id = "notes"
type = "filesystem"
enabled = false
`)

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	s := store.Settings()
	defaults := domain.DefaultSettings()

	assert.InDelta(t, 0.5, s.Ranking.RelevanceWeight, 1e-9)
	assert.Equal(t, 720*time.Hour, s.Ranking.HalfLife)
	assert.Equal(t, defaults.Ranking.FreshWithin, s.Ranking.FreshWithin)
	assert.Equal(t, 2*time.Second, s.Orchestrator.SourceTimeout)
	assert.Equal(t, defaults.Orchestrator.MaxAttempts, s.Orchestrator.MaxAttempts)
	assert.Equal(t, 10*time.Minute, s.Cache.TTL)
	assert.Equal(t, "localhost:6379", s.Cache.RedisAddr)
	assert.Equal(t, defaults.Query, s.Query)

	require.Len(t, s.Sources, 2)
	wiki := s.Sources[0]
	assert.Equal(t, "wiki", wiki.ID)
	assert.True(t, wiki.Enabled)
	assert.Equal(t, 1500*time.Millisecond, wiki.Timeout)
	assert.InDelta(t, 5.0, wiki.RatePerSecond, 1e-9)
	assert.Equal(t, "https://wiki.example.com", wiki.Config["base_url"])
	assert.False(t, s.Sources[1].Enabled)
}

func TestConfigStore_Load_RejectsBadWeights(t *testing.T) {
	dir := writeConfig(t, `
[ranking]
relevance_weight = 0.9
freshness_weight = 0.3
authority_weight = 0.2
`)

	_, err := NewConfigStore(dir)
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)
}

func TestConfigStore_Load_RejectsBadDuration(t *testing.T) {
	dir := writeConfig(t, `
[cache]
ttl = "soon"
`)

	_, err := NewConfigStore(dir)
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)
}

func TestConfigStore_Load_RejectsDuplicateSource(t *testing.T) {
	dir := writeConfig(t, `
[[sources]]
id = "wiki"
type = "confluence"

[[sources]]
id = "wiki"
type = "github"
`)

	_, err := NewConfigStore(dir)
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)
}

func TestConfigStore_Load_ExpandsEnvironment(t *testing.T) {
	t.Setenv("NAVO_TEST_KEY", "sk-test")
	t.Setenv("NAVO_TEST_TOKEN", "ghp-test")
	dir := writeConfig(t, `
[completion]
provider = "openai"
api_key = "${NAVO_TEST_KEY}"

[[sources]]
id = "issues"
type = "github"

[sources.config]
token = "$NAVO_TEST_TOKEN"
`)

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	s := store.Settings()

	assert.Equal(t, "sk-test", s.Completion.APIKey)
	assert.True(t, s.Completion.IsConfigured())
	assert.Equal(t, "ghp-test", s.Sources[0].Config["token"])
}

func TestConfigStore_EmptyFile(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), store.Settings())
}

func TestConfigStore_WriteDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	written, err := store.WriteDefault()
	require.NoError(t, err)
	assert.True(t, written)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	written, err = store.WriteDefault()
	require.NoError(t, err)
	assert.False(t, written)

	require.NoError(t, store.Load())
	assert.Equal(t, domain.DefaultSettings(), store.Settings())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	assert.Equal(t, filepath.Join(home, ".navo", "data"), expandHome("~/.navo/data"))
	assert.Equal(t, "/var/lib/navo", expandHome("/var/lib/navo"))
	assert.Equal(t, "", expandHome(""))
}
