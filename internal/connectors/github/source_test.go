package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

const issuesBody = `{
  "total_count": 2,
  "incomplete_results": false,
  "items": [
    {
      "number": 42,
      "title": "Vault token rotation fails",
      "body": "After upgrading to v1.15 the rotation job exits with 403.",
      "html_url": "https://github.com/acme/infra/issues/42",
      "repository_url": "https://api.github.com/repos/acme/infra",
      "updated_at": "2026-02-20T08:30:00Z"
    },
    {
      "number": 7,
      "title": "Document vault setup",
      "body": "",
      "html_url": "https://github.com/acme/docs/issues/7",
      "repository_url": "https://api.github.com/repos/acme/docs",
      "updated_at": "2025-11-01T00:00:00Z"
    }
  ]
}`

func newTestSource(t *testing.T, handler http.HandlerFunc, config map[string]string) *Source {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	if config == nil {
		config = map[string]string{}
	}
	config["token"] = "ghp-test"
	config["api_url"] = server.URL
	cfg, err := ParseConfig(domain.SourceSettings{ID: "issues", Type: Type, Config: config})
	require.NoError(t, err)

	src, err := New(context.Background(), "issues", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestParseConfig(t *testing.T) {
	t.Run("requires token", func(t *testing.T) {
		_, err := ParseConfig(domain.SourceSettings{ID: "gh", Type: Type})
		assert.ErrorIs(t, err, domain.ErrInvalidSettings)
	})

	t.Run("rejects malformed repo", func(t *testing.T) {
		_, err := ParseConfig(domain.SourceSettings{ID: "gh", Type: Type, Config: map[string]string{
			"token": "t", "repos": "acme/infra,justname",
		}})
		assert.ErrorIs(t, err, domain.ErrInvalidSettings)
	})

	t.Run("rejects bad include_prs", func(t *testing.T) {
		_, err := ParseConfig(domain.SourceSettings{ID: "gh", Type: Type, Config: map[string]string{
			"token": "t", "include_prs": "sometimes",
		}})
		assert.ErrorIs(t, err, domain.ErrInvalidSettings)
	})

	t.Run("parses repos and flags", func(t *testing.T) {
		cfg, err := ParseConfig(domain.SourceSettings{ID: "gh", Type: Type, Config: map[string]string{
			"token": "t", "repos": "acme/infra, acme/docs", "org": "acme", "include_prs": "true",
		}})
		require.NoError(t, err)
		assert.Equal(t, []string{"acme/infra", "acme/docs"}, cfg.Repos)
		assert.True(t, cfg.IncludePRs)
		assert.Equal(t, []string{"repo:acme/infra", "repo:acme/docs"}, cfg.Qualifiers())
	})
}

func TestBuildQuery(t *testing.T) {
	cfg := &Config{Org: "acme"}
	assert.Equal(t, "vault rotation in:title,body is:issue org:acme", BuildQuery([]string{"vault", "rotation"}, cfg))
}

func TestSource_Search(t *testing.T) {
	var gotQuery, gotPerPage, gotAuth string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/issues", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotPerPage = r.URL.Query().Get("per_page")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set(HeaderRateRemaining, "25")
		w.Header().Set(HeaderRateLimit, "30")
		_, _ = w.Write([]byte(issuesBody))
	}, map[string]string{"repos": "acme/infra,acme/docs"})

	got, err := src.Search(context.Background(), driven.SearchRequest{Query: "vault rotation", Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, "vault rotation in:title,body is:issue repo:acme/infra repo:acme/docs", gotQuery)
	assert.Equal(t, "10", gotPerPage)
	assert.Equal(t, "Bearer ghp-test", gotAuth)

	require.Len(t, got, 2)
	assert.Equal(t, "acme/infra#42", got[0].DocumentID)
	assert.Equal(t, "Vault token rotation fails", got[0].Title)
	assert.Equal(t, "https://github.com/acme/infra/issues/42", got[0].URL)
	assert.Equal(t, time.Date(2026, 2, 20, 8, 30, 0, 0, time.UTC), got[0].LastModified.UTC())
	assert.Equal(t, []string{domain.PrincipalEveryone, "repo:acme/infra"}, got[0].Permissions)
	assert.InDelta(t, 1.0, got[0].Relevance, 1e-9)
	assert.InDelta(t, 0.5, got[1].Relevance, 1e-9)
	assert.Equal(t, "acme/docs#7", got[1].DocumentID)

	remaining, limit, _ := src.client.RateLimiter().Snapshot()
	assert.Equal(t, 25, remaining)
	assert.Equal(t, 30, limit)
}

func TestSource_Search_Unauthorized(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Bad credentials"}`))
	}, nil)

	_, err := src.Search(context.Background(), driven.SearchRequest{Query: "vault", Limit: 5})
	require.Error(t, err)
	assert.True(t, domain.IsPermanent(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Bad credentials", apiErr.Message)
}

func TestSource_Search_ServerErrorIsTransient(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message": "upstream"}`))
	}, nil)

	_, err := src.Search(context.Background(), driven.SearchRequest{Query: "vault", Limit: 5})
	require.Error(t, err)
	assert.False(t, domain.IsPermanent(err))
}

func TestSource_Search_QuotaSpentFailsFast(t *testing.T) {
	calls := 0
	src := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"items": []}`))
	}, nil)

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set(HeaderRateRemaining, "0")
	resp.Header.Set(HeaderRateReset, "4102444800") // 2100-01-01
	src.client.RateLimiter().UpdateFromResponse(resp)

	_, err := src.Search(context.Background(), driven.SearchRequest{Query: "vault", Limit: 5})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Zero(t, calls)
}

func TestSource_Closed(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {}, nil)
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, err := src.Search(context.Background(), driven.SearchRequest{Query: "vault", Limit: 5})
	assert.ErrorIs(t, err, domain.ErrSourceClosed)
}
