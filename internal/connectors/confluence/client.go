package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// Client calls the Confluence REST search API.
type Client struct {
	http    *http.Client
	baseURL string
	email   string
	token   string
}

// searchResponse is the /rest/api/search response format.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Content struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		Space struct {
			Key string `json:"key"`
		} `json:"space"`
	} `json:"content"`
	Title        string `json:"title"`
	Excerpt      string `json:"excerpt"`
	URL          string `json:"url"`
	LastModified string `json:"lastModified"`
}

// NewClient creates a client for the configured site.
func NewClient(cfg *Config) *Client {
	return &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		baseURL: cfg.BaseURL,
		email:   cfg.Email,
		token:   cfg.Token,
	}
}

// Search runs a CQL query and returns at most limit results.
func (c *Client) Search(ctx context.Context, cql string, limit int) ([]searchResult, error) {
	params := url.Values{}
	params.Set("cql", cql)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("expand", "content.space")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/api/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	switch {
	case c.email != "":
		req.SetBasicAuth(c.email, c.token)
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, statusError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Results, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// statusError classifies an HTTP failure. Client errors other than 429 are
// not worth retrying.
func statusError(code int, body string) error {
	err := fmt.Errorf("confluence: status %d: %s", code, body)
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	case code >= 400 && code < 500:
		return domain.Permanent(err)
	default:
		return err
	}
}
