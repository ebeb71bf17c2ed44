// Package github implements a source adapter for GitHub issues and pull requests.
//
// Each search is a single call to the GitHub search API, scoped by the
// configured repositories or organisation.
//
// # Architecture
//
// The source follows the driven port pattern defined in [driven.SourceAdapter].
// It comprises the following components:
//
//   - Source: maps search requests to GitHub queries and results to candidates
//   - Client: handles GitHub API communication with rate limiting
//   - Config: parses and validates source configuration
//
// # Authentication
//
// A personal access token (classic or fine-grained) is passed as the token
// config key. It requires the 'repo' scope to search private repositories.
// The search API allows 30 requests per minute for authenticated users.
//
// # Configuration
//
// Source configuration accepts the following keys:
//
//   - token: access token (required).
//
//   - repos: comma-separated owner/name list. Default: everything the
//     token can see, optionally narrowed by org.
//
//   - org: organisation to search within.
//
//   - include_prs: "true" to include pull requests. Default: issues only.
//
//   - api_url: API root for GitHub Enterprise, e.g. https://ghe.example.com/api/v3/.
//
//   - principals: comma-separated principals granted on every result. Every
//     result is also granted repo:<owner>/<name>.
//
// # Error Handling
//
// Authentication and validation failures are permanent and are not retried.
// Rate limiting surfaces as [domain.ErrRateLimited] without waiting for the
// quota to reset, so a throttled source degrades instead of stalling a query.
package github
