// Package google provides shared infrastructure for Google API sources.
//
// This package contains common utilities used by the drive source:
//   - Service factory for creating authenticated Drive API clients
//   - Error classification for common Google API errors (401, 403, 404, 429)
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	svc, err := google.NewDriveService(ctx, google.Credentials{Token: token})
//
// # OAuth2 Scopes
//
// The drive source only reads:
//   - https://www.googleapis.com/auth/drive.readonly (restricted)
//
// For user-created internal apps, restricted scopes don't require verification.
package google
