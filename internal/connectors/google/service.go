package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// Credentials selects how a Google service authenticates.
// Exactly one of Token, CredentialsFile or HTTPClient should be set.
type Credentials struct {
	// Token is an OAuth access token.
	Token string

	// CredentialsFile is a service account or authorized user JSON file.
	CredentialsFile string

	// HTTPClient is used as-is, bypassing authentication.
	HTTPClient *http.Client

	// Endpoint overrides the API base path.
	Endpoint string
}

// NewDriveService creates a read-only Google Drive API service.
func NewDriveService(ctx context.Context, creds Credentials) (*drive.Service, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveReadonlyScope)}

	switch {
	case creds.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(creds.HTTPClient))
	case creds.Token != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token, TokenType: "Bearer"})
		opts = append(opts, option.WithTokenSource(ts))
	case creds.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(creds.CredentialsFile))
	default:
		return nil, fmt.Errorf("%w: google credentials: token or credentials_file is required", domain.ErrInvalidSettings)
	}

	if creds.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(creds.Endpoint))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}
