package drive

import (
	"fmt"
	"strconv"

	"github.com/custodia-labs/navo/internal/connectors/google"
	"github.com/custodia-labs/navo/internal/connectors/match"
	"github.com/custodia-labs/navo/internal/core/domain"
)

// Config holds the parsed configuration for a Drive source.
type Config struct {
	// Credentials authenticate the Drive client.
	Credentials google.Credentials

	// FolderIDs restricts search to files directly inside these folders.
	FolderIDs []string

	// MimeTypes restricts search to these MIME types. Empty means all.
	MimeTypes []string

	// Principals are granted on every file in addition to its sharing ACL.
	// Files whose ACL is not visible fall back to these alone.
	Principals []string

	// SharedDrives includes items from shared drives.
	SharedDrives bool
}

// ParseConfig parses a source's config map into a Config.
func ParseConfig(settings domain.SourceSettings) (*Config, error) {
	cfg := &Config{
		Credentials: google.Credentials{
			Token:           settings.Config["token"],
			CredentialsFile: settings.Config["credentials_file"],
			Endpoint:        settings.Config["endpoint"],
		},
		FolderIDs: match.SplitList(settings.Config["folder_ids"]),
		MimeTypes: match.SplitList(settings.Config["mime_types"]),
	}

	if cfg.Credentials.Token == "" && cfg.Credentials.CredentialsFile == "" {
		return nil, fmt.Errorf("%w: drive source %s: token or credentials_file is required", domain.ErrInvalidSettings, settings.ID)
	}

	// Drive files carry their own ACL, so nothing is public unless configured.
	if _, ok := settings.Config[match.ConfigPrincipals]; ok {
		cfg.Principals = match.Principals(settings.Config)
	}

	if v := settings.Config["shared_drives"]; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: drive source %s: shared_drives: %w", domain.ErrInvalidSettings, settings.ID, err)
		}
		cfg.SharedDrives = b
	}

	return cfg, nil
}
