package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/navo/internal/connectors/match"
	"github.com/custodia-labs/navo/internal/core/domain"
)

// DefaultMaxFileBytes caps how much of a file is read per search.
const DefaultMaxFileBytes = 1 << 20

// DefaultExtensions are the text formats searched when none are configured.
var DefaultExtensions = []string{".md", ".markdown", ".txt", ".rst", ".adoc", ".org"}

// Config holds the parsed configuration for a filesystem source.
type Config struct {
	// Root is the absolute directory searched.
	Root string

	// Extensions lists lowercase file extensions to search, with leading dots.
	Extensions []string

	// MaxFileBytes skips larger files.
	MaxFileBytes int64

	// Principals are granted on every file.
	Principals []string
}

// ParseConfig parses a source's config map into a Config.
func ParseConfig(settings domain.SourceSettings) (*Config, error) {
	root := settings.Config["root"]
	if root == "" {
		return nil, fmt.Errorf("%w: filesystem source %s: root is required", domain.ErrInvalidSettings, settings.ID)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: filesystem source %s: root: %w", domain.ErrInvalidSettings, settings.ID, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: filesystem source %s: root: %w", domain.ErrInvalidSettings, settings.ID, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: filesystem source %s: root %s is not a directory", domain.ErrInvalidSettings, settings.ID, abs)
	}

	cfg := &Config{
		Root:         abs,
		Extensions:   DefaultExtensions,
		MaxFileBytes: DefaultMaxFileBytes,
		Principals:   match.Principals(settings.Config),
	}

	if exts := match.SplitList(settings.Config["extensions"]); len(exts) > 0 {
		cfg.Extensions = make([]string, len(exts))
		for i, e := range exts {
			e = strings.ToLower(e)
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			cfg.Extensions[i] = e
		}
	}

	if v := settings.Config["max_file_bytes"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: filesystem source %s: max_file_bytes must be a positive integer", domain.ErrInvalidSettings, settings.ID)
		}
		cfg.MaxFileBytes = n
	}

	return cfg, nil
}
