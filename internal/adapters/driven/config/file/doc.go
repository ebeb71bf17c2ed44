// Package file provides file-based implementations of driven port interfaces.
// These adapters read from the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based settings loader with defaults and validation
package file
