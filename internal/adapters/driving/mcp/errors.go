// Package mcp provides an MCP (Model Context Protocol) server adapter for navo.
// It lets AI assistants ask questions, inspect reasoning traces and leave
// feedback on answers.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
