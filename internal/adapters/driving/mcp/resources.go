package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// uriScheme is the custom URI scheme for navo resources.
const uriScheme = "navo://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "Enabled knowledge sources",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "health",
		Name:        "health",
		Description: "Query health of each enabled source",
		MIMEType:    "application/json",
	}, s.handleHealthResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "traces/{traceId}",
		Name:        "trace",
		Description: "Reasoning trace of a previous answer",
		MIMEType:    "application/json",
	}, s.handleTraceResource)
}

// sourceInfo omits source config, which may hold credentials.
type sourceInfo struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Authority float64 `json:"authority"`
}

// handleSourcesResource returns the enabled sources.
func (s *Server) handleSourcesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	infos := []sourceInfo{}
	if s.ports.Sources != nil {
		for _, src := range s.ports.Sources.List() {
			infos = append(infos, sourceInfo{ID: src.ID, Type: src.Type, Authority: src.Authority})
		}
	}
	return jsonResource(req.Params.URI, infos)
}

// sourceHealthInfo is one source's health with string timestamps.
type sourceHealthInfo struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	Status              string `json:"status"`
	Queries             int64  `json:"queries"`
	Failures            int64  `json:"failures"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
	LastErrorAt         string `json:"last_error_at,omitempty"`
	LastSuccessAt       string `json:"last_success_at,omitempty"`
	LastLatencyMS       int64  `json:"last_latency_ms"`
}

// handleHealthResource returns the health counters of every source.
func (s *Server) handleHealthResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	infos := []sourceHealthInfo{}
	if s.ports.Sources != nil {
		for _, h := range s.ports.Sources.Health() {
			infos = append(infos, sourceHealthInfo{
				ID:                  h.SourceID,
				Type:                h.Type,
				Status:              string(h.Status),
				Queries:             h.Queries,
				Failures:            h.Failures,
				ConsecutiveFailures: h.ConsecutiveFailures,
				LastError:           h.LastError,
				LastErrorAt:         formatTime(h.LastErrorAt),
				LastSuccessAt:       formatTime(h.LastSuccessAt),
				LastLatencyMS:       h.LastLatency.Milliseconds(),
			})
		}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleTraceResource returns a stored trace.
func (s *Server) handleTraceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	traceID := extractTraceID(req.Params.URI)
	if s.ports.Trace == nil || traceID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	trace, err := s.ports.Trace.GetTrace(ctx, traceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting trace: %w", err)
	}
	return jsonResource(req.Params.URI, trace)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractTraceID extracts the trace ID from a URI like navo://traces/{traceId}.
func extractTraceID(uri string) string {
	const prefix = uriScheme + "traces/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
