package mcp

import (
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Answer resolves questions. Required.
	Answer driving.AnswerService

	// Trace serves stored traces and feedback. Optional.
	Trace driving.TraceService

	// Sources lists enabled sources. Optional.
	Sources driving.SourceCatalog

	// Caller is the identity every request is made as. An MCP client
	// cannot choose its own identity.
	Caller domain.CallerContext
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
