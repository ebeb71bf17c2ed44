// Package tui provides an interactive terminal browser for navo answers.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI calls.
type Ports struct {
	// Answer resolves questions.
	Answer driving.AnswerService

	// Trace records feedback and lists what was recorded. May be nil.
	Trace driving.TraceService

	// Sources reports source settings and health. May be nil.
	Sources driving.SourceCatalog

	// Caller is the identity every question is asked as.
	Caller domain.CallerContext
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if p.Caller.UserID == "" {
		return ErrMissingCaller
	}
	return nil
}
