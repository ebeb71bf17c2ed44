// Package ai provides factory functions for creating completion service adapters.
package ai

import (
	"fmt"

	anthropicllm "github.com/custodia-labs/navo/internal/adapters/driven/llm/anthropic"
	openaillm "github.com/custodia-labs/navo/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// Supported completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// CreateCompletionService creates the completion service selected by settings.
// Returns nil if no provider is configured; the reasoning engine then uses templates.
func CreateCompletionService(settings domain.CompletionSettings) (driven.CompletionService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.CompletionService
		err error
	)
	switch settings.Provider {
	case ProviderOpenAI:
		svc, err = openaillm.New(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})
	case ProviderAnthropic:
		svc, err = anthropicllm.New(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})
	default:
		return nil, fmt.Errorf("%w: completion provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
	if err != nil {
		return nil, err
	}
	return svc, nil
}
