package driven

import "context"

// CompletionService turns prompt context into prose.
// This is an optional service - when nil, the prescriptive pass uses a template.
type CompletionService interface {
	// Complete produces text for the prompt context.
	Complete(ctx context.Context, prompt PromptContext) (Completion, error)

	// ModelName returns the model in use.
	ModelName() string

	// Close releases resources.
	Close() error
}

// PromptContext is everything the completion service may see.
// It only ever contains documents the caller is allowed to view.
type PromptContext struct {
	// System frames the task.
	System string

	// Question is the caller's query.
	Question string

	// Documents are the permitted, ranked documents to draw on.
	Documents []PromptDocument

	// MaxTokens caps the response length.
	MaxTokens int
}

// PromptDocument is one document offered as context.
type PromptDocument struct {
	Title   string
	URL     string
	Excerpt string
}

// Completion is the service's answer.
type Completion struct {
	Text       string
	TokenUsage TokenUsage
}

// TokenUsage reports tokens consumed by a completion.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
