package driving

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// AnswerService is the public query operation.
type AnswerService interface {
	// Answer resolves a question into a ranked, permission-filtered, traced answer.
	// Only input errors are returned; every other failure is reported in the Answer.
	Answer(ctx context.Context, rawText string, caller domain.CallerContext, opts domain.AnswerOptions) (*domain.Answer, error)
}
