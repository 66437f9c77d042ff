package agent

import (
	"context"
)

// Completer sends a single prompt to a model and returns the raw text of
// its reply. An empty reply is not an error.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is one model call.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Ensure every provider implements Completer.
var (
	_ Completer = (*GrpcClient)(nil)
	_ Completer = (*AnthropicClient)(nil)
	_ Completer = (*OpenAIClient)(nil)
	_ Completer = (*GeminiClient)(nil)
)
