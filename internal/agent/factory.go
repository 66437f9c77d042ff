package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/chef-interview/internal/config"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderGRPC      = "grpc"
)

// ErrUnavailable is returned by the placeholder completer used when no
// model provider could be set up.
var ErrUnavailable = errors.New("model provider is not configured")

var defaultModels = map[string]string{
	ProviderAnthropic: "claude-sonnet-4-5",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderGemini:    "gemini-2.5-flash",
}

// NewCompleterFromConfig builds the Completer selected by cfg.Provider. The
// returned close function releases provider resources and is never nil.
func NewCompleterFromConfig(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Completer, func(), error) {
	noop := func() {}
	model := cfg.Model
	if model == "" {
		model = defaultModels[cfg.Provider]
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		c, err := NewAnthropicClient(cfg.APIKey, model)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil

	case ProviderOpenAI:
		c, err := NewOpenAIClient(cfg.APIKey, model, cfg.BaseURL)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, noop, fmt.Errorf("gemini: api key is required")
		}
		c, err := NewGeminiClient(ctx, cfg.APIKey, model)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil

	case ProviderGRPC:
		c, err := NewGrpcClient(cfg.GRPCAddr, logger)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// Unavailable is a Completer that always fails with ErrUnavailable.
type Unavailable struct{}

// Complete implements Completer.
func (Unavailable) Complete(context.Context, CompletionRequest) (string, error) {
	return "", ErrUnavailable
}
