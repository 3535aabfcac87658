package llm

import (
	"context"
	"fmt"

	"github.com/mfateev/yada-go/internal/models"
)

// MultiProviderClient implements LLMClient by dispatching to the appropriate
// provider based on the ModelConfig.Provider field.
//
// An empty provider is inferred from the model name, so a configured
// "claude-..." model reaches Anthropic without extra settings.
type MultiProviderClient struct {
	openai    LLMClient
	anthropic LLMClient
}

// NewMultiProviderClient creates a client that can dispatch to both
// providers with the same API key.
func NewMultiProviderClient(apiKey string) *MultiProviderClient {
	return &MultiProviderClient{
		openai:    NewOpenAIClient(apiKey),
		anthropic: NewAnthropicClient(apiKey),
	}
}

// Call dispatches to the appropriate provider based on ModelConfig.Provider.
func (c *MultiProviderClient) Call(ctx context.Context, request LLMRequest) (LLMResponse, error) {
	provider := request.ModelConfig.Provider
	if provider == "" {
		provider = models.DetectProvider(request.ModelConfig.Model)
	}

	switch provider {
	case models.ProviderOpenAI:
		return c.openai.Call(ctx, request)
	case models.ProviderAnthropic:
		return c.anthropic.Call(ctx, request)
	default:
		return LLMResponse{}, fmt.Errorf("unsupported LLM provider: %s (supported: openai, anthropic)", provider)
	}
}

// NewLLMClient creates the client for a single provider.
//
// For most use cases, prefer NewMultiProviderClient() which can handle both.
func NewLLMClient(provider, apiKey string) (LLMClient, error) {
	switch provider {
	case models.ProviderOpenAI, "":
		return NewOpenAIClient(apiKey), nil
	case models.ProviderAnthropic:
		return NewAnthropicClient(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, anthropic)", provider)
	}
}
