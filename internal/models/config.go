package models

import "strings"

// Provider names accepted in ModelConfig.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// ModelConfig selects the model and its sampling parameters. Zero values
// for Temperature and MaxTokens leave the provider defaults in place.
type ModelConfig struct {
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// DefaultModelConfig returns the configuration used when nothing is set.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Provider:  ProviderOpenAI,
		Model:     DefaultModel,
		MaxTokens: 4096,
	}
}

// DetectProvider infers the provider from a model name.
func DetectProvider(model string) string {
	if strings.HasPrefix(model, "claude") {
		return ProviderAnthropic
	}
	return ProviderOpenAI
}

// FinishReason explains why the model stopped producing output.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonLength    FinishReason = "length"
)

// TokenUsage is the token accounting reported by a provider.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	CachedTokens     int `json:"cached_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens"`
}
