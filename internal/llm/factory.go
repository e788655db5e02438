package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/cultura/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))

	switch provider {
	case "openai", "":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "gemini", "google":
		return NewGeminiProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama, gemini)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	return Config{
		Provider:   modelConfig.Provider,
		Model:      modelConfig.Model,
		APIKey:     modelConfig.APIKey,
		BaseURL:    modelConfig.BaseURL,
		Timeout:    modelConfig.Timeout,
		MaxTokens:  modelConfig.MaxTokens,
		HTTPProxy:  modelConfig.HTTPProxy,
		HTTPSProxy: modelConfig.HTTPSProxy,
		NoProxy:    modelConfig.NoProxy,
	}
}

// Endpoint returns the base URL a provider talks to; used to key rate limits
func Endpoint(config Config) string {
	if config.BaseURL != "" {
		return config.BaseURL
	}
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "anthropic", "claude":
		return "https://api.anthropic.com"
	case "ollama":
		return "http://localhost:11434"
	case "gemini", "google":
		return "https://generativelanguage.googleapis.com"
	default:
		return "https://api.openai.com/v1"
	}
}
