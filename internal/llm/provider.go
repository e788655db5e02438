package llm

import (
	"context"
	"time"
)

// SystemPrompt is sent as the system message with every analysis request
const SystemPrompt = "Eres un analista cultural experto en Huánuco, Perú. " +
	"Responde únicamente con un JSON válido y bien formado, sin texto adicional, sin markdown, " +
	"sin explicaciones ni comentarios fuera del JSON."

// Provider defines the interface for vision-capable LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Analyze sends the prompt and one inline image; exactly one outbound call
	Analyze(ctx context.Context, req VisionRequest) (*RawResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// VisionRequest contains the input for one image analysis
type VisionRequest struct {
	// Prompt is the instruction text sent alongside the image
	Prompt string

	// ImageBase64 is the raw base64 payload without a data URL header
	ImageBase64 string

	// MimeType of the image; defaults to image/jpeg
	MimeType string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// RawResponse is the provider answer before any parsing
type RawResponse struct {
	// Choices holds the text content of each returned choice
	Choices []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout bounds a single model call
	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 1000
	defaultMimeType  = "image/jpeg"
)

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Model:     "gpt-4o",
		Timeout:   defaultTimeout,
		MaxTokens: defaultMaxTokens,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// resolve fills per-request defaults from the provider config
func (c Config) resolve(req VisionRequest, fallbackModel string) VisionRequest {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.Model == "" {
		req.Model = fallbackModel
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.MaxTokens
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	if req.MimeType == "" {
		req.MimeType = defaultMimeType
	}
	return req
}

// dataURL renders the image as an inline data URL
func (r VisionRequest) dataURL() string {
	return "data:" + r.MimeType + ";base64," + r.ImageBase64
}
