package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(config),
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{client: client, config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks if the configured model can be resolved
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	model := p.config.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if _, err := p.client.Models.Get(ctx, model, nil); err != nil {
		return false
	}
	return true
}

// Analyze sends the prompt and image using the GenerateContent API
func (p *GeminiProvider) Analyze(ctx context.Context, req VisionRequest) (*RawResponse, error) {
	req = p.config.resolve(req, "gemini-2.5-flash")

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(image, req.MimeType),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		MaxOutputTokens:   int32(req.MaxTokens),
		ResponseMIMEType:  "application/json",
	}

	resp, err := p.client.Models.GenerateContent(ctxWithTimeout, req.Model, contents, config)
	if err != nil {
		return nil, p.classify(err)
	}

	choices := make([]string, 0, len(resp.Candidates))
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
		}
		choices = append(choices, text.String())
	}

	out := &RawResponse{Choices: choices, Model: req.Model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

func (p *GeminiProvider) classify(err error) *ClientError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return statusError(p.Name(), apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code > 0 {
		return statusError(p.Name(), apiErrPtr.Code, apiErrPtr.Message, err)
	}
	return sdkError(p.Name(), err)
}
