package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI vision models
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = newHTTPClient(config)

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Simple check: try to list models (lightweight API call)
	_, err := p.client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "OpenAI API check failed: %v\n", err)
		return false
	}
	return true
}

// Analyze sends the prompt and image using the Chat Completions API
func (p *OpenAIProvider) Analyze(ctx context.Context, req VisionRequest) (*RawResponse, error) {
	req = p.config.resolve(req, openai.GPT4o)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: SystemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: req.dataURL()},
					},
				},
			},
		},
		MaxTokens: req.MaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, p.classify(err)
	}

	choices := make([]string, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, c.Message.Content)
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &RawResponse{
		Choices:    choices,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func (p *OpenAIProvider) classify(err error) *ClientError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return statusError(p.Name(), apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return statusError(p.Name(), reqErr.HTTPStatusCode, string(reqErr.Body), err)
	}
	return sdkError(p.Name(), err)
}
