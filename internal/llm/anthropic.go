package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude models
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Anthropic API structures
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	return &AnthropicProvider{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable checks if the provider is properly configured
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	// Minimal text-only call
	req := anthropicRequest{
		Model:     "claude-3-5-haiku-20241022",
		MaxTokens: 10,
		Messages: []anthropicMessage{
			{Role: "user", Content: []anthropicContent{{Type: "text", Text: "Hi"}}},
		},
	}

	_, err := p.makeRequest(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Anthropic API check failed: %v\n", err)
		return false
	}
	return true
}

// Analyze sends the prompt and image using Anthropic's Messages API
func (p *AnthropicProvider) Analyze(ctx context.Context, req VisionRequest) (*RawResponse, error) {
	req = p.config.resolve(req, "claude-sonnet-4-5")

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	apiReq := anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    SystemPrompt,
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []anthropicContent{
					{Type: "text", Text: req.Prompt},
					{Type: "image", Source: &anthropicSource{
						Type:      "base64",
						MediaType: req.MimeType,
						Data:      req.ImageBase64,
					}},
				},
			},
		},
	}

	resp, err := p.makeRequest(ctxWithTimeout, apiReq)
	if err != nil {
		return nil, err
	}

	// Anthropic returns one message; its text blocks form the single choice
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	var choices []string
	if len(resp.Content) > 0 {
		choices = append(choices, text.String())
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &RawResponse{
		Choices:    choices,
		Model:      model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// makeRequest makes an HTTP request to the Anthropic API
func (p *AnthropicProvider) makeRequest(ctx context.Context, apiReq anthropicRequest) (*anthropicResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(p.Name(), err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, transportError(p.Name(), err)
	}

	if httpResp.StatusCode != http.StatusOK {
		message := string(respBody)
		var apiErr anthropicError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Type + " - " + apiErr.Error.Message
		}
		return nil, statusError(p.Name(), httpResp.StatusCode, message, nil)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, statusError(p.Name(), httpResp.StatusCode, string(respBody),
			fmt.Errorf("unmarshal response: %w", err))
	}

	return &resp, nil
}
