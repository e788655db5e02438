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

// OllamaProvider implements the Provider interface for Ollama local vision models
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Ollama API structures
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // raw base64, no data URL header
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict,omitempty"` // Max tokens
}

type ollamaResponse struct {
	Model     string        `json:"model"`
	CreatedAt string        `json:"created_at"`
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`

	// Token counts (only present when done=true)
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks if the provider is properly configured
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	// Check if Ollama is running by trying to list models
	url := fmt.Sprintf("%s/api/tags", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ollama availability check failed (request creation): %v\n", err)
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ollama availability check failed (connection to %s): %v\n", p.baseURL, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Ollama availability check failed (HTTP %d from %s)\n", resp.StatusCode, p.baseURL)
		return false
	}

	return true
}

// Analyze sends the prompt and image to Ollama's chat endpoint
func (p *OllamaProvider) Analyze(ctx context.Context, req VisionRequest) (*RawResponse, error) {
	req = p.config.resolve(req, "")
	if req.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llava:13b, llama3.2-vision)")
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	apiReq := ollamaRequest{
		Model: req.Model,
		Messages: []ollamaMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: req.Prompt, Images: []string{req.ImageBase64}},
		},
		Stream:  false, // Get complete response at once
		Format:  "json",
		Options: ollamaOptions{NumPredict: req.MaxTokens},
	}

	resp, err := p.makeRequest(ctxWithTimeout, apiReq)
	if err != nil {
		return nil, err
	}

	content := resp.Message.Content
	tokensUsed := resp.PromptEvalCount + resp.EvalCount
	if tokensUsed == 0 {
		// Rough estimate: 1 token ~ 4 characters
		tokensUsed = (len(req.Prompt) + len(content)) / 4
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &RawResponse{
		Choices:    []string{content},
		Model:      model,
		TokensUsed: tokensUsed,
	}, nil
}

// makeRequest makes an HTTP request to the Ollama API
func (p *OllamaProvider) makeRequest(ctx context.Context, apiReq ollamaRequest) (*ollamaResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return nil, statusError(p.Name(), httpResp.StatusCode, message, nil)
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, statusError(p.Name(), httpResp.StatusCode, string(respBody),
			fmt.Errorf("unmarshal response: %w", err))
	}

	return &resp, nil
}
