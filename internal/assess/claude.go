package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultClaudeURL   = "https://api.anthropic.com"
	defaultClaudeModel = "claude-3-haiku-20240307"
	claudeMessagesPath = "/v1/messages"
	anthropicVersion   = "2023-06-01"
)

// ClaudeClient talks to the Anthropic messages API.
type ClaudeClient struct {
	model     string
	baseURL   string
	maxTokens int
	http      *RetryableHTTPClient
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      claudeUsage    `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClaudeClient creates a Claude client. An API key is required.
func NewClaudeClient(cfg LLMConfig) (*ClaudeClient, error) {
	key := cfg.apiKey()
	if key == "" {
		return nil, fmt.Errorf("%w: claude requires an API key", ErrLLMAPIKeyMissing)
	}

	c := &ClaudeClient{
		model:     cfg.Model,
		baseURL:   cfg.BaseURL,
		maxTokens: cfg.maxTokens(),
		http:      newHTTPClient(cfg),
	}
	if c.model == "" {
		c.model = defaultClaudeModel
	}
	if c.baseURL == "" {
		c.baseURL = defaultClaudeURL
	}
	c.http.SetSecretHeaders(map[string]string{"x-api-key": key})
	return c, nil
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *ClaudeClient) SetHTTPClient(client *http.Client) {
	c.http.SetHTTPClient(client)
}

// SetBaseURL overrides the endpoint.
func (c *ClaudeClient) SetBaseURL(url string) {
	c.baseURL = url
}

// Name returns "claude"
func (c *ClaudeClient) Name() string { return ProviderClaude }

// GetModel returns the model in use
func (c *ClaudeClient) GetModel() string { return c.model }

// Complete sends prompt as a single user message and returns the first text block.
func (c *ClaudeClient) Complete(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	headers := map[string]string{"anthropic-version": anthropicVersion}

	resp, err := c.http.PostJSON(ctx, endpoint(c.baseURL, claudeMessagesPath), headers, data)
	if err != nil {
		return "", err
	}

	body, err := readBody(resp)
	if err != nil {
		return "", claudeError(err)
	}

	var out claudeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMMalformed, err)
	}

	for _, block := range out.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", ErrLLMEmptyResponse
}

// claudeError keeps only the API message of a structured error body
func claudeError(err error) error {
	msg := err.Error()
	i := strings.Index(msg, "{")
	if i < 0 {
		return err
	}
	var e claudeErrorResponse
	if json.Unmarshal([]byte(msg[i:]), &e) != nil || e.Error.Message == "" {
		return err
	}
	return fmt.Errorf("%w: %s: %s", ErrLLMStatus, e.Error.Type, e.Error.Message)
}

var _ Provider = (*ClaudeClient)(nil)
