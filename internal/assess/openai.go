package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// OpenAI-compatible defaults
const (
	defaultOpenAIURL    = "https://api.openai.com"
	defaultOpenAIModel  = "gpt-4o-mini"
	defaultOpenLLMURL   = "http://localhost:3000"
	defaultOpenLLMModel = "gpt-3.5-turbo"
	defaultOpenLLMKey   = "local"
	chatCompletionsPath = "/v1/chat/completions"
)

// OpenAIClient talks to the chat-completions API of OpenAI or of a
// self-hosted OpenAI-compatible server (OpenLLM).
type OpenAIClient struct {
	name      string
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	http      *RetryableHTTPClient
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
}

type openAIChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// NewOpenAIClient creates a client for the "openai" or "openllm" provider.
// OpenAI requires an API key; OpenLLM falls back to the token "local".
func NewOpenAIClient(cfg LLMConfig) (*OpenAIClient, error) {
	c := &OpenAIClient{
		name:      cfg.Provider,
		apiKey:    cfg.apiKey(),
		model:     cfg.Model,
		baseURL:   cfg.BaseURL,
		maxTokens: cfg.maxTokens(),
	}

	switch cfg.Provider {
	case ProviderOpenLLM:
		if c.apiKey == "" {
			c.apiKey = defaultOpenLLMKey
		}
		if c.model == "" {
			c.model = defaultOpenLLMModel
		}
		if c.baseURL == "" {
			c.baseURL = defaultOpenLLMURL
		}
	default:
		c.name = ProviderOpenAI
		if c.apiKey == "" {
			return nil, fmt.Errorf("%w: openai requires an API key", ErrLLMAPIKeyMissing)
		}
		if c.model == "" {
			c.model = defaultOpenAIModel
		}
		if c.baseURL == "" {
			c.baseURL = defaultOpenAIURL
		}
	}

	c.http = newHTTPClient(cfg)
	c.SetHTTPClient(c.http.HTTPClient())
	return c, nil
}

// bearerClient wraps base so every request carries the token as a bearer credential
func bearerClient(base *http.Client, token string) *http.Client {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   "Bearer",
			AccessToken: token,
		},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = base.Timeout
	return tc
}

// SetHTTPClient replaces the underlying HTTP client; the bearer token is layered on top.
func (c *OpenAIClient) SetHTTPClient(client *http.Client) {
	c.http.SetHTTPClient(bearerClient(client, c.apiKey))
}

// SetBaseURL overrides the endpoint.
func (c *OpenAIClient) SetBaseURL(url string) {
	c.baseURL = url
}

// Name returns "openai" or "openllm"
func (c *OpenAIClient) Name() string { return c.name }

// GetModel returns the model in use
func (c *OpenAIClient) GetModel() string { return c.model }

// URL returns the chat-completions endpoint
func (c *OpenAIClient) URL() string {
	return endpoint(c.baseURL, chatCompletionsPath)
}

// Complete sends prompt as a single user message with temperature 0.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := openAIRequest{
		Model:       c.model,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   c.maxTokens,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	resp, err := c.http.PostJSON(ctx, c.URL(), nil, data)
	if err != nil {
		return "", err
	}

	body, err := readBody(resp)
	if err != nil {
		return "", err
	}

	var out openAIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMMalformed, err)
	}

	if len(out.Choices) == 0 {
		return "", ErrLLMEmptyResponse
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", ErrLLMEmptyResponse
	}
	return text, nil
}

var _ Provider = (*OpenAIClient)(nil)
