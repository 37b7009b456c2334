package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3"
	ollamaGeneratePath = "/api/generate"
)

// OllamaClient talks to a local Ollama server. No API key is needed.
type OllamaClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *RetryableHTTPClient
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaClient creates an Ollama client.
func NewOllamaClient(cfg LLMConfig) (*OllamaClient, error) {
	c := &OllamaClient{
		apiKey:  cfg.apiKey(),
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		http:    newHTTPClient(cfg),
	}
	if c.model == "" {
		c.model = defaultOllamaModel
	}
	if c.baseURL == "" {
		c.baseURL = defaultOllamaURL
	}

	c.SetHTTPClient(c.http.HTTPClient())
	return c, nil
}

// SetHTTPClient replaces the underlying HTTP client.
// Keys are optional; when one is set (e.g. for a reverse proxy) it is sent as a bearer token.
func (c *OllamaClient) SetHTTPClient(client *http.Client) {
	if c.apiKey != "" {
		client = bearerClient(client, c.apiKey)
	}
	c.http.SetHTTPClient(client)
}

// SetBaseURL overrides the endpoint.
func (c *OllamaClient) SetBaseURL(url string) {
	c.baseURL = url
}

// Name returns "ollama"
func (c *OllamaClient) Name() string { return ProviderOllama }

// GetModel returns the model in use
func (c *OllamaClient) GetModel() string { return c.model }

// Complete runs a non-streaming generation.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(ollamaRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: 0},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	resp, err := c.http.PostJSON(ctx, endpoint(c.baseURL, ollamaGeneratePath), nil, data)
	if err != nil {
		return "", err
	}

	body, err := readBody(resp)
	if err != nil {
		return "", err
	}

	var out ollamaResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMMalformed, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrLLMStatus, out.Error)
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", ErrLLMEmptyResponse
	}
	return text, nil
}

var _ Provider = (*OllamaClient)(nil)
