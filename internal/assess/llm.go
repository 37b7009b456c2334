// Package assess asks a language-model backend whether each upgrade candidate is safe to install.
package assess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/obentoo/aptaudit/internal/common/version"
)

// Error variables for backend errors
var (
	// ErrLLMNotConfigured is returned when no provider is selected
	ErrLLMNotConfigured = errors.New("llm provider not configured")
	// ErrLLMUnsupported is returned for an unknown provider name
	ErrLLMUnsupported = errors.New("unsupported llm provider")
	// ErrLLMAPIKeyMissing is returned when a provider that needs a key has none
	ErrLLMAPIKeyMissing = errors.New("llm api key missing")
	// ErrLLMEmptyResponse is returned when the backend answers without text
	ErrLLMEmptyResponse = errors.New("llm returned an empty response")
	// ErrLLMStatus is returned for a non-2xx backend answer
	ErrLLMStatus = errors.New("llm request failed")
	// ErrLLMMalformed is returned when the answer is not the expected JSON
	ErrLLMMalformed = errors.New("malformed llm response")
)

// Provider names accepted by NewProvider
const (
	ProviderOpenAI  = "openai"
	ProviderOpenLLM = "openllm"
	ProviderClaude  = "claude"
	ProviderOllama  = "ollama"
	ProviderNone    = "none"
)

// Providers returns every accepted provider name.
func Providers() []string {
	return []string{ProviderOpenAI, ProviderOpenLLM, ProviderClaude, ProviderOllama, ProviderNone}
}

// maxErrorBody bounds how much of a failed answer ends up in an error message
const maxErrorBody = 512

// LLMConfig configures a backend client.
type LLMConfig struct {
	// Provider is one of Providers()
	Provider string
	// Model overrides the provider default
	Model string
	// BaseURL overrides the provider endpoint
	BaseURL string
	// APIKey is the resolved secret; when empty APIKeyEnv is read
	APIKey string
	// APIKeyEnv names the environment variable holding the secret
	APIKeyEnv string
	// Timeout bounds each request (default 30s)
	Timeout time.Duration
	// MaxRetries is the number of retries after a failed request (default 0)
	MaxRetries int
	// MaxTokens caps the answer length
	MaxTokens int
}

// Provider sends a prompt to a backend and returns its text answer.
type Provider interface {
	// Complete returns the answer text for prompt
	Complete(ctx context.Context, prompt string) (string, error)
	// Name returns the provider name
	Name() string
	// GetModel returns the model in use
	GetModel() string
}

// NewProvider creates the Provider selected by cfg.Provider.
func NewProvider(cfg LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, ErrLLMNotConfigured
	case ProviderOpenAI, ProviderOpenLLM:
		return NewOpenAIClient(cfg)
	case ProviderClaude:
		return NewClaudeClient(cfg)
	case ProviderOllama:
		return NewOllamaClient(cfg)
	case ProviderNone:
		return DisabledProvider{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrLLMUnsupported, cfg.Provider)
	}
}

// apiKey returns the configured secret, falling back to the environment
func (cfg LLMConfig) apiKey() string {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key
	}
	if cfg.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	}
	return ""
}

// retryConfig derives the HTTP client settings
func (cfg LLMConfig) retryConfig() RetryConfig {
	rc := DefaultRetryConfig()
	if cfg.Timeout > 0 {
		rc.Timeout = cfg.Timeout
	}
	if cfg.MaxRetries > 0 {
		rc.MaxRetries = cfg.MaxRetries
	}
	return rc
}

func (cfg LLMConfig) maxTokens() int {
	if cfg.MaxTokens <= 0 {
		return 512
	}
	return cfg.MaxTokens
}

// newHTTPClient builds the retrying client shared by all providers
func newHTTPClient(cfg LLMConfig) *RetryableHTTPClient {
	client := NewRetryableHTTPClientWithConfig(cfg.retryConfig())
	client.SetDefaultHeaders(map[string]string{"User-Agent": version.UserAgent()})
	return client
}

// readBody reads a response body and turns non-2xx answers into ErrLLMStatus
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "..."
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrLLMStatus, resp.StatusCode, msg)
	}

	return body, nil
}

// endpoint joins a base URL and an API path unless the base already ends with it
func endpoint(base, path string) string {
	base = strings.TrimRight(SubstituteEnvVars(base), "/")
	if strings.HasSuffix(base, path) {
		return base
	}
	return base + path
}

// DisabledProvider answers nothing; every candidate ends up unknown.
type DisabledProvider struct{}

// ErrAssessmentDisabled is returned by DisabledProvider
var ErrAssessmentDisabled = errors.New("assessment disabled")

// Complete always fails with ErrAssessmentDisabled
func (DisabledProvider) Complete(context.Context, string) (string, error) {
	return "", ErrAssessmentDisabled
}

// Name returns "none"
func (DisabledProvider) Name() string { return ProviderNone }

// GetModel returns an empty model
func (DisabledProvider) GetModel() string { return "" }
