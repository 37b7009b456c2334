// Package credentials resolves backend API keys from flags, the environment and the OS keyring.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "aptaudit"

// Error variables for credential errors
var (
	// ErrUnknownProvider is returned for a name that has no stored secret slot
	ErrUnknownProvider = errors.New("unknown credential provider")
	// ErrEmptySecret is returned when storing an empty secret
	ErrEmptySecret = errors.New("secret is empty")
	// ErrNotStored is returned when the keyring holds no secret for a provider
	ErrNotStored = errors.New("no secret stored in keyring")
)

// Source tells where a resolved secret came from
type Source string

const (
	SourceNone    Source = ""
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
)

// envVars maps providers to the environment variable read by default
var envVars = map[string]string{
	"openai":  "OPENAI_API_KEY",
	"openllm": "OPENLLM_API_KEY",
	"claude":  "ANTHROPIC_API_KEY",
	"ollama":  "OLLAMA_API_KEY",
	"smtp":    "APTAUDIT_SMTP_PASSWORD",
}

// Providers returns the names that can hold a secret
func Providers() []string {
	return []string{"openai", "openllm", "claude", "ollama", "smtp"}
}

// DefaultEnvVar returns the environment variable read for provider
func DefaultEnvVar(provider string) string {
	return envVars[provider]
}

func checkProvider(provider string) error {
	if _, ok := envVars[provider]; !ok {
		return fmt.Errorf("%w: %q (valid: %s)", ErrUnknownProvider, provider, strings.Join(Providers(), ", "))
	}
	return nil
}

// Set stores secret for provider in the OS keyring
func Set(provider, secret string) error {
	if err := checkProvider(provider); err != nil {
		return err
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrEmptySecret
	}
	if err := keyring.Set(keyringService, provider, secret); err != nil {
		return fmt.Errorf("storing %s secret in keyring: %w", provider, err)
	}
	return nil
}

// Get reads the secret for provider from the OS keyring
func Get(provider string) (string, error) {
	if err := checkProvider(provider); err != nil {
		return "", err
	}
	secret, err := keyring.Get(keyringService, provider)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotStored
	}
	if err != nil {
		return "", fmt.Errorf("reading %s secret from keyring: %w", provider, err)
	}
	return secret, nil
}

// Delete removes the secret for provider. Deleting a missing secret is not an error.
func Delete(provider string) error {
	if err := checkProvider(provider); err != nil {
		return err
	}
	err := keyring.Delete(keyringService, provider)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting %s secret from keyring: %w", provider, err)
	}
	return nil
}

// Resolve returns the secret for provider, trying in order the flag value,
// the environment variable envName (the provider default when empty) and the keyring.
// A keyring that is unavailable counts as empty.
func Resolve(provider, flagValue, envName string) (string, Source) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v, SourceFlag
	}

	if envName == "" {
		envName = DefaultEnvVar(provider)
	}
	if envName != "" {
		if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
			return v, SourceEnv
		}
	}

	if v, err := Get(provider); err == nil && v != "" {
		return v, SourceKeyring
	}

	return "", SourceNone
}
