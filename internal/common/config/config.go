package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/obentoo/aptaudit/internal/common/logger"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a setting is absent or non-positive
const (
	DefaultProvider          = "openai"
	DefaultTimeout           = 30
	DefaultRequestsPerMinute = 60
	DefaultMaxTokens         = 512
	DefaultRecipient         = "root"
	DefaultSubject           = "Upgrade audit"
	DefaultSendmailPath      = "/usr/sbin/sendmail"
	DefaultSMTPPort          = 25
	DefaultFormat            = "md"
	DefaultDeliver           = "mail"
)

var (
	ErrInvalidProvider  = errors.New("invalid llm provider: must be openai, openllm, claude, ollama or none")
	ErrInvalidTransport = errors.New("invalid mail transport: must be sendmail or smtp")
	ErrInvalidFormat    = errors.New("invalid report format: must be md or html")
	ErrInvalidDeliver   = errors.New("invalid delivery target: must be file, mail or both")
)

// Config represents the application configuration
type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Mail   MailConfig   `yaml:"mail"`
	Report ReportConfig `yaml:"report"`
	Policy PolicyConfig `yaml:"policy"`
}

// LLMConfig selects and tunes the assessment backend
type LLMConfig struct {
	Provider          string `yaml:"provider"`                      // openai, openllm, claude, ollama or none
	Model             string `yaml:"model,omitempty"`               // Empty selects the provider default
	BaseURL           string `yaml:"base_url,omitempty"`            // Endpoint override, ${VAR} is expanded
	APIKeyEnv         string `yaml:"api_key_env,omitempty"`         // Environment variable holding the key
	Timeout           int    `yaml:"timeout,omitempty"`             // Seconds per request
	MaxRetries        int    `yaml:"max_retries,omitempty"`         // Retries after a failed request
	RequestsPerMinute int    `yaml:"requests_per_minute,omitempty"` // Pacing of backend requests
	MaxTokens         int    `yaml:"max_tokens,omitempty"`          // Answer size cap
}

// MailConfig holds report mail settings
type MailConfig struct {
	Recipient       string `yaml:"recipient"`
	From            string `yaml:"from,omitempty"` // Empty selects aptaudit@<hostname>
	Subject         string `yaml:"subject,omitempty"`
	Transport       string `yaml:"transport,omitempty"` // sendmail or smtp
	SendmailPath    string `yaml:"sendmail_path,omitempty"`
	SMTPHost        string `yaml:"smtp_host,omitempty"`
	SMTPPort        int    `yaml:"smtp_port,omitempty"`
	SMTPUser        string `yaml:"smtp_user,omitempty"`
	SMTPPasswordEnv string `yaml:"smtp_password_env,omitempty"`
}

// ReportConfig holds report rendering and delivery settings
type ReportConfig struct {
	Format  string `yaml:"format"`            // md or html
	Output  string `yaml:"output,omitempty"`  // Empty selects upgrade_report.<ext>
	Deliver string `yaml:"deliver,omitempty"` // file, mail or both
}

// PolicyConfig locates the audit policy and bounds the package context
type PolicyConfig struct {
	Path           string   `yaml:"path,omitempty"`
	ChangelogLimit int      `yaml:"changelog_limit,omitempty"`
	ConfigRoots    []string `yaml:"config_roots,omitempty"`
}

// Default returns the configuration written on first use
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: DefaultProvider,
		},
		Mail: MailConfig{
			Recipient: DefaultRecipient,
			Transport: "sendmail",
		},
		Report: ReportConfig{
			Format:  DefaultFormat,
			Deliver: DefaultDeliver,
		},
	}
}

// ConfigPaths returns all possible config file paths in priority order
// 1. ~/.config/aptaudit/config.yaml (XDG standard - priority)
// 2. ~/.aptaudit/config.yaml (legacy fallback)
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	// Check XDG_CONFIG_HOME first, fallback to ~/.config
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		filepath.Join(xdgConfig, "aptaudit", "config.yaml"),
		filepath.Join(home, ".aptaudit", "config.yaml"),
	}, nil
}

// DefaultConfigPath returns the default config file path (XDG standard)
func DefaultConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// FindConfigPath returns the first existing config file path
// Returns the default path if no config file exists yet
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	// No config exists, return default (XDG) path for creation
	return paths[0], nil
}

// Load reads configuration from the first available config file
// Priority: ~/.config/aptaudit/config.yaml > ~/.aptaudit/config.yaml
func Load() (*Config, error) {
	configPath, err := FindConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from a specific file path.
// A missing file is created with the defaults; when it cannot be created the
// defaults are still returned.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if saveErr := cfg.SaveTo(path); saveErr != nil {
				logger.Warn("could not write default config to %s: %v", path, saveErr)
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes configuration to the default config file
func (c *Config) Save() error {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo writes configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// The file may name secret environment variables, keep it private
	return os.WriteFile(path, data, 0600)
}

// Marshal returns the YAML form of the configuration
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks enumerated settings. Empty values are accepted and fall back to defaults.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "", "openai", "openllm", "claude", "ollama", "none":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidProvider, c.LLM.Provider)
	}

	switch c.Mail.Transport {
	case "", "sendmail", "smtp":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidTransport, c.Mail.Transport)
	}

	switch c.Report.Format {
	case "", "md", "markdown", "html":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidFormat, c.Report.Format)
	}

	switch c.Report.Deliver {
	case "", "file", "mail", "both":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidDeliver, c.Report.Deliver)
	}

	return nil
}

// GetProvider returns the configured provider or the default
func (l LLMConfig) GetProvider() string {
	if l.Provider == "" {
		return DefaultProvider
	}
	return l.Provider
}

// GetTimeout returns the request timeout, defaulting for zero/negative values
func (l LLMConfig) GetTimeout() time.Duration {
	if l.Timeout <= 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(l.Timeout) * time.Second
}

// GetRequestsPerMinute returns the pacing rate, defaulting for zero/negative values
func (l LLMConfig) GetRequestsPerMinute() int {
	if l.RequestsPerMinute <= 0 {
		return DefaultRequestsPerMinute
	}
	return l.RequestsPerMinute
}

// GetMaxTokens returns the answer size cap, defaulting for zero/negative values
func (l LLMConfig) GetMaxTokens() int {
	if l.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return l.MaxTokens
}

// GetMaxRetries returns the retry count; negative values mean none
func (l LLMConfig) GetMaxRetries() int {
	if l.MaxRetries < 0 {
		return 0
	}
	return l.MaxRetries
}

// GetRecipient returns the mail recipient or root
func (m MailConfig) GetRecipient() string {
	if m.Recipient == "" {
		return DefaultRecipient
	}
	return m.Recipient
}

// GetFrom returns the sender address, aptaudit@<hostname> when unset
func (m MailConfig) GetFrom() string {
	if m.From != "" {
		return m.From
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return "aptaudit@" + host
}

// GetSubject returns the mail subject, "Upgrade audit for <host>" when unset
func (m MailConfig) GetSubject(host string) string {
	if m.Subject != "" {
		return m.Subject
	}
	if host == "" {
		return DefaultSubject
	}
	return DefaultSubject + " for " + host
}

// GetSendmailPath returns the sendmail binary path or the default
func (m MailConfig) GetSendmailPath() string {
	if m.SendmailPath == "" {
		return DefaultSendmailPath
	}
	return m.SendmailPath
}

// GetSMTPPort returns the SMTP port, defaulting for zero/negative values
func (m MailConfig) GetSMTPPort() int {
	if m.SMTPPort <= 0 {
		return DefaultSMTPPort
	}
	return m.SMTPPort
}

// GetFormat returns the report format or the default
func (r ReportConfig) GetFormat() string {
	if r.Format == "" {
		return DefaultFormat
	}
	return r.Format
}

// GetDeliver returns the delivery target or the default
func (r ReportConfig) GetDeliver() string {
	if r.Deliver == "" {
		return DefaultDeliver
	}
	return r.Deliver
}
