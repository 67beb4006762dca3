package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"chatbridge/internal/models"
	"chatbridge/internal/provider"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Logging   LoggingConfig             `yaml:"logging"`
	Secrets   SecretsConfig             `yaml:"secrets"`
	Dispatch  DispatchConfig            `yaml:"dispatch"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Agents    []AgentConfig             `yaml:"agents"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SecretsConfig lists where API keys come from. Inline keys take precedence
// over the environment, which takes precedence over EnvFile.
type SecretsConfig struct {
	EnvFile string            `yaml:"env_file"`
	Keys    map[string]string `yaml:"keys"`
}

// DispatchConfig holds the opt-in policy hooks applied to every provider.
// Zero values disable them.
type DispatchConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
}

// ProviderConfig overrides the built-in entry for one provider. Empty fields
// keep the built-in value.
type ProviderConfig struct {
	BaseURL      string   `yaml:"base_url"`
	DefaultModel string   `yaml:"default_model"`
	Models       []string `yaml:"models"`
	Headers      Headers  `yaml:"headers"`
	AuthHeader   string   `yaml:"auth_header"`
	// AuthPrefix is a pointer so an explicit empty prefix can be told apart
	// from an unset one.
	AuthPrefix *string `yaml:"auth_prefix"`
	APIVersion string  `yaml:"api_version"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// AgentConfig declares an agent on top of a provider.
type AgentConfig struct {
	ID               string        `yaml:"id"`
	Name             string        `yaml:"name"`
	Description      string        `yaml:"description"`
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	SystemPrompt     string        `yaml:"system_prompt"`
	Temperature      *float64      `yaml:"temperature"`
	MaxTokens        *int          `yaml:"max_tokens"`
	TopP             *float64      `yaml:"top_p"`
	FrequencyPenalty *float64      `yaml:"frequency_penalty"`
	PresencePenalty  *float64      `yaml:"presence_penalty"`
	StopSequences    []string      `yaml:"stop_sequences"`
	Timeout          time.Duration `yaml:"timeout"`
	RetryAttempts    *int          `yaml:"retry_attempts"`
	MemoryEnabled    bool          `yaml:"memory_enabled"`
	ContextWindow    int           `yaml:"context_window"`
}

// Default returns a configuration that serves the built-in providers on
// port 8080 with console logging.
func Default() Config {
	return Config{
		Server:  ServerConfig{Port: 8080},
		Logging: LoggingConfig{Level: "info", Format: FormatConsole},
	}
}

// Load reads YAML configuration from disk on top of Default and validates
// the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config file %q: %w", absPath, err)
	}

	if cfg.Secrets.EnvFile != "" && !filepath.IsAbs(cfg.Secrets.EnvFile) {
		cfg.Secrets.EnvFile = filepath.Join(filepath.Dir(absPath), cfg.Secrets.EnvFile)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	if err := c.Dispatch.validate(); err != nil {
		return err
	}

	seen := make(map[provider.Type]string, len(c.Providers))
	for name, p := range c.Providers {
		t, ok := provider.ParseType(name)
		if !ok {
			return fmt.Errorf("providers.%s: unknown provider", name)
		}
		if prev, dup := seen[t]; dup {
			return fmt.Errorf("providers.%s: duplicates providers.%s", name, prev)
		}
		seen[t] = name
		if err := validateProvider(name, p); err != nil {
			return err
		}
	}

	ids := make(map[string]struct{}, len(c.Agents))
	for i, a := range c.Agents {
		if err := a.validate(); err != nil {
			return fmt.Errorf("agents[%d]: %w", i, err)
		}
		id := strings.ToLower(a.ID)
		if _, dup := ids[id]; dup {
			return fmt.Errorf("agents[%d]: duplicate id %q", i, a.ID)
		}
		ids[id] = struct{}{}
	}
	return nil
}

func (l LoggingConfig) validate() error {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn or error", l.Level)
	}
	switch l.Format {
	case "", FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("logging.format %q must be %q or %q", l.Format, FormatConsole, FormatJSON)
	}
	return nil
}

func (d DispatchConfig) validate() error {
	if d.Timeout < 0 {
		return fmt.Errorf("dispatch.timeout: %w", models.ValidateTimeout(d.Timeout))
	}
	if err := models.ValidateRetryAttempts(d.RetryAttempts); err != nil {
		return fmt.Errorf("dispatch.retry_attempts: %w", err)
	}
	if d.RetryBackoff < 0 {
		return fmt.Errorf("dispatch.retry_backoff must not be negative, got %s", d.RetryBackoff)
	}
	return nil
}

func validateProvider(name string, p ProviderConfig) error {
	if p.BaseURL != "" {
		u, err := url.Parse(p.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("providers.%s: base_url %q must be an absolute URL", name, p.BaseURL)
		}
	}

	for _, model := range p.Models {
		if strings.TrimSpace(model) == "" {
			return fmt.Errorf("providers.%s: model id must not be empty", name)
		}
	}
	if p.DefaultModel != "" && len(p.Models) > 0 && !contains(p.Models, p.DefaultModel) {
		return fmt.Errorf("providers.%s: default_model %q is not in models", name, p.DefaultModel)
	}

	if p.AuthHeader != "" && !isCanonicalHTTPHeader(p.AuthHeader) {
		return fmt.Errorf("providers.%s: auth_header %q is not a valid canonical HTTP header", name, p.AuthHeader)
	}
	for headerKey := range p.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("providers.%s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}
	return nil
}

func (a AgentConfig) validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("id must not be empty")
	}
	if _, ok := provider.ParseType(a.Provider); !ok {
		return fmt.Errorf("agent %s: unknown provider %q", a.ID, a.Provider)
	}
	if a.Temperature != nil {
		if err := models.ValidateTemperature(*a.Temperature); err != nil {
			return fmt.Errorf("agent %s: %w", a.ID, err)
		}
	}
	if a.MaxTokens != nil {
		if err := models.ValidateMaxTokens(*a.MaxTokens); err != nil {
			return fmt.Errorf("agent %s: %w", a.ID, err)
		}
	}
	if a.Timeout < 0 {
		return fmt.Errorf("agent %s: %w", a.ID, models.ValidateTimeout(a.Timeout))
	}
	if a.RetryAttempts != nil {
		if err := models.ValidateRetryAttempts(*a.RetryAttempts); err != nil {
			return fmt.Errorf("agent %s: %w", a.ID, err)
		}
	}
	if a.ContextWindow < 0 {
		return fmt.Errorf("agent %s: context_window must not be negative", a.ID)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
