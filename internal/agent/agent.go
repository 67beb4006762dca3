// Package agent describes preconfigured personas that pin a provider, model,
// system prompt and generation parameters.
package agent

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chatbridge/internal/models"
	"chatbridge/internal/provider"
)

var (
	ErrInvalidName     = errors.New("agent name must not be empty")
	ErrInvalidModel    = errors.New("agent model must not be empty")
	ErrInvalidProvider = errors.New("agent provider is not supported")
)

const (
	defaultContextWindow = 10
	defaultMaxTokens     = 2000
)

// Parameters are the generation and policy settings of an agent.
type Parameters struct {
	Temperature      float64
	MaxTokens        *int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	StopSequences    []string
	// Timeout and RetryAttempts feed the dispatch policy hooks.
	Timeout       time.Duration
	RetryAttempts int
}

func DefaultParameters() Parameters {
	return Parameters{
		Temperature:   0.7,
		MaxTokens:     models.Ptr(defaultMaxTokens),
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
	}
}

func (p Parameters) Validate() error {
	if err := models.ValidateTemperature(p.Temperature); err != nil {
		return err
	}
	if p.MaxTokens != nil {
		if err := models.ValidateMaxTokens(*p.MaxTokens); err != nil {
			return err
		}
	}
	if p.TopP != nil {
		if err := models.ValidateTopP(*p.TopP); err != nil {
			return err
		}
	}
	if err := models.ValidateTimeout(p.Timeout); err != nil {
		return err
	}
	return models.ValidateRetryAttempts(p.RetryAttempts)
}

// RequestParameters converts p to the unified form. Penalties and stop
// sequences travel as extras under their OpenAI wire names.
func (p Parameters) RequestParameters() models.RequestParameters {
	out := models.RequestParameters{
		Temperature: models.Ptr(p.Temperature),
		MaxTokens:   p.MaxTokens,
		TopP:        p.TopP,
	}
	extras := map[string]any{}
	if p.FrequencyPenalty != nil {
		extras["frequency_penalty"] = *p.FrequencyPenalty
	}
	if p.PresencePenalty != nil {
		extras["presence_penalty"] = *p.PresencePenalty
	}
	if len(p.StopSequences) > 0 {
		extras["stop"] = append([]string(nil), p.StopSequences...)
	}
	if len(extras) > 0 {
		out.Extras = extras
	}
	return out
}

// Configuration is one agent.
type Configuration struct {
	ID            string
	Name          string
	Description   string
	Provider      provider.Type
	Model         string
	SystemPrompt  string
	Parameters    Parameters
	MemoryEnabled bool
	// ContextWindow caps how many history messages are replayed.
	ContextWindow int
}

func (c Configuration) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("agent %s: %w", c.Name, ErrInvalidModel)
	}
	if t, ok := provider.ParseType(string(c.Provider)); !ok || t != c.Provider {
		return fmt.Errorf("agent %s: %w: %q", c.Name, ErrInvalidProvider, c.Provider)
	}
	if err := c.Parameters.Validate(); err != nil {
		return fmt.Errorf("agent %s: %w", c.Name, err)
	}
	return nil
}

// BuildRequest places the system prompt first, then the most recent history
// when memory is enabled, then text as the user turn.
func (c Configuration) BuildRequest(text string, history []models.Message) (models.UnifiedChatRequest, error) {
	msgs := make([]models.Message, 0, len(history)+2)
	if strings.TrimSpace(c.SystemPrompt) != "" {
		msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: c.SystemPrompt})
	}
	if c.MemoryEnabled && len(history) > 0 {
		window := c.ContextWindow
		if window <= 0 {
			window = defaultContextWindow
		}
		if len(history) > window {
			history = history[len(history)-window:]
		}
		// The replayed window must open on a user turn.
		started := false
		for _, m := range history {
			if m.Role == models.RoleSystem {
				continue
			}
			if !started && m.Role != models.RoleUser {
				continue
			}
			started = true
			msgs = append(msgs, m)
		}
	}
	msgs = append(msgs, models.Message{Role: models.RoleUser, Content: text})

	return models.NewChatRequest(c.Model, msgs, c.Parameters.RequestParameters())
}

// DefaultModel returns the built-in default model of t.
func DefaultModel(t provider.Type) string {
	for _, cfg := range provider.Defaults() {
		if cfg.Type == t {
			return cfg.Normalized().DefaultModel
		}
	}
	return ""
}
