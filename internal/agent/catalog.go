package agent

import (
	"fmt"
	"strings"

	"chatbridge/internal/config"
	"chatbridge/internal/models"
	"chatbridge/internal/provider"
)

// Catalog is an immutable, ordered set of agents keyed by lowercase ID.
type Catalog struct {
	order []string
	byID  map[string]Configuration
}

// NewCatalog validates every agent. A later agent replaces an earlier one
// with the same ID, so configured agents can override the defaults.
func NewCatalog(agents ...Configuration) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Configuration, len(agents))}
	for _, a := range agents {
		id := strings.ToLower(strings.TrimSpace(a.ID))
		if id == "" {
			return nil, fmt.Errorf("agent %q: id must not be empty", a.Name)
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		a.ID = id
		if _, exists := c.byID[id]; !exists {
			c.order = append(c.order, id)
		}
		c.byID[id] = a
	}
	return c, nil
}

func (c *Catalog) Get(id string) (Configuration, bool) {
	a, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	return a, ok
}

func (c *Catalog) All() []Configuration {
	out := make([]Configuration, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// FromConfig converts configured agents. Unset fields take the agent and
// provider defaults.
func FromConfig(entries []config.AgentConfig) ([]Configuration, error) {
	out := make([]Configuration, 0, len(entries))
	for _, e := range entries {
		t, ok := provider.ParseType(e.Provider)
		if !ok {
			return nil, fmt.Errorf("agent %s: %w: %q", e.ID, ErrInvalidProvider, e.Provider)
		}

		a := Configuration{
			ID:            e.ID,
			Name:          e.Name,
			Description:   e.Description,
			Provider:      t,
			Model:         e.Model,
			SystemPrompt:  e.SystemPrompt,
			Parameters:    DefaultParameters(),
			MemoryEnabled: e.MemoryEnabled,
			ContextWindow: e.ContextWindow,
		}
		if a.Name == "" {
			a.Name = e.ID
		}
		if a.Model == "" {
			a.Model = DefaultModel(t)
		}

		p := &a.Parameters
		if e.Temperature != nil {
			p.Temperature = *e.Temperature
		}
		if e.MaxTokens != nil {
			p.MaxTokens = e.MaxTokens
		}
		p.TopP = e.TopP
		p.FrequencyPenalty = e.FrequencyPenalty
		p.PresencePenalty = e.PresencePenalty
		p.StopSequences = e.StopSequences
		if e.Timeout > 0 {
			p.Timeout = e.Timeout
		}
		if e.RetryAttempts != nil {
			p.RetryAttempts = *e.RetryAttempts
		}

		if err := a.Validate(); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// DefaultAgents returns the built-in personas.
func DefaultAgents() []Configuration {
	agent := func(id, name string, t provider.Type, temp float64, maxTokens, window int, prompt string) Configuration {
		p := DefaultParameters()
		p.Temperature = temp
		p.MaxTokens = models.Ptr(maxTokens)
		return Configuration{
			ID:            id,
			Name:          name,
			Provider:      t,
			Model:         DefaultModel(t),
			SystemPrompt:  prompt,
			Parameters:    p,
			MemoryEnabled: true,
			ContextWindow: window,
		}
	}

	return []Configuration{
		agent("assistant", "General Assistant", provider.TypeOpenAI, 0.7, 2000, 10,
			"You are a helpful and friendly AI assistant. Always answer clearly and precisely. Keep a professional but approachable tone."),
		agent("coder", "Code Expert", provider.TypeOpenAI, 0.3, 4000, 15,
			"You are a senior software engineer. Provide clean, well-commented code, explain your reasoning and suggest improvements where possible."),
		agent("creative", "Creative Director", provider.TypeAnthropic, 0.9, 3000, 8,
			"You are an inventive creative director with experience in design and marketing. Think outside the box and propose original, bold ideas."),
		agent("analyst", "Business Analyst", provider.TypeOpenAI, 0.4, 3000, 12,
			"You are an experienced business analyst with a background in strategy. Give detailed analysis, consider ROI and business impact, and use concrete data when possible."),
		agent("tutor", "Tutor", provider.TypeAnthropic, 0.6, 2500, 10,
			"You are a patient and knowledgeable tutor. Explain complex concepts simply, adapt to the learner's level and give practical examples."),
	}
}
