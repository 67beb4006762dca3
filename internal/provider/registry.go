package provider

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"chatbridge/internal/models"
)

// ErrUnknownModel indicates no registered provider serves the requested model.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates two providers claim the same model ID.
var ErrDuplicateModel = errors.New("model already registered")

// ErrUnknownProvider indicates the provider identifier did not resolve.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrInvalidConfiguration indicates an internally inconsistent provider entry.
var ErrInvalidConfiguration = errors.New("invalid provider configuration")

// Transformer serializes a unified request into a vendor's wire bytes.
// Failures wrap chaterr.ErrSerialization.
type Transformer interface {
	Serialize(req models.UnifiedChatRequest) ([]byte, error)
}

// Parser deserializes a vendor's success body into the unified response.
// Failures wrap chaterr.ErrParse.
type Parser interface {
	Deserialize(data []byte) (*models.UnifiedChatResponse, error)
}

// Codec is the per-vendor transform/parse pair.
type Codec interface {
	Transformer
	Parser
}

// Registry holds one Configuration per vendor. It is built once and offers no
// mutation API, so it is safe for concurrent use.
type Registry struct {
	order  []Type
	byType map[Type]Configuration
	models map[string]Type
}

// NewRegistry validates every configuration and indexes it by type and model.
func NewRegistry(configs ...Configuration) (*Registry, error) {
	r := &Registry{
		byType: make(map[Type]Configuration, len(configs)),
		models: make(map[string]Type),
	}

	for _, cfg := range configs {
		cfg = cfg.Normalized()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.byType[cfg.Type]; exists {
			return nil, fmt.Errorf("provider %q already registered", cfg.Type)
		}

		for _, model := range cfg.SupportedModels {
			if owner, exists := r.models[model]; exists {
				return nil, fmt.Errorf("%w: %s (claimed by %s and %s)", ErrDuplicateModel, model, owner, cfg.Type)
			}
			r.models[model] = cfg.Type
		}

		r.byType[cfg.Type] = cfg
		r.order = append(r.order, cfg.Type)
	}

	return r, nil
}

// Get returns the configuration registered for t.
func (r *Registry) Get(t Type) (Configuration, bool) {
	cfg, ok := r.byType[t]
	if !ok {
		return Configuration{}, false
	}
	return cfg.clone(), true
}

// Lookup resolves a provider by type identifier or display name, ignoring case.
func (r *Registry) Lookup(name string) (Configuration, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if t, ok := ParseType(key); ok {
		if cfg, ok := r.Get(t); ok {
			return cfg, nil
		}
	}
	for _, t := range r.order {
		cfg := r.byType[t]
		if strings.ToLower(cfg.Name) == key || strings.ToLower(cfg.Type.DisplayName()) == key {
			return cfg.clone(), nil
		}
	}
	return Configuration{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}

// LookupModel returns the configuration of the provider that serves modelID.
func (r *Registry) LookupModel(modelID string) (Configuration, error) {
	t, ok := r.models[modelID]
	if !ok {
		return Configuration{}, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return r.byType[t].clone(), nil
}

// All returns every configuration in registration order.
func (r *Registry) All() []Configuration {
	out := make([]Configuration, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.byType[t].clone())
	}
	return out
}

// Configuration is the static metadata for one vendor.
type Configuration struct {
	Type    Type
	Name    string
	BaseURL string
	// AuthHeaderName defaults to "Authorization".
	AuthHeaderName string
	// AuthHeaderPrefix is joined to the key with a single space. An empty
	// prefix sends the raw key.
	AuthHeaderPrefix string
	// APIVersionHeader and APIVersion are sent together when APIVersion is set.
	APIVersionHeader string
	APIVersion       string
	DefaultModel     string
	SupportedModels  []string
	Headers          map[string]string
}

// Supports reports whether model is in the supported set.
func (c Configuration) Supports(model string) bool {
	return slices.Contains(c.SupportedModels, model)
}

// SecretKey is the logical key used to look up the API key.
func (c Configuration) SecretKey() string {
	return strings.ToLower(c.Name)
}

// AuthorizationValue renders the auth header value for apiKey.
func (c Configuration) AuthorizationValue(apiKey string) string {
	if c.AuthHeaderPrefix == "" {
		return apiKey
	}
	return c.AuthHeaderPrefix + " " + apiKey
}

// Validate checks the entry is internally consistent.
func (c Configuration) Validate() error {
	if t, ok := ParseType(string(c.Type)); !ok || t != c.Type {
		return fmt.Errorf("%w: unknown provider type %q", ErrInvalidConfiguration, c.Type)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: provider %s: name must not be empty", ErrInvalidConfiguration, c.Type)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: provider %s: base url must not be empty", ErrInvalidConfiguration, c.Name)
	}
	if strings.TrimSpace(c.AuthHeaderName) == "" {
		return fmt.Errorf("%w: provider %s: auth header name must not be empty", ErrInvalidConfiguration, c.Name)
	}
	if len(c.SupportedModels) == 0 {
		return fmt.Errorf("%w: provider %s: at least one model must be supported", ErrInvalidConfiguration, c.Name)
	}
	if !c.Supports(c.DefaultModel) {
		return fmt.Errorf("%w: provider %s: default model %q is not supported", ErrInvalidConfiguration, c.Name, c.DefaultModel)
	}
	if c.APIVersion != "" && c.APIVersionHeader == "" {
		return fmt.Errorf("%w: provider %s: api version set without a header name", ErrInvalidConfiguration, c.Name)
	}
	return nil
}

// Normalized fills the auth header name and default model when unset.
func (c Configuration) Normalized() Configuration {
	c = c.clone()
	if c.AuthHeaderName == "" {
		c.AuthHeaderName = "Authorization"
	}
	if c.DefaultModel == "" && len(c.SupportedModels) > 0 {
		c.DefaultModel = c.SupportedModels[0]
	}
	return c
}

func (c Configuration) clone() Configuration {
	c.SupportedModels = slices.Clone(c.SupportedModels)
	c.Headers = maps.Clone(c.Headers)
	return c
}
