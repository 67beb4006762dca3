// Package factory is the composition point: it resolves provider and agent
// identifiers to a configuration plus codec and builds dispatch services.
package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"slices"
	"time"

	"chatbridge/internal/agent"
	"chatbridge/internal/config"
	"chatbridge/internal/dispatch"
	"chatbridge/internal/provider"
	"chatbridge/internal/provider/anthropic"
	"chatbridge/internal/provider/deepseek"
	"chatbridge/internal/provider/grok"
	"chatbridge/internal/provider/mistral"
	"chatbridge/internal/provider/openai"
	"chatbridge/internal/provider/perplexity"
	"chatbridge/internal/provider/workflow"
	"chatbridge/internal/secrets"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
	defaultRetryBackoff    = 500 * time.Millisecond
)

// ErrUnknownAgent indicates the agent identifier did not resolve.
var ErrUnknownAgent = errors.New("unknown agent")

// Factory holds only immutable collaborators and is safe for concurrent use.
type Factory struct {
	registry *provider.Registry
	agents   *agent.Catalog
	secrets  secrets.Store
	client   dispatch.Doer
	logger   *slog.Logger
	policy   config.DispatchConfig
}

// New wires a factory. A nil agents catalog means no agents; a nil client
// or logger falls back to defaults.
func New(registry *provider.Registry, agents *agent.Catalog, store secrets.Store, client dispatch.Doer, logger *slog.Logger, policy config.DispatchConfig) (*Factory, error) {
	if registry == nil {
		return nil, errors.New("registry must not be nil")
	}
	if store == nil {
		return nil, errors.New("secret store must not be nil")
	}
	if agents == nil {
		agents, _ = agent.NewCatalog()
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		registry: registry,
		agents:   agents,
		secrets:  store,
		client:   client,
		logger:   logger,
		policy:   policy,
	}, nil
}

// FromConfig builds the registry, secret chain and agent catalog described
// by cfg on top of the built-in defaults.
func FromConfig(cfg config.Config, logger *slog.Logger) (*Factory, error) {
	registry, err := Registry(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}

	store, err := SecretStore(cfg.Secrets)
	if err != nil {
		return nil, err
	}

	configured, err := agent.FromConfig(cfg.Agents)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	agents, err := agent.NewCatalog(append(agent.DefaultAgents(), configured...)...)
	if err != nil {
		return nil, fmt.Errorf("build agent catalog: %w", err)
	}

	return New(registry, agents, store, NewHTTPClient(0), logger, cfg.Dispatch)
}

// Registry applies overrides to the built-in provider entries.
func Registry(overrides map[string]config.ProviderConfig) (*provider.Registry, error) {
	byType := make(map[provider.Type]config.ProviderConfig, len(overrides))
	for name, o := range overrides {
		t, ok := provider.ParseType(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", provider.ErrUnknownProvider, name)
		}
		byType[t] = o
	}

	defaults := provider.Defaults()
	for i, base := range defaults {
		o, ok := byType[base.Type]
		if !ok {
			continue
		}
		defaults[i] = applyOverride(base, o)
	}
	return provider.NewRegistry(defaults...)
}

func applyOverride(c provider.Configuration, o config.ProviderConfig) provider.Configuration {
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if len(o.Models) > 0 {
		c.SupportedModels = slices.Clone(o.Models)
		if !slices.Contains(c.SupportedModels, c.DefaultModel) {
			c.DefaultModel = ""
		}
	}
	if o.DefaultModel != "" {
		c.DefaultModel = o.DefaultModel
	}
	if o.AuthHeader != "" {
		c.AuthHeaderName = o.AuthHeader
	}
	if o.AuthPrefix != nil {
		c.AuthHeaderPrefix = *o.AuthPrefix
	}
	if o.APIVersion != "" {
		c.APIVersion = o.APIVersion
	}
	if len(o.Headers) > 0 {
		headers := maps.Clone(c.Headers)
		if headers == nil {
			headers = make(map[string]string, len(o.Headers))
		}
		maps.Copy(headers, o.Headers)
		c.Headers = headers
	}
	return c
}

// SecretStore chains inline keys before the environment and env file.
func SecretStore(cfg config.SecretsConfig) (secrets.Store, error) {
	var files []string
	if cfg.EnvFile != "" {
		files = append(files, cfg.EnvFile)
	}
	env, err := secrets.NewEnvStore(files...)
	if err != nil {
		return nil, err
	}
	return secrets.Chain{secrets.NewMemoryStore(cfg.Keys), env}, nil
}

// CodecFor selects the wire codec for t.
func CodecFor(t provider.Type) (provider.Codec, error) {
	switch t {
	case provider.TypeOpenAI:
		return openai.New(), nil
	case provider.TypeAnthropic:
		return anthropic.New(), nil
	case provider.TypeMistral:
		return mistral.New(), nil
	case provider.TypePerplexity:
		return perplexity.New(), nil
	case provider.TypeGrok:
		return grok.New(), nil
	case provider.TypeDeepSeek:
		return deepseek.New(), nil
	case provider.TypeWorkflow:
		return workflow.New(), nil
	default:
		return nil, fmt.Errorf("%w: no codec for %q", provider.ErrUnknownProvider, t)
	}
}

func (f *Factory) Registry() *provider.Registry {
	return f.registry
}

func (f *Factory) Agents() *agent.Catalog {
	return f.agents
}

// ForProvider builds a service for a provider type, alias or display name.
func (f *Factory) ForProvider(id string, options ...dispatch.Option) (*dispatch.Service, error) {
	cfg, err := f.registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	return f.build(cfg, append(f.policyOptions(f.policy.Timeout, f.policy.RetryAttempts), options...)...)
}

// ForModel builds a service for the provider that serves model.
func (f *Factory) ForModel(model string, options ...dispatch.Option) (*dispatch.Service, error) {
	cfg, err := f.registry.LookupModel(model)
	if err != nil {
		return nil, err
	}
	return f.build(cfg, append(f.policyOptions(f.policy.Timeout, f.policy.RetryAttempts), options...)...)
}

// ForAgent builds a service for the agent's provider. The agent's timeout
// and retry attempts are installed as dispatch hooks and its parameters
// become the SendMessage defaults.
func (f *Factory) ForAgent(id string) (*dispatch.Service, agent.Configuration, error) {
	a, ok := f.agents.Get(id)
	if !ok {
		return nil, agent.Configuration{}, fmt.Errorf("%w: %s", ErrUnknownAgent, id)
	}
	cfg, ok := f.registry.Get(a.Provider)
	if !ok {
		return nil, agent.Configuration{}, fmt.Errorf("agent %s: %w: %s", a.ID, provider.ErrUnknownProvider, a.Provider)
	}

	options := f.policyOptions(a.Parameters.Timeout, a.Parameters.RetryAttempts)
	options = append(options, dispatch.WithDefaultParameters(a.Parameters.RequestParameters()))
	svc, err := f.build(cfg, options...)
	if err != nil {
		return nil, agent.Configuration{}, err
	}
	return svc, a, nil
}

// IsAvailable reports whether a provider resolves and has an API key. Any
// error counts as unavailable.
func (f *Factory) IsAvailable(ctx context.Context, id string) bool {
	svc, err := f.ForProvider(id)
	if err != nil {
		return false
	}
	ok, err := svc.ValidateConfiguration(ctx)
	return err == nil && ok
}

func (f *Factory) SupportedModels(id string) ([]string, error) {
	cfg, err := f.registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	return cfg.SupportedModels, nil
}

func (f *Factory) build(cfg provider.Configuration, options ...dispatch.Option) (*dispatch.Service, error) {
	codec, err := CodecFor(cfg.Type)
	if err != nil {
		return nil, err
	}
	base := []dispatch.Option{
		dispatch.WithHTTPClient(f.client),
		dispatch.WithLogger(f.logger),
	}
	return dispatch.New(cfg, codec, codec, f.secrets, append(base, options...)...)
}

func (f *Factory) policyOptions(timeout time.Duration, retries int) []dispatch.Option {
	var options []dispatch.Option
	if timeout > 0 {
		options = append(options, dispatch.WithTimeout(timeout))
	}
	if retries > 0 {
		backoff := f.policy.RetryBackoff
		if backoff <= 0 {
			backoff = defaultRetryBackoff
		}
		options = append(options, dispatch.WithRetry(dispatch.NewRetryPolicy(retries, backoff)))
	}
	return options
}

// NewHTTPClient returns a client with tuned transport timeouts. A zero
// timeout leaves the deadline to the request context, which is what the
// factory uses so dispatch.WithTimeout is the only overall limit.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
