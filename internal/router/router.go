package router

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"chatbridge/internal/agent"
	"chatbridge/internal/chaterr"
	"chatbridge/internal/dispatch"
	"chatbridge/internal/models"
	"chatbridge/internal/provider"
	"chatbridge/internal/provider/factory"
)

// Router picks the dispatch service for a request.
type Router struct {
	factory *factory.Factory
}

// New constructs a router backed by the provided factory.
func New(f *factory.Factory) *Router {
	return &Router{
		factory: f,
	}
}

// Chat sends req to providerID. With an empty providerID the provider that
// serves req.Model is used; an unknown model fails as unsupported before any
// network I/O.
func (r *Router) Chat(ctx context.Context, providerID string, req models.UnifiedChatRequest) (*models.UnifiedChatResponse, string, error) {
	var (
		svc *dispatch.Service
		err error
	)
	if providerID == "" {
		if req.Model == "" {
			return nil, "", chaterr.UnsupportedModel("")
		}
		svc, err = r.factory.ForModel(req.Model)
		if errors.Is(err, provider.ErrUnknownModel) {
			return nil, "", chaterr.UnsupportedModel(req.Model)
		}
	} else {
		svc, err = r.factory.ForProvider(providerID)
	}
	if err != nil {
		return nil, "", err
	}

	sanitisedReq := req
	sanitisedReq.Messages = append([]models.Message(nil), req.Messages...)
	sanitisedReq.Parameters.Extras = cloneOptions(req.Parameters.Extras)

	resp, err := svc.Send(ctx, sanitisedReq)
	if err != nil {
		return nil, svc.ProviderName(), fmt.Errorf("provider %s chat request: %w", svc.ProviderName(), err)
	}
	return resp, svc.ProviderName(), nil
}

// Message sends text as a single user turn with the provider defaults.
func (r *Router) Message(ctx context.Context, providerID, text, model string) (string, string, error) {
	svc, err := r.factory.ForProvider(providerID)
	if err != nil {
		return "", "", err
	}
	reply, err := svc.SendMessage(ctx, text, model)
	if err != nil {
		return "", svc.ProviderName(), fmt.Errorf("provider %s message: %w", svc.ProviderName(), err)
	}
	return reply, svc.ProviderName(), nil
}

// Agent sends text through an agent, replaying history as its memory
// settings allow.
func (r *Router) Agent(ctx context.Context, agentID, text string, history []models.Message) (*models.UnifiedChatResponse, agent.Configuration, error) {
	svc, a, err := r.factory.ForAgent(agentID)
	if err != nil {
		return nil, agent.Configuration{}, err
	}
	req, err := a.BuildRequest(text, history)
	if err != nil {
		return nil, a, err
	}
	resp, err := svc.Send(ctx, req)
	if err != nil {
		return nil, a, fmt.Errorf("agent %s chat request: %w", a.ID, err)
	}
	return resp, a, nil
}

// Providers lists every registered provider with its availability.
func (r *Router) Providers(ctx context.Context) []Status {
	configs := r.factory.Registry().All()
	out := make([]Status, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, r.status(ctx, cfg))
	}
	return out
}

// Provider returns the status of a single provider.
func (r *Router) Provider(ctx context.Context, id string) (Status, error) {
	cfg, err := r.factory.Registry().Lookup(id)
	if err != nil {
		return Status{}, err
	}
	return r.status(ctx, cfg), nil
}

// Status describes a provider as exposed to callers.
type Status struct {
	Type            provider.Type
	Name            string
	DefaultModel    string
	SupportedModels []string
	Available       bool
}

func (r *Router) status(ctx context.Context, cfg provider.Configuration) Status {
	return Status{
		Type:            cfg.Type,
		Name:            cfg.Name,
		DefaultModel:    cfg.DefaultModel,
		SupportedModels: cfg.SupportedModels,
		Available:       r.factory.IsAvailable(ctx, string(cfg.Type)),
	}
}

func cloneOptions(options map[string]any) map[string]any {
	if len(options) == 0 {
		return nil
	}
	return maps.Clone(options)
}
