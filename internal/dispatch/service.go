// Package dispatch sends unified chat requests to one provider over HTTP and
// maps every outcome onto the chaterr taxonomy.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fogfish/opts"

	"chatbridge/internal/chaterr"
	"chatbridge/internal/models"
	"chatbridge/internal/provider"
	"chatbridge/internal/provider/wire"
	"chatbridge/internal/secrets"
)

const maxResponseBytes = 8 << 20 // 8 MiB

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ChatService is the caller-facing surface of a provider.
type ChatService interface {
	Send(ctx context.Context, req models.UnifiedChatRequest) (*models.UnifiedChatResponse, error)
	SendMessage(ctx context.Context, text, model string) (string, error)
	ValidateConfiguration(ctx context.Context) (bool, error)
	SupportedModels() []string
	ProviderName() string
}

// Service dispatches requests for a single provider configuration. It holds
// no mutable state and is safe for concurrent use.
type Service struct {
	config      provider.Configuration
	transformer provider.Transformer
	parser      provider.Parser
	secrets     secrets.Store
	client      Doer
	logger      *slog.Logger
	timeout     time.Duration
	retry       RetryPolicy
	defaults    models.RequestParameters
}

var _ ChatService = (*Service)(nil)

// Option configures a Service.
type Option = opts.Option[Service]

var (
	// WithTimeout bounds each call, retries included. Zero disables it.
	WithTimeout = opts.ForName[Service, time.Duration]("timeout")
	WithLogger  = opts.ForName[Service, *slog.Logger]("logger")
)

// WithRetry installs a policy consulted after each failed attempt.
func WithRetry(p RetryPolicy) Option {
	return opts.Type[Service](func(s *Service) error {
		s.retry = p
		return nil
	})
}

func WithHTTPClient(c Doer) Option {
	return opts.Type[Service](func(s *Service) error {
		if c == nil {
			return errors.New("http client must not be nil")
		}
		s.client = c
		return nil
	})
}

// WithDefaultParameters replaces the parameters SendMessage uses.
func WithDefaultParameters(p models.RequestParameters) Option {
	return opts.Type[Service](func(s *Service) error {
		if err := p.Validate(); err != nil {
			return err
		}
		s.defaults = p
		return nil
	})
}

// New builds a Service. cfg is normalized and validated up front.
func New(cfg provider.Configuration, transformer provider.Transformer, parser provider.Parser, store secrets.Store, options ...Option) (*Service, error) {
	if transformer == nil || parser == nil {
		return nil, errors.New("transformer and parser must not be nil")
	}
	if store == nil {
		return nil, errors.New("secret store must not be nil")
	}

	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, chaterr.InvalidConfiguration(err)
	}

	s := &Service{
		config:      cfg,
		transformer: transformer,
		parser:      parser,
		secrets:     store,
		client:      &http.Client{},
		logger:      slog.Default(),
		defaults:    models.DefaultParameters(),
	}
	if err := opts.Apply(s, options); err != nil {
		return nil, fmt.Errorf("configure %s dispatch: %w", cfg.Name, err)
	}
	if s.timeout < 0 {
		return nil, fmt.Errorf("configure %s dispatch: %w", cfg.Name, models.ValidateTimeout(s.timeout))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("provider", cfg.Name)
	return s, nil
}

func (s *Service) ProviderName() string {
	return s.config.Name
}

func (s *Service) SupportedModels() []string {
	out := make([]string, len(s.config.SupportedModels))
	copy(out, s.config.SupportedModels)
	return out
}

// Configuration returns a copy of the provider entry this service targets.
func (s *Service) Configuration() provider.Configuration {
	return s.config
}

// ValidateConfiguration reports whether an API key is available. It performs
// no network I/O.
func (s *Service) ValidateConfiguration(context.Context) (bool, error) {
	if !s.secrets.HasAPIKey(s.config.SecretKey()) {
		return false, chaterr.MissingAPIKey(s.config.Name)
	}
	return true, nil
}

// SendMessage sends text as a single user turn with the default parameters
// and returns the reply text. An empty model selects the provider default.
func (s *Service) SendMessage(ctx context.Context, text, model string) (string, error) {
	if model == "" {
		model = s.config.DefaultModel
	}
	if !s.config.Supports(model) {
		return "", chaterr.UnsupportedModel(model)
	}

	params := s.defaults
	params.Extras = nil
	resp, err := s.Send(ctx, models.UnifiedChatRequest{
		Model:      model,
		Messages:   []models.Message{{Role: models.RoleUser, Content: text}},
		Parameters: params,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Send runs one request through model check, key lookup, serialization,
// HTTP exchange, status classification and parsing. The first failure is
// returned and later steps do not run.
func (s *Service) Send(ctx context.Context, req models.UnifiedChatRequest) (*models.UnifiedChatResponse, error) {
	model := req.Model
	if model == "" {
		model = s.config.DefaultModel
	}
	if !s.config.Supports(model) {
		return nil, chaterr.UnsupportedModel(model)
	}

	apiKey, ok := s.secrets.GetAPIKey(s.config.SecretKey())
	if !ok {
		return nil, chaterr.MissingAPIKey(s.config.Name)
	}

	req.Model = model
	if err := req.Parameters.Validate(); err != nil {
		return nil, chaterr.InvalidConfiguration(err)
	}
	body, err := s.transformer.Serialize(req)
	if err != nil {
		return nil, chaterr.InvalidConfiguration(err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		s.logger.DebugContext(ctx, "dispatching request", "model", model, "attempt", attempt, "bytes", len(body))
		start := time.Now()

		resp, err := s.exchange(ctx, body, apiKey)
		if err == nil {
			if resp.Model == "" {
				resp.Model = model
			}
			s.logger.DebugContext(ctx, "request completed", "model", model, "attempt", attempt, "latency_ms", time.Since(start).Milliseconds())
			return resp, nil
		}

		kind, _ := chaterr.KindOf(err)
		s.logger.WarnContext(ctx, "request failed", "model", model, "attempt", attempt, "kind", kind.String(), "err", err)

		if s.retry == nil || ctx.Err() != nil {
			return nil, err
		}
		wait, again := s.retry.Backoff(attempt, err)
		if !again {
			return nil, err
		}
		if werr := sleep(ctx, wait); werr != nil {
			return nil, chaterr.NetworkError(werr)
		}
	}
}

func (s *Service) exchange(ctx context.Context, body []byte, apiKey string) (*models.UnifiedChatResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, chaterr.InvalidConfiguration(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(s.config.AuthHeaderName, s.config.AuthorizationValue(apiKey))
	if s.config.APIVersion != "" {
		httpReq.Header.Set(s.config.APIVersionHeader, s.config.APIVersion)
	}
	for k, v := range s.config.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, chaterr.NetworkError(err)
	}
	if httpResp == nil {
		return nil, chaterr.InvalidResponse(errors.New("transport returned no response"))
	}
	defer httpResp.Body.Close()

	// The status decides the kind; an unreadable error body only loses the
	// upstream detail.
	if err := Classify(httpResp.StatusCode); err != nil {
		var e *chaterr.Error
		if errors.As(err, &e) {
			if data, readErr := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes)); readErr == nil {
				e.Upstream = wire.ErrorMessage(data)
			}
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, chaterr.NetworkError(fmt.Errorf("read response body: %w", err))
	}

	resp, err := s.parser.Deserialize(data)
	if err != nil {
		return nil, chaterr.InvalidResponse(err)
	}
	if resp == nil {
		return nil, chaterr.InvalidResponse(errors.New("parser returned no response"))
	}
	return resp, nil
}

// Classify maps an HTTP status code onto the error taxonomy. 2xx is success.
func Classify(status int) error {
	var err *chaterr.Error
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusUnauthorized:
		err = chaterr.AuthenticationFailed()
	case status == http.StatusTooManyRequests:
		err = chaterr.RateLimitExceeded()
	case status >= 500 && status <= 599:
		err = chaterr.ServerError(fmt.Sprintf("Server error: %d", status))
	default:
		err = chaterr.ServerError(fmt.Sprintf("HTTP error: %d", status))
	}
	err.StatusCode = status
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
