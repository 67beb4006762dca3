package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"chatbridge/internal/agent"
	"chatbridge/internal/chaterr"
	"chatbridge/internal/config"
	"chatbridge/internal/models"
	"chatbridge/internal/provider"
	"chatbridge/internal/provider/factory"
	"chatbridge/internal/router"
	"chatbridge/internal/translator"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 3 * time.Minute
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg     config.Config
	router  *router.Router
	logger  *slog.Logger
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, rt *router.Router, logger *slog.Logger) (*Server, error) {
	if rt == nil {
		return nil, errors.New("router must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = errorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"request_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:     cfg,
		router:  rt,
		logger:  logger,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed echo instance.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	s.logger.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/v1/providers", s.handleListProviders)
	s.app.GET("/v1/providers/:provider/status", s.handleProviderStatus)
	s.app.POST("/v1/chat", s.handleChat)
	s.app.POST("/v1/providers/:provider/messages", s.handleProviderMessage)
	s.app.POST("/v1/agents/:agent/messages", s.handleAgentMessage)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListProviders(c echo.Context) error {
	statuses := s.router.Providers(c.Request().Context())
	out := make([]translator.ProviderInfo, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, providerInfo(st))
	}
	return c.JSON(http.StatusOK, map[string]any{"providers": out})
}

func (s *Server) handleProviderStatus(c echo.Context) error {
	st, err := s.router.Provider(c.Request().Context(), c.Param("provider"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, providerInfo(st))
}

func (s *Server) handleChat(c echo.Context) error {
	var req translator.ChatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	unifiedReq, err := req.ToUnified()
	if err != nil {
		return toHTTPError(err)
	}
	unifiedReq.Parameters.Stream = false

	resp, providerName, err := s.router.Chat(c.Request().Context(), req.Provider, unifiedReq)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, translator.FromUnified(providerName, resp))
}

func (s *Server) handleProviderMessage(c echo.Context) error {
	var req translator.MessageRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	reply, providerName, err := s.router.Message(c.Request().Context(), c.Param("provider"), req.Message, req.Model)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, translator.MessageResponse{Provider: providerName, Content: reply})
}

func (s *Server) handleAgentMessage(c echo.Context) error {
	var req translator.MessageRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	resp, a, err := s.router.Agent(c.Request().Context(), c.Param("agent"), req.Message, req.HistoryMessages())
	if err != nil {
		return toHTTPError(err)
	}
	out := translator.FromUnified(a.Provider.DisplayName(), resp)
	out.Agent = a.ID
	return c.JSON(http.StatusOK, out)
}

func providerInfo(st router.Status) translator.ProviderInfo {
	return translator.ProviderInfo{
		ID:              string(st.Type),
		Name:            st.Name,
		DefaultModel:    st.DefaultModel,
		SupportedModels: st.SupportedModels,
		Available:       st.Available,
	}
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("chatbridge ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /v1/providers")
	fmt.Println("  GET  /v1/providers/:provider/status")
	fmt.Println("  POST /v1/chat")
	fmt.Println("  POST /v1/providers/:provider/messages")
	fmt.Println("  POST /v1/agents/:agent/messages")
	fmt.Printf("Example:\n  curl http://%s:%d/v1/chat -H 'Content-Type: application/json' -d '{\"model\":\"gpt-4o\",\"messages\":[{\"role\":\"user\",\"content\":\"hello\"}]}'\n\n", host, port)
}

// statusFor maps an error onto an HTTP status, error type and code.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, provider.ErrUnknownProvider), errors.Is(err, factory.ErrUnknownAgent):
		return http.StatusNotFound, "not_found_error", ""
	case isValidationError(err):
		return http.StatusBadRequest, "invalid_request_error", ""
	}

	kind, ok := chaterr.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, "server_error", ""
	}
	code := kind.String()
	switch kind {
	case chaterr.KindUnsupportedModel, chaterr.KindInvalidSessionID:
		return http.StatusBadRequest, "invalid_request_error", code
	case chaterr.KindMissingAPIKey:
		return http.StatusServiceUnavailable, "provider_unavailable", code
	case chaterr.KindInvalidConfiguration:
		if errors.Is(err, chaterr.ErrSerialization) {
			return http.StatusBadRequest, "invalid_request_error", code
		}
		return http.StatusInternalServerError, "server_error", code
	case chaterr.KindRateLimitExceeded:
		return http.StatusTooManyRequests, "rate_limit_error", code
	case chaterr.KindNetworkError:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "upstream_error", code
		}
		return http.StatusBadGateway, "upstream_error", code
	default:
		return http.StatusBadGateway, "upstream_error", code
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		models.ErrEmptyMessages,
		models.ErrInvalidRole,
		models.ErrInvalidTemperature,
		models.ErrInvalidMaxTokens,
		models.ErrInvalidTopP,
		agent.ErrInvalidName,
		agent.ErrInvalidModel,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
