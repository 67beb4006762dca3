package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"chatbridge/internal/config"
	"chatbridge/internal/provider/factory"
	"chatbridge/internal/router"
)

type fixture struct {
	handler  http.Handler
	upstream *httptest.Server
	status   int
	reply    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("GROK_API_KEY", "")

	fx := &fixture{
		status: http.StatusOK,
		reply:  `{"id":"chatcmpl-1","model":"gpt-4o","choices":[{"message":{"content":"hello back"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`,
	}
	fx.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fx.status)
		_, _ = io.WriteString(w, fx.reply)
	}))
	t.Cleanup(fx.upstream.Close)

	cfg := config.Default()
	cfg.Secrets.Keys = map[string]string{"openai": "sk-test"}
	cfg.Providers = map[string]config.ProviderConfig{
		"openai": {BaseURL: fx.upstream.URL},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f, err := factory.FromConfig(cfg, logger)
	require.NoError(t, err)
	srv, err := New(cfg, router.New(f), logger)
	require.NoError(t, err)
	fx.handler = srv.Handler()
	return fx
}

func (fx *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	fx := newFixture(t)
	rec := fx.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestChat(t *testing.T) {
	fx := newFixture(t)
	rec := fx.do(http.MethodPost, "/v1/chat", `{"model":"gpt-4o","messages":[{"role":"user","content":"hello"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.Bytes()
	assert.Equal(t, "OpenAI", gjson.GetBytes(body, "provider").String())
	assert.Equal(t, "hello back", gjson.GetBytes(body, "content").String())
	assert.Equal(t, int64(5), gjson.GetBytes(body, "usage.total_tokens").Int())
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "unsupported model", body: `{"model":"gpt-99","messages":[{"role":"user","content":"x"}]}`, status: http.StatusBadRequest, code: "unsupported_model"},
		{name: "missing key", body: `{"provider":"grok","messages":[{"role":"user","content":"x"}]}`, status: http.StatusServiceUnavailable, code: "missing_api_key"},
		{name: "unknown provider", body: `{"provider":"acme","messages":[{"role":"user","content":"x"}]}`, status: http.StatusNotFound},
		{name: "bad temperature", body: `{"model":"gpt-4o","temperature":5,"messages":[{"role":"user","content":"x"}]}`, status: http.StatusBadRequest},
		{name: "bad json", body: `{"model":`, status: http.StatusBadRequest},
		{name: "empty body", body: ``, status: http.StatusBadRequest},
		{name: "trailing data", body: `{"model":"gpt-4o","messages":[{"role":"user","content":"x"}]} {}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			rec := fx.do(http.MethodPost, "/v1/chat", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, gjson.Get(rec.Body.String(), "error.message").String())
			if tt.code != "" {
				assert.Equal(t, tt.code, gjson.Get(rec.Body.String(), "error.code").String())
			}
		})
	}
}

func TestUpstreamStatusMapping(t *testing.T) {
	tests := []struct {
		upstream int
		want     int
		code     string
	}{
		{upstream: http.StatusUnauthorized, want: http.StatusBadGateway, code: "authentication_failed"},
		{upstream: http.StatusTooManyRequests, want: http.StatusTooManyRequests, code: "rate_limit_exceeded"},
		{upstream: http.StatusServiceUnavailable, want: http.StatusBadGateway, code: "server_error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.upstream), func(t *testing.T) {
			fx := newFixture(t)
			fx.status = tt.upstream
			fx.reply = `{"error":{"message":"nope"}}`

			rec := fx.do(http.MethodPost, "/v1/providers/openai/messages", `{"message":"hi"}`)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.code, gjson.Get(rec.Body.String(), "error.code").String())
			assert.Contains(t, gjson.Get(rec.Body.String(), "error.message").String(), "nope")
		})
	}
}

func TestProviderMessage(t *testing.T) {
	fx := newFixture(t)
	rec := fx.do(http.MethodPost, "/v1/providers/OpenAI/messages", `{"message":"hi","model":"gpt-4o-mini"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"provider":"OpenAI","content":"hello back"}`, rec.Body.String())
}

func TestAgentMessage(t *testing.T) {
	fx := newFixture(t)
	rec := fx.do(http.MethodPost, "/v1/agents/coder/messages", `{"message":"review this","history":[{"role":"user","content":"earlier"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "coder", gjson.Get(rec.Body.String(), "agent").String())
	assert.Equal(t, "hello back", gjson.Get(rec.Body.String(), "content").String())

	rec = fx.do(http.MethodPost, "/v1/agents/ghost/messages", `{"message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProviders(t *testing.T) {
	fx := newFixture(t)
	rec := fx.do(http.MethodGet, "/v1/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	providers := gjson.Get(rec.Body.String(), "providers").Array()
	require.Len(t, providers, 7)
	assert.Equal(t, "openai", providers[0].Get("id").String())
	assert.True(t, providers[0].Get("available").Bool())

	rec = fx.do(http.MethodGet, "/v1/providers/grok/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gjson.Get(rec.Body.String(), "available").Bool())
	assert.Equal(t, "grok-2-1212", gjson.Get(rec.Body.String(), "default_model").String())

	rec = fx.do(http.MethodGet, "/v1/providers/acme/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	fx := newFixture(t)
	rec := fx.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "invalid_request_error", gjson.Get(rec.Body.String(), "error.type").String())
}
