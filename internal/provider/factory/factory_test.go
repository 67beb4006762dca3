package factory

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"chatbridge/internal/config"
	"chatbridge/internal/models"
	"chatbridge/internal/provider"
)

func newUpstream(t *testing.T, bodies chan<- []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if bodies != nil {
			bodies <- body
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"gpt-4o","choices":[{"message":{"content":"pong"}}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.Secrets.Keys = map[string]string{"openai": "sk-test"}
	cfg.Providers = map[string]config.ProviderConfig{
		"openai": {BaseURL: baseURL},
	}
	return cfg
}

func TestRegistryOverrides(t *testing.T) {
	empty := ""
	reg, err := Registry(map[string]config.ProviderConfig{
		"n8n": {
			BaseURL:    "https://hooks.example.com/chat",
			Models:     []string{"summary-workflow", "blog-workflow"},
			AuthHeader: "X-Webhook-Token",
			AuthPrefix: &empty,
		},
		"openai": {
			Models:  []string{"gpt-4.1", "gpt-4.1-mini"},
			Headers: config.Headers{"OpenAI-Organization": "org-1"},
		},
	})
	require.NoError(t, err)

	wf, ok := reg.Get(provider.TypeWorkflow)
	require.True(t, ok)
	assert.Equal(t, "https://hooks.example.com/chat", wf.BaseURL)
	assert.Equal(t, "X-Webhook-Token", wf.AuthHeaderName)
	assert.Equal(t, "tok", wf.AuthorizationValue("tok"))
	assert.Equal(t, "blog-workflow", wf.DefaultModel)

	oa, ok := reg.Get(provider.TypeOpenAI)
	require.True(t, ok)
	assert.Equal(t, "gpt-4.1", oa.DefaultModel)
	assert.Equal(t, "org-1", oa.Headers["OpenAI-Organization"])

	_, err = Registry(map[string]config.ProviderConfig{"acme": {}})
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestCodecForEveryType(t *testing.T) {
	for _, typ := range provider.Types() {
		codec, err := CodecFor(typ)
		require.NoError(t, err, typ)
		assert.NotNil(t, codec)
	}
	_, err := CodecFor("acme")
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestForProviderSends(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := newUpstream(t, bodies)

	f, err := FromConfig(testConfig(srv.URL), nil)
	require.NoError(t, err)

	for _, id := range []string{"openai", "OpenAI", " OPENAI "} {
		svc, err := f.ForProvider(id)
		require.NoError(t, err, id)
		assert.Equal(t, "OpenAI", svc.ProviderName())
	}

	svc, err := f.ForProvider("openai")
	require.NoError(t, err)
	text, err := svc.SendMessage(context.Background(), "ping", "")
	require.NoError(t, err)
	assert.Equal(t, "pong", text)
	assert.Equal(t, "ping", gjson.GetBytes(<-bodies, "messages.0.content").String())

	_, err = f.ForProvider("acme")
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestForModel(t *testing.T) {
	f, err := FromConfig(testConfig("http://127.0.0.1:0"), nil)
	require.NoError(t, err)

	svc, err := f.ForModel("claude-3-5-haiku-20241022")
	require.NoError(t, err)
	assert.Equal(t, "Anthropic", svc.ProviderName())

	_, err = f.ForModel("unknown-model")
	assert.ErrorIs(t, err, provider.ErrUnknownModel)
}

func TestForAgentAppliesParameters(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := newUpstream(t, bodies)

	cfg := testConfig(srv.URL)
	cfg.Agents = []config.AgentConfig{{
		ID:            "reviewer",
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		SystemPrompt:  "Review Go code.",
		Temperature:   models.Ptr(0.1),
		MaxTokens:     models.Ptr(256),
		Timeout:       5 * time.Second,
		RetryAttempts: models.Ptr(0),
	}}
	f, err := FromConfig(cfg, nil)
	require.NoError(t, err)

	svc, a, err := f.ForAgent("reviewer")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", a.Model)

	req, err := a.BuildRequest("func main() {}", nil)
	require.NoError(t, err)
	resp, err := svc.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Content)

	body := <-bodies
	assert.Equal(t, "system", gjson.GetBytes(body, "messages.0.role").String())
	assert.Equal(t, 0.1, gjson.GetBytes(body, "temperature").Float())
	assert.Equal(t, int64(256), gjson.GetBytes(body, "max_tokens").Int())

	_, _, err = f.ForAgent("ghost")
	assert.ErrorIs(t, err, ErrUnknownAgent)

	_, _, err = f.ForAgent("coder")
	assert.NoError(t, err)
}

func TestIsAvailable(t *testing.T) {
	t.Setenv("GROK_API_KEY", "")

	f, err := FromConfig(testConfig("http://127.0.0.1:0"), nil)
	require.NoError(t, err)

	assert.True(t, f.IsAvailable(context.Background(), "openai"))
	assert.False(t, f.IsAvailable(context.Background(), "grok"))
	assert.False(t, f.IsAvailable(context.Background(), "acme"))
}

func TestSupportedModels(t *testing.T) {
	f, err := FromConfig(testConfig("http://127.0.0.1:0"), nil)
	require.NoError(t, err)

	got, err := f.SupportedModels("xai")
	require.NoError(t, err)
	assert.Contains(t, got, "grok-2-1212")

	_, err = f.SupportedModels("acme")
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(5 * time.Second)
	assert.Equal(t, 5*time.Second, c.Timeout)
	require.IsType(t, &http.Transport{}, c.Transport)
	assert.True(t, c.Transport.(*http.Transport).ForceAttemptHTTP2)
}

func TestFromConfigLeavesDeadlineToContext(t *testing.T) {
	cfg := config.Default()
	cfg.Dispatch.Timeout = 5 * time.Minute

	f, err := FromConfig(cfg, nil)
	require.NoError(t, err)

	client, ok := f.client.(*http.Client)
	require.True(t, ok)
	assert.Zero(t, client.Timeout)
}
