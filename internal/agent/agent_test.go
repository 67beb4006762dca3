package agent

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbridge/internal/config"
	"chatbridge/internal/models"
	"chatbridge/internal/provider"
	"chatbridge/internal/provider/anthropic"
)

func validAgent() Configuration {
	return Configuration{
		ID:            "helper",
		Name:          "Helper",
		Provider:      provider.TypeOpenAI,
		Model:         "gpt-4o",
		SystemPrompt:  "Be brief.",
		Parameters:    DefaultParameters(),
		MemoryEnabled: true,
		ContextWindow: 2,
	}
}

func TestParametersValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Parameters)
		want   error
	}{
		{name: "defaults", mutate: func(*Parameters) {}},
		{name: "temperature upper bound", mutate: func(p *Parameters) { p.Temperature = 2 }},
		{name: "temperature too high", mutate: func(p *Parameters) { p.Temperature = 2.01 }, want: models.ErrInvalidTemperature},
		{name: "temperature negative", mutate: func(p *Parameters) { p.Temperature = -0.1 }, want: models.ErrInvalidTemperature},
		{name: "temperature NaN", mutate: func(p *Parameters) { p.Temperature = math.NaN() }, want: models.ErrInvalidTemperature},
		{name: "top_p NaN", mutate: func(p *Parameters) { p.TopP = models.Ptr(math.NaN()) }, want: models.ErrInvalidTopP},
		{name: "zero max tokens", mutate: func(p *Parameters) { p.MaxTokens = models.Ptr(0) }, want: models.ErrInvalidMaxTokens},
		{name: "zero timeout", mutate: func(p *Parameters) { p.Timeout = 0 }, want: models.ErrInvalidTimeout},
		{name: "negative retries", mutate: func(p *Parameters) { p.RetryAttempts = -1 }, want: models.ErrInvalidRetryAttempts},
		{name: "zero retries", mutate: func(p *Parameters) { p.RetryAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mutate(&p)
			err := p.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfigurationValidate(t *testing.T) {
	a := validAgent()
	require.NoError(t, a.Validate())

	a.Name = " "
	assert.ErrorIs(t, a.Validate(), ErrInvalidName)

	a = validAgent()
	a.Model = ""
	assert.ErrorIs(t, a.Validate(), ErrInvalidModel)

	a = validAgent()
	a.Provider = "claude"
	assert.ErrorIs(t, a.Validate(), ErrInvalidProvider)
}

func TestBuildRequestOrdersSystemPromptFirst(t *testing.T) {
	a := validAgent()
	history := []models.Message{
		{Role: models.RoleUser, Content: "one"},
		{Role: models.RoleAssistant, Content: "two"},
		{Role: models.RoleUser, Content: "three"},
	}

	req, err := a.BuildRequest("four", history)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, []models.Message{
		{Role: models.RoleSystem, Content: "Be brief."},
		{Role: models.RoleUser, Content: "three"},
		{Role: models.RoleUser, Content: "four"},
	}, req.Messages)
	require.NotNil(t, req.Parameters.Temperature)
	assert.Equal(t, 0.7, *req.Parameters.Temperature)
}

func TestBuildRequestWindowOpensOnUserTurn(t *testing.T) {
	creative, ok := mustCatalog(t).Get("creative")
	require.True(t, ok)
	require.Equal(t, provider.TypeAnthropic, creative.Provider)

	var history []models.Message
	for i := range creative.ContextWindow + 1 {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		history = append(history, models.Message{Role: role, Content: "turn"})
	}

	req, err := creative.BuildRequest("next", history)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, models.RoleUser, req.Messages[1].Role)

	_, err = anthropic.New().Serialize(req)
	assert.NoError(t, err)
}

func TestBuildRequestSkipsAssistantOnlyHistory(t *testing.T) {
	a := validAgent()
	a.SystemPrompt = ""

	req, err := a.BuildRequest("hi", []models.Message{{Role: models.RoleAssistant, Content: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, []models.Message{{Role: models.RoleUser, Content: "hi"}}, req.Messages)
}

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(DefaultAgents()...)
	require.NoError(t, err)
	return catalog
}

func TestBuildRequestWithoutMemory(t *testing.T) {
	a := validAgent()
	a.MemoryEnabled = false
	a.SystemPrompt = ""

	req, err := a.BuildRequest("hi", []models.Message{{Role: models.RoleUser, Content: "old"}})
	require.NoError(t, err)
	assert.Equal(t, []models.Message{{Role: models.RoleUser, Content: "hi"}}, req.Messages)
}

func TestRequestParametersCarryPenalties(t *testing.T) {
	p := DefaultParameters()
	p.FrequencyPenalty = models.Ptr(0.5)
	p.StopSequences = []string{"END"}

	rp := p.RequestParameters()
	assert.Equal(t, 0.5, rp.Extras["frequency_penalty"])
	assert.Equal(t, []string{"END"}, rp.Extras["stop"])
	assert.NotContains(t, rp.Extras, "presence_penalty")

	assert.Nil(t, DefaultParameters().RequestParameters().Extras)
}

func TestDefaultAgentsAreValid(t *testing.T) {
	catalog, err := NewCatalog(DefaultAgents()...)
	require.NoError(t, err)
	require.Len(t, catalog.All(), 5)

	coder, ok := catalog.Get("CODER")
	require.True(t, ok)
	assert.Equal(t, provider.TypeOpenAI, coder.Provider)
	assert.Equal(t, "gpt-4o", coder.Model)
	assert.Equal(t, 0.3, coder.Parameters.Temperature)

	creative, ok := catalog.Get("creative")
	require.True(t, ok)
	assert.Equal(t, "claude-3-5-sonnet-20241022", creative.Model)
}

func TestCatalogOverridesByID(t *testing.T) {
	override := validAgent()
	override.ID = "Assistant"
	override.Name = "Custom Assistant"

	catalog, err := NewCatalog(append(DefaultAgents(), override)...)
	require.NoError(t, err)

	all := catalog.All()
	require.Len(t, all, 5)
	assert.Equal(t, "assistant", all[0].ID)
	assert.Equal(t, "Custom Assistant", all[0].Name)
}

func TestCatalogRejectsInvalid(t *testing.T) {
	a := validAgent()
	a.ID = ""
	_, err := NewCatalog(a)
	assert.Error(t, err)

	a = validAgent()
	a.Parameters.Temperature = 3
	_, err = NewCatalog(a)
	assert.ErrorIs(t, err, models.ErrInvalidTemperature)
}

func TestFromConfig(t *testing.T) {
	agents, err := FromConfig([]config.AgentConfig{
		{ID: "writer", Provider: "n8n", Timeout: 45 * time.Second},
		{ID: "reviewer", Name: "Reviewer", Provider: "Claude", Temperature: models.Ptr(0.2), MaxTokens: models.Ptr(1024), RetryAttempts: models.Ptr(0)},
	})
	require.NoError(t, err)
	require.Len(t, agents, 2)

	writer := agents[0]
	assert.Equal(t, "writer", writer.Name)
	assert.Equal(t, provider.TypeWorkflow, writer.Provider)
	assert.Equal(t, "blog-workflow", writer.Model)
	assert.Equal(t, 45*time.Second, writer.Parameters.Timeout)
	assert.Equal(t, 3, writer.Parameters.RetryAttempts)

	reviewer := agents[1]
	assert.Equal(t, provider.TypeAnthropic, reviewer.Provider)
	assert.Equal(t, 0.2, reviewer.Parameters.Temperature)
	assert.Equal(t, 0, reviewer.Parameters.RetryAttempts)
	require.NotNil(t, writer.Parameters.MaxTokens)
	assert.Equal(t, 2000, *writer.Parameters.MaxTokens)
	assert.Equal(t, 1024, *reviewer.Parameters.MaxTokens)

	_, err = FromConfig([]config.AgentConfig{{ID: "x", Provider: "acme"}})
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestFromConfigAnthropicWithoutMaxTokens(t *testing.T) {
	agents, err := FromConfig([]config.AgentConfig{{ID: "writer", Provider: "claude"}})
	require.NoError(t, err)
	require.Len(t, agents, 1)

	req, err := agents[0].BuildRequest("draft a haiku", nil)
	require.NoError(t, err)
	_, err = anthropic.New().Serialize(req)
	assert.NoError(t, err)
}
