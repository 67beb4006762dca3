package translator

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbridge/internal/models"
)

func TestChatRequestToUnified(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"provider": " mistral ",
		"model": "mistral-small-2506",
		"messages": [
			{"role": "system", "content": "Be terse."},
			{"role": "user", "content": [{"type": "text", "text": "Hel"}, {"type": "text", "text": "lo"}]}
		],
		"temperature": 0.3,
		"max_tokens": 64,
		"stop": "END",
		"seed": 7,
		"parameters": {"safe_prompt": true}
	}`), &req))

	assert.Equal(t, "mistral", req.Provider)

	unified, err := req.ToUnified()
	require.NoError(t, err)
	assert.Equal(t, "mistral-small-2506", unified.Model)
	assert.Equal(t, []models.Message{
		{Role: models.RoleSystem, Content: "Be terse."},
		{Role: models.RoleUser, Content: "Hello"},
	}, unified.Messages)
	assert.Equal(t, 0.3, *unified.Parameters.Temperature)
	assert.Equal(t, 64, *unified.Parameters.MaxTokens)
	assert.Equal(t, []string{"END"}, unified.Parameters.Extras["stop"])
	assert.Equal(t, 7, unified.Parameters.Extras["seed"])
	assert.Equal(t, true, unified.Parameters.Extras["safe_prompt"])
}

func TestChatRequestRejects(t *testing.T) {
	for name, body := range map[string]string{
		"no messages":   `{"model":"gpt-4o","messages":[]}`,
		"tool role":     `{"messages":[{"role":"tool","content":"x"}]}`,
		"empty content": `{"messages":[{"role":"user","content":"  "}]}`,
		"image segment": `{"messages":[{"role":"user","content":[{"type":"image_url","image_url":{}}]}]}`,
		"blank stop":    `{"messages":[{"role":"user","content":"x"}],"stop":""}`,
		"not an object": `[1]`,
	} {
		t.Run(name, func(t *testing.T) {
			var req ChatRequest
			assert.Error(t, json.Unmarshal([]byte(body), &req))
		})
	}
}

func TestChatRequestParameterRangeIsNotClamped(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"messages":[{"role":"user","content":"x"}],"temperature":3}`), &req))

	_, err := req.ToUnified()
	assert.ErrorIs(t, err, models.ErrInvalidTemperature)
}

func TestMessageRequest(t *testing.T) {
	var req MessageRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"message": "next",
		"model": " gpt-4o ",
		"history": [{"role":"user","content":"first"},{"role":"assistant","content":"reply"}]
	}`), &req))
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "reply"},
	}, req.HistoryMessages())

	assert.Error(t, json.Unmarshal([]byte(`{"message":""}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"message":"x","history":[{"role":"bot","content":"y"}]}`), &req))
}

func TestFromUnified(t *testing.T) {
	out := FromUnified("OpenAI", &models.UnifiedChatResponse{
		ID:      "chatcmpl-1",
		Content: "hi",
		Model:   "gpt-4o",
		Usage:   &models.TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
	})
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "chatcmpl-1",
		"provider": "OpenAI",
		"model": "gpt-4o",
		"content": "hi",
		"usage": {"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3}
	}`, string(data))
}
