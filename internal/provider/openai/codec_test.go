package openai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"chatbridge/internal/chaterr"
	"chatbridge/internal/models"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestSerializeMatchesGolden(t *testing.T) {
	req := models.UnifiedChatRequest{
		Model: "gpt-4o",
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: "You are terse."},
			{Role: models.RoleUser, Content: "hello"},
		},
		Parameters: models.RequestParameters{
			Temperature: models.Ptr(0.7),
			MaxTokens:   models.Ptr(256),
			TopP:        models.Ptr(0.9),
			Extras: map[string]any{
				"frequency_penalty": 0.5,
				"stop":              []string{"END"},
				"logprobs":          true,
			},
		},
	}

	body, err := New().Serialize(req)
	require.NoError(t, err)
	assert.JSONEq(t, string(readFixture(t, "request.golden.json")), string(body))
}

func TestSerializeOmitsUnsetOptionalFields(t *testing.T) {
	body, err := New().Serialize(models.UnifiedChatRequest{
		Model:    "gpt-4o",
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	for _, key := range []string{"max_tokens", "temperature", "top_p", "stop"} {
		assert.False(t, gjson.GetBytes(body, key).Exists(), key)
	}
}

func TestSerializeRejectsInvalidRequests(t *testing.T) {
	_, err := New().Serialize(models.UnifiedChatRequest{Model: "gpt-4o"})
	assert.ErrorIs(t, err, chaterr.ErrSerialization)

	_, err = New().Serialize(models.UnifiedChatRequest{
		Model:    "gpt-4o",
		Messages: []models.Message{{Role: "tool", Content: "x"}},
	})
	assert.ErrorIs(t, err, chaterr.ErrSerialization)
}

func TestDeserialize(t *testing.T) {
	resp, err := New().Deserialize(readFixture(t, "response.json"))
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I help?", resp.Content)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Equal(t, "chatcmpl-abc123", resp.ID)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, &models.TokenUsage{PromptTokens: 12, CompletionTokens: 7, TotalTokens: 19}, resp.Usage)
}

func TestDeserializeMalformed(t *testing.T) {
	_, err := New().Deserialize([]byte(`{"object":"chat.completion","choices":[]}`))
	assert.ErrorIs(t, err, chaterr.ErrParse)
}

func TestContentRoundTrip(t *testing.T) {
	codec := New()
	for _, content := range []string{"hello", "", "multi\nline \"quoted\" ✓", `{"looks":"like json"}`} {
		body, err := codec.Serialize(models.UnifiedChatRequest{
			Model:    "gpt-4o",
			Messages: []models.Message{{Role: models.RoleUser, Content: content}},
		})
		require.NoError(t, err)
		sent := gjson.GetBytes(body, "messages.0.content").String()

		reply, err := sjson.SetBytes([]byte(`{"model":"gpt-4o","choices":[{"message":{"role":"assistant"}}]}`), "choices.0.message.content", sent)
		require.NoError(t, err)
		resp, err := codec.Deserialize(reply)
		require.NoError(t, err)
		assert.Equal(t, content, resp.Content)
	}
}
