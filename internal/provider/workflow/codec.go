// Package workflow adapts webhook-style automation backends (n8n and
// similar) that accept a plain JSON trigger and answer with free-form output
// instead of a chat-completion envelope.
package workflow

import (
	"bytes"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"

	"chatbridge/internal/models"
	"chatbridge/internal/provider/wire"
)

const vendor = "workflow"

// outputKeys are probed in order on an object response.
var outputKeys = []string{"output", "response", "text", "message", "content", "answer", "result", "data"}

// Codec sends the latest user turn plus the full history to a webhook.
type Codec struct{}

func New() Codec {
	return Codec{}
}

type triggerPayload struct {
	Message     string         `json:"message"`
	Model       string         `json:"model"`
	History     []wire.Message `json:"history"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

func (Codec) Serialize(req models.UnifiedChatRequest) ([]byte, error) {
	history, err := wire.InlineMessages(vendor, req.Messages)
	if err != nil {
		return nil, err
	}

	var message string
	found := false
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == models.RoleUser {
			message = req.Messages[i].Content
			found = true
			break
		}
	}
	if !found {
		return nil, wire.SerializationError(vendor, "request has no user message to trigger the workflow")
	}

	return wire.Marshal(vendor, triggerPayload{
		Message:     message,
		Model:       req.Model,
		History:     history,
		Temperature: req.Parameters.Temperature,
		MaxTokens:   req.Parameters.MaxTokens,
		Parameters:  req.Parameters.Extras,
	})
}

// Deserialize accepts JSON objects, single-element arrays (n8n's default
// "all items" response), bare JSON strings, malformed JSON that jsonrepair
// can fix, and finally plain text.
func (Codec) Deserialize(data []byte) (*models.UnifiedChatResponse, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, wire.ParseError(vendor, "empty response body")
	}

	if gjson.ValidBytes(trimmed) {
		return fromJSON(gjson.ParseBytes(trimmed))
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		repaired, err := jsonrepair.JSONRepair(string(trimmed))
		if err != nil || !gjson.Valid(repaired) {
			return nil, wire.ParseError(vendor, "response looks like JSON but could not be repaired")
		}
		return fromJSON(gjson.Parse(repaired))
	}

	return &models.UnifiedChatResponse{Content: string(data)}, nil
}

func fromJSON(root gjson.Result) (*models.UnifiedChatResponse, error) {
	if root.IsArray() {
		items := root.Array()
		if len(items) == 0 {
			return nil, wire.ParseError(vendor, "workflow returned no items")
		}
		root = items[0]
	}

	if root.Type == gjson.String {
		return &models.UnifiedChatResponse{Content: root.String()}, nil
	}
	if !root.IsObject() {
		return nil, wire.ParseError(vendor, "unexpected %s response", root.Type)
	}

	for _, key := range outputKeys {
		if content, ok := wire.Content(root.Get(key)); ok {
			return &models.UnifiedChatResponse{
				Content: content,
				Model:   root.Get("model").String(),
				Usage:   wire.Usage(root.Get("usage")),
			}, nil
		}
	}
	return nil, wire.ParseError(vendor, "response has none of the expected output fields")
}
