package anthropic

import (
	"strings"

	"github.com/tidwall/gjson"

	"chatbridge/internal/models"
	"chatbridge/internal/provider/wire"
)

const vendor = "anthropic"

// Codec maps unified requests to the Anthropic Messages API. System turns
// are lifted into the top-level system field and max_tokens is mandatory.
type Codec struct{}

func New() Codec {
	return Codec{}
}

type messagePayload struct {
	Model         string         `json:"model"`
	Messages      []wire.Message `json:"messages"`
	System        string         `json:"system,omitempty"`
	MaxTokens     int            `json:"max_tokens"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	TopK          *int           `json:"top_k,omitempty"`
	StopSequences []string       `json:"stop_sequences,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
}

var consumed = []string{"top_k", "stop", "stop_sequences", "metadata"}

func (Codec) Serialize(req models.UnifiedChatRequest) ([]byte, error) {
	if req.Model == "" {
		return nil, wire.SerializationError(vendor, "model must be provided")
	}

	messages := make([]wire.Message, 0, len(req.Messages))
	var systemParts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case models.RoleSystem:
			if strings.TrimSpace(msg.Content) != "" {
				systemParts = append(systemParts, msg.Content)
			}
		case models.RoleUser, models.RoleAssistant:
			messages = append(messages, wire.Message{Role: msg.Role, Content: msg.Content})
		default:
			return nil, wire.SerializationError(vendor, "unsupported role %q", msg.Role)
		}
	}

	if len(messages) == 0 {
		return nil, wire.SerializationError(vendor, "request requires at least one user message")
	}
	if messages[0].Role != models.RoleUser {
		return nil, wire.SerializationError(vendor, "conversation must start with a user message")
	}

	params := req.Parameters
	if params.MaxTokens == nil {
		return nil, wire.SerializationError(vendor, "max_tokens is required")
	}

	payload := messagePayload{
		Model:       req.Model,
		Messages:    messages,
		System:      strings.Join(systemParts, "\n\n"),
		MaxTokens:   *params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stream:      params.Stream,
	}

	if v, ok := wire.Int(params.Extras, "top_k"); ok {
		payload.TopK = &v
	}
	if v, ok := wire.StringSlice(params.Extras, "stop_sequences"); ok {
		payload.StopSequences = v
	} else if v, ok := wire.StringSlice(params.Extras, "stop"); ok {
		payload.StopSequences = v
	}
	if v, ok := wire.Map(params.Extras, "metadata"); ok {
		payload.Metadata = v
	}

	body, err := wire.Marshal(vendor, payload)
	if err != nil {
		return nil, err
	}
	return wire.MergeExtras(vendor, body, params.Extras, consumed...)
}

func (Codec) Deserialize(data []byte) (*models.UnifiedChatResponse, error) {
	if !gjson.ValidBytes(data) {
		return nil, wire.ParseError(vendor, "response body is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, wire.ParseError(vendor, "response body is not a JSON object")
	}

	content, ok := wire.Content(root.Get("content"))
	if !ok {
		return nil, wire.ParseError(vendor, "response missing text content blocks")
	}

	return &models.UnifiedChatResponse{
		ID:           root.Get("id").String(),
		Content:      content,
		Model:        root.Get("model").String(),
		FinishReason: root.Get("stop_reason").String(),
		Usage:        wire.Usage(root.Get("usage")),
	}, nil
}
