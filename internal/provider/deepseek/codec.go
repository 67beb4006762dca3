package deepseek

import (
	"chatbridge/internal/models"
	"chatbridge/internal/provider/wire"
)

const vendor = "deepseek"

// Codec maps unified requests to the DeepSeek chat/completions schema.
type Codec struct{}

func New() Codec {
	return Codec{}
}

type chatPayload struct {
	Model            string         `json:"model"`
	Messages         []wire.Message `json:"messages"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	Stream           bool           `json:"stream"`
}

var consumed = []string{"frequency_penalty", "presence_penalty", "stop"}

func (Codec) Serialize(req models.UnifiedChatRequest) ([]byte, error) {
	if req.Model == "" {
		return nil, wire.SerializationError(vendor, "model must be provided")
	}
	messages, err := wire.InlineMessages(vendor, req.Messages)
	if err != nil {
		return nil, err
	}

	params := req.Parameters
	payload := chatPayload{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stream:      params.Stream,
	}

	if v, ok := wire.Float(params.Extras, "frequency_penalty"); ok {
		payload.FrequencyPenalty = &v
	}
	if v, ok := wire.Float(params.Extras, "presence_penalty"); ok {
		payload.PresencePenalty = &v
	}
	if v, ok := wire.StringSlice(params.Extras, "stop"); ok {
		payload.Stop = v
	}

	body, err := wire.Marshal(vendor, payload)
	if err != nil {
		return nil, err
	}
	return wire.MergeExtras(vendor, body, params.Extras, consumed...)
}

// Deserialize also accepts reasoning models, whose answer is in
// message.content while the chain of thought sits in reasoning_content.
func (Codec) Deserialize(data []byte) (*models.UnifiedChatResponse, error) {
	return wire.ParseChatCompletion(vendor, data)
}
