package mistral

import (
	"chatbridge/internal/models"
	"chatbridge/internal/provider/wire"
)

const vendor = "mistral"

// Codec maps unified requests to the Mistral chat/completions schema.
type Codec struct{}

func New() Codec {
	return Codec{}
}

type chatPayload struct {
	Model       string         `json:"model"`
	Messages    []wire.Message `json:"messages"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
	TopP        *float64       `json:"top_p,omitempty"`
	RandomSeed  *int           `json:"random_seed,omitempty"`
	SafePrompt  *bool          `json:"safe_prompt,omitempty"`
	Stop        []string       `json:"stop,omitempty"`
	Stream      bool           `json:"stream"`
}

var consumed = []string{"random_seed", "seed", "safe_prompt", "stop"}

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
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		TopP:        params.TopP,
		Stream:      params.Stream,
	}

	// Mistral names the sampling seed random_seed; accept the OpenAI spelling too.
	if v, ok := wire.Int(params.Extras, "random_seed"); ok {
		payload.RandomSeed = &v
	} else if v, ok := wire.Int(params.Extras, "seed"); ok {
		payload.RandomSeed = &v
	}
	if v, ok := wire.Bool(params.Extras, "safe_prompt"); ok {
		payload.SafePrompt = &v
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

func (Codec) Deserialize(data []byte) (*models.UnifiedChatResponse, error) {
	return wire.ParseChatCompletion(vendor, data)
}
