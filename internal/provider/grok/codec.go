package grok

import (
	"github.com/tidwall/sjson"

	"chatbridge/internal/models"
	"chatbridge/internal/provider/wire"
)

const vendor = "grok"

// Codec maps unified requests to the xAI chat/completions schema. Optional
// keys are written only when set: xAI rejects explicit nulls.
type Codec struct{}

func New() Codec {
	return Codec{}
}

var consumed = []string{"model", "messages", "stream", "temperature", "max_tokens", "top_p"}

func (Codec) Serialize(req models.UnifiedChatRequest) ([]byte, error) {
	if req.Model == "" {
		return nil, wire.SerializationError(vendor, "model must be provided")
	}
	messages, err := wire.InlineMessages(vendor, req.Messages)
	if err != nil {
		return nil, err
	}
	rawMessages, err := wire.Marshal(vendor, messages)
	if err != nil {
		return nil, err
	}

	params := req.Parameters
	b := &builder{body: []byte(`{}`)}
	b.set("model", req.Model)
	b.setRaw("messages", rawMessages)
	b.set("stream", params.Stream)
	if params.Temperature != nil {
		b.set("temperature", *params.Temperature)
	}
	if params.MaxTokens != nil {
		b.set("max_tokens", *params.MaxTokens)
	}
	if params.TopP != nil {
		b.set("top_p", *params.TopP)
	}
	if b.err != nil {
		return nil, wire.SerializationError(vendor, "build payload: %v", b.err)
	}

	return wire.MergeExtras(vendor, b.body, params.Extras, consumed...)
}

func (Codec) Deserialize(data []byte) (*models.UnifiedChatResponse, error) {
	return wire.ParseChatCompletion(vendor, data)
}

type builder struct {
	body []byte
	err  error
}

func (b *builder) set(path string, value any) {
	if b.err != nil {
		return
	}
	b.body, b.err = sjson.SetBytes(b.body, path, value)
}

func (b *builder) setRaw(path string, raw []byte) {
	if b.err != nil {
		return
	}
	b.body, b.err = sjson.SetRawBytes(b.body, path, raw)
}
