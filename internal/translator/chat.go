// Package translator converts the HTTP API's JSON bodies to and from the
// unified message model.
package translator

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"chatbridge/internal/models"
)

var (
	errEmptyMessages   = errors.New("at least one message is required")
	errUnsupportedStop = errors.New("unsupported stop value")
	errInvalidRole     = errors.New("invalid role")
	errInvalidContent  = errors.New("invalid message content")
	errEmptyMessage    = errors.New("message must not be empty")
)

// ChatRequest is the body of POST /v1/chat. Provider is optional; without it
// the request is routed by model.
type ChatRequest struct {
	Provider    string
	Model       string
	Messages    []ChatMessage
	Stream      bool
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	Options     map[string]any
}

// UnmarshalJSON implements custom parsing to enforce validation. OpenAI-style
// tuning keys are collected into Options next to the free-form parameters
// object.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Provider         string          `json:"provider"`
		Model            string          `json:"model"`
		Messages         []ChatMessage   `json:"messages"`
		Stream           bool            `json:"stream"`
		MaxTokens        *int            `json:"max_tokens"`
		Temperature      *float64        `json:"temperature"`
		TopP             *float64        `json:"top_p"`
		FrequencyPenalty *float64        `json:"frequency_penalty"`
		PresencePenalty  *float64        `json:"presence_penalty"`
		Stop             json.RawMessage `json:"stop"`
		Seed             *int            `json:"seed"`
		User             string          `json:"user"`
		Parameters       map[string]any  `json:"parameters"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode chat request: %w", err)
	}

	stopValues, err := parseStop(raw.Stop)
	if err != nil {
		return err
	}

	r.Provider = strings.TrimSpace(raw.Provider)
	r.Model = strings.TrimSpace(raw.Model)
	r.Messages = raw.Messages
	r.Stream = raw.Stream
	r.MaxTokens = raw.MaxTokens
	r.Temperature = raw.Temperature
	r.TopP = raw.TopP

	r.Options = make(map[string]any, len(raw.Parameters)+5)
	for k, v := range raw.Parameters {
		r.Options[k] = v
	}
	if raw.FrequencyPenalty != nil {
		r.Options["frequency_penalty"] = *raw.FrequencyPenalty
	}
	if raw.PresencePenalty != nil {
		r.Options["presence_penalty"] = *raw.PresencePenalty
	}
	if len(stopValues) > 0 {
		r.Options["stop"] = stopValues
	}
	if raw.Seed != nil {
		r.Options["seed"] = *raw.Seed
	}
	if raw.User != "" {
		r.Options["user"] = raw.User
	}

	return r.validate()
}

func (r *ChatRequest) validate() error {
	if len(r.Messages) == 0 {
		return errEmptyMessages
	}
	for i, msg := range r.Messages {
		if err := msg.validate(); err != nil {
			return fmt.Errorf("message[%d]: %w", i, err)
		}
	}
	return nil
}

// ToUnified converts the request into the canonical format. Parameter ranges
// are checked here and never clamped.
func (r ChatRequest) ToUnified() (models.UnifiedChatRequest, error) {
	msgs := make([]models.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		msgs = append(msgs, models.Message{Role: m.Role, Content: m.Content})
	}

	params := models.RequestParameters{
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
		TopP:        r.TopP,
		Stream:      r.Stream,
	}
	if len(r.Options) > 0 {
		params.Extras = r.Options
	}
	return models.NewChatRequest(r.Model, msgs, params)
}

// ChatMessage captures a single message within the chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON supports string and array-of-text content formats.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	content, err := extractMessageContent(raw.Content)
	if err != nil {
		return err
	}

	m.Role = strings.TrimSpace(raw.Role)
	m.Content = content
	return nil
}

func (m ChatMessage) validate() error {
	if !models.ValidRole(m.Role) {
		return fmt.Errorf("%w: %s", errInvalidRole, m.Role)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: message content must not be empty", errInvalidContent)
	}
	return nil
}

func extractMessageContent(raw json.RawMessage) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("%w: missing content", errInvalidContent)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var segments []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &segments); err == nil {
		var builder strings.Builder
		for _, segment := range segments {
			if segment.Type != "text" {
				return "", fmt.Errorf("%w: segment type %q not supported", errInvalidContent, segment.Type)
			}
			builder.WriteString(segment.Text)
		}
		return builder.String(), nil
	}

	return "", fmt.Errorf("%w: unsupported content structure", errInvalidContent)
}

func parseStop(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			return nil, errUnsupportedStop
		}
		return []string{single}, nil
	}

	var multi []string
	if err := json.Unmarshal(raw, &multi); err == nil {
		out := make([]string, 0, len(multi))
		for _, item := range multi {
			item = strings.TrimSpace(item)
			if item == "" {
				return nil, errUnsupportedStop
			}
			out = append(out, item)
		}
		return out, nil
	}
	return nil, errUnsupportedStop
}

// ChatResponse is the body returned for a successful chat or agent call.
type ChatResponse struct {
	ID           string `json:"id,omitempty"`
	Provider     string `json:"provider"`
	Agent        string `json:"agent,omitempty"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// Usage mirrors models.TokenUsage on the wire.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FromUnified constructs the response shape from the unified data.
func FromUnified(providerName string, resp *models.UnifiedChatResponse) ChatResponse {
	var usage *Usage
	if resp.Usage != nil {
		usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return ChatResponse{
		ID:           resp.ID,
		Provider:     providerName,
		Model:        resp.Model,
		Content:      resp.Content,
		FinishReason: resp.FinishReason,
		Usage:        usage,
	}
}
