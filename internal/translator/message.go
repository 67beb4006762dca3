package translator

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"chatbridge/internal/models"
)

// MessageRequest is the body of the single-turn provider and agent routes.
// History is honored only by agents with memory enabled.
type MessageRequest struct {
	Message string        `json:"message"`
	Model   string        `json:"model,omitempty"`
	History []ChatMessage `json:"history,omitempty"`
}

func (r *MessageRequest) UnmarshalJSON(data []byte) error {
	type alias MessageRequest
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message request: %w", err)
	}
	if strings.TrimSpace(raw.Message) == "" {
		return errEmptyMessage
	}
	for i, m := range raw.History {
		if err := m.validate(); err != nil {
			return fmt.Errorf("history[%d]: %w", i, err)
		}
	}
	raw.Model = strings.TrimSpace(raw.Model)
	*r = MessageRequest(raw)
	return nil
}

// HistoryMessages converts History to unified messages.
func (r MessageRequest) HistoryMessages() []models.Message {
	if len(r.History) == 0 {
		return nil
	}
	out := make([]models.Message, 0, len(r.History))
	for _, m := range r.History {
		out = append(out, models.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// MessageResponse is returned by POST /v1/providers/:provider/messages.
type MessageResponse struct {
	Provider string `json:"provider"`
	Content  string `json:"content"`
}

// ProviderInfo describes a provider in listings.
type ProviderInfo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DefaultModel    string   `json:"default_model"`
	SupportedModels []string `json:"supported_models"`
	Available       bool     `json:"available"`
}
