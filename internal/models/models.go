package models

import (
	"errors"
	"fmt"
	"maps"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrInvalidRole indicates a message role outside system, user and assistant.
var ErrInvalidRole = errors.New("invalid message role")

// ErrEmptyMessages indicates a request without any messages.
var ErrEmptyMessages = errors.New("at least one message is required")

// Message represents a single conversational turn in the unified schema.
type Message struct {
	Role    string
	Content string
}

// UnifiedChatRequest is the canonical, vendor-agnostic chat request.
type UnifiedChatRequest struct {
	Model      string
	Messages   []Message
	Parameters RequestParameters
}

// NewChatRequest validates parameters and roles and returns a request whose
// messages and extras are private copies of the arguments.
func NewChatRequest(model string, messages []Message, params RequestParameters) (UnifiedChatRequest, error) {
	if len(messages) == 0 {
		return UnifiedChatRequest{}, ErrEmptyMessages
	}
	for i, msg := range messages {
		if !ValidRole(msg.Role) {
			return UnifiedChatRequest{}, fmt.Errorf("%w %q at index %d", ErrInvalidRole, msg.Role, i)
		}
	}
	if err := params.Validate(); err != nil {
		return UnifiedChatRequest{}, err
	}

	params.Extras = maps.Clone(params.Extras)
	return UnifiedChatRequest{
		Model:      model,
		Messages:   append([]Message(nil), messages...),
		Parameters: params,
	}, nil
}

// ValidRole reports whether role is one of the unified roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// UnifiedChatResponse captures a provider response in the unified schema.
type UnifiedChatResponse struct {
	Content      string
	Model        string
	Usage        *TokenUsage
	FinishReason string
	ID           string
}

// TokenUsage records token accounting information.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewTokenUsage builds a usage record, deriving the total from the two
// halves when the vendor did not report one.
func NewTokenUsage(prompt, completion, total int) *TokenUsage {
	if total == 0 {
		total = prompt + completion
	}
	return &TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
