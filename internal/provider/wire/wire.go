// Package wire holds the JSON plumbing shared by the vendor codecs: payload
// marshalling, extras merging, and tolerant decoding of success envelopes.
package wire

import (
	"fmt"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"chatbridge/internal/chaterr"
	"chatbridge/internal/models"
)

// Message is the inline {role, content} shape used by chat-completion vendors.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SerializationError wraps chaterr.ErrSerialization with vendor context.
func SerializationError(vendor, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", vendor, chaterr.ErrSerialization, fmt.Sprintf(format, args...))
}

// ParseError wraps chaterr.ErrParse with vendor context.
func ParseError(vendor, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", vendor, chaterr.ErrParse, fmt.Sprintf(format, args...))
}

// Marshal encodes payload, reporting failures as serialization errors.
func Marshal(vendor string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, SerializationError(vendor, "marshal payload: %v", err)
	}
	return body, nil
}

// InlineMessages copies messages into the chat-completion shape, keeping
// system messages in place.
func InlineMessages(vendor string, msgs []models.Message) ([]Message, error) {
	if len(msgs) == 0 {
		return nil, SerializationError(vendor, "at least one message is required")
	}
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if !models.ValidRole(msg.Role) {
			return nil, SerializationError(vendor, "unsupported role %q", msg.Role)
		}
		out = append(out, Message{Role: msg.Role, Content: msg.Content})
	}
	return out, nil
}

// MergeExtras adds every extra whose key is neither consumed by the vendor's
// typed fields nor already present in body. Keys are applied in sorted order.
func MergeExtras(vendor string, body []byte, extras map[string]any, consumed ...string) ([]byte, error) {
	if len(extras) == 0 {
		return body, nil
	}

	keys := make([]string, 0, len(extras))
	for key := range extras {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if slices.Contains(consumed, key) {
			continue
		}
		path := escapePath(key)
		if gjson.GetBytes(body, path).Exists() {
			continue
		}
		updated, err := sjson.SetBytes(body, path, extras[key])
		if err != nil {
			return nil, SerializationError(vendor, "set extra %q: %v", key, err)
		}
		body = updated
	}
	return body, nil
}

var pathEscaper = strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

func escapePath(key string) string {
	return pathEscaper.Replace(key)
}

// Content normalizes a content value that may be a flat string, a single
// text block, or an array of typed content blocks.
func Content(r gjson.Result) (string, bool) {
	switch {
	case r.Type == gjson.String:
		return r.String(), true
	case r.IsArray():
		var (
			text  strings.Builder
			found bool
		)
		for _, block := range r.Array() {
			if block.Type == gjson.String {
				text.WriteString(block.String())
				found = true
				continue
			}
			switch block.Get("type").String() {
			case "", "text", "output_text":
			default:
				continue
			}
			if t := block.Get("text"); t.Type == gjson.String {
				text.WriteString(t.String())
				found = true
			}
		}
		return text.String(), found
	case r.IsObject():
		if t := r.Get("text"); t.Type == gjson.String {
			return t.String(), true
		}
	}
	return "", false
}

// Usage maps either prompt/completion or input/output token counts.
func Usage(r gjson.Result) *models.TokenUsage {
	if !r.IsObject() {
		return nil
	}
	prompt := firstInt(r, "prompt_tokens", "input_tokens")
	completion := firstInt(r, "completion_tokens", "output_tokens")
	total := r.Get("total_tokens").Int()
	return models.NewTokenUsage(int(prompt), int(completion), int(total))
}

func firstInt(r gjson.Result, keys ...string) int64 {
	for _, key := range keys {
		if v := r.Get(key); v.Exists() {
			return v.Int()
		}
	}
	return 0
}

// ParseChatCompletion decodes the choices[0].message envelope shared by the
// OpenAI-compatible vendors.
func ParseChatCompletion(vendor string, data []byte) (*models.UnifiedChatResponse, error) {
	if !gjson.ValidBytes(data) {
		return nil, ParseError(vendor, "response body is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ParseError(vendor, "response body is not a JSON object")
	}

	choice := root.Get("choices.0")
	if !choice.Exists() {
		return nil, ParseError(vendor, "response did not include choices")
	}

	content, ok := Content(choice.Get("message.content"))
	if !ok {
		content, ok = Content(choice.Get("text"))
	}
	if !ok {
		return nil, ParseError(vendor, "first choice has no message content")
	}

	return &models.UnifiedChatResponse{
		ID:           root.Get("id").String(),
		Content:      content,
		Model:        root.Get("model").String(),
		FinishReason: choice.Get("finish_reason").String(),
		Usage:        Usage(root.Get("usage")),
	}, nil
}

// ErrorMessage extracts a human-readable message from a vendor error body,
// returning "" when none is recognizable.
func ErrorMessage(data []byte) string {
	if !gjson.ValidBytes(data) {
		return ""
	}
	root := gjson.ParseBytes(data)
	for _, path := range []string{"error.message", "error", "message", "detail"} {
		if v := root.Get(path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func Float(extras map[string]any, key string) (float64, bool) {
	if value, ok := extras[key]; ok {
		switch v := value.(type) {
		case float64:
			return v, true
		case float32:
			return float64(v), true
		case int:
			return float64(v), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func Int(extras map[string]any, key string) (int, bool) {
	if value, ok := extras[key]; ok {
		switch v := value.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			if v == float64(int(v)) {
				return int(v), true
			}
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i), true
			}
		}
	}
	return 0, false
}

func Bool(extras map[string]any, key string) (bool, bool) {
	v, ok := extras[key].(bool)
	return v, ok
}

func String(extras map[string]any, key string) (string, bool) {
	v, ok := extras[key].(string)
	return v, ok
}

func StringSlice(extras map[string]any, key string) ([]string, bool) {
	value, ok := extras[key]
	if !ok {
		return nil, false
	}
	switch v := value.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, str)
		}
		return result, true
	}
	return nil, false
}

func Map(extras map[string]any, key string) (map[string]any, bool) {
	m, ok := extras[key].(map[string]any)
	return m, ok
}
