package provider

import "strings"

// Type selects the vendor codec at construction time.
type Type string

const (
	TypeOpenAI     Type = "openai"
	TypeAnthropic  Type = "anthropic"
	TypeMistral    Type = "mistral"
	TypePerplexity Type = "perplexity"
	TypeGrok       Type = "grok"
	TypeDeepSeek   Type = "deepseek"
	// TypeWorkflow covers webhook-style automation backends such as n8n.
	TypeWorkflow Type = "workflow"
)

// Types lists every supported vendor type.
func Types() []Type {
	return []Type{TypeOpenAI, TypeAnthropic, TypeMistral, TypePerplexity, TypeGrok, TypeDeepSeek, TypeWorkflow}
}

var typeAliases = map[string]Type{
	"openai":     TypeOpenAI,
	"anthropic":  TypeAnthropic,
	"claude":     TypeAnthropic,
	"mistral":    TypeMistral,
	"perplexity": TypePerplexity,
	"grok":       TypeGrok,
	"xai":        TypeGrok,
	"deepseek":   TypeDeepSeek,
	"workflow":   TypeWorkflow,
	"n8n":        TypeWorkflow,
	"custom":     TypeWorkflow,
}

// ParseType maps an identifier (case-insensitive, aliases allowed) to a Type.
func ParseType(s string) (Type, bool) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

func (t Type) DisplayName() string {
	switch t {
	case TypeOpenAI:
		return "OpenAI"
	case TypeAnthropic:
		return "Anthropic"
	case TypeMistral:
		return "Mistral"
	case TypePerplexity:
		return "Perplexity"
	case TypeGrok:
		return "Grok"
	case TypeDeepSeek:
		return "DeepSeek"
	case TypeWorkflow:
		return "Workflow"
	default:
		return string(t)
	}
}
