package provider

const (
	bearer                 = "Bearer"
	anthropicVersionHeader = "anthropic-version"
	anthropicVersion       = "2023-06-01"
)

// Defaults returns the built-in vendor entries. Callers get fresh copies and
// may override fields before building a Registry.
func Defaults() []Configuration {
	return []Configuration{
		{
			Type:             TypeOpenAI,
			Name:             "OpenAI",
			BaseURL:          "https://api.openai.com/v1/chat/completions",
			AuthHeaderName:   "Authorization",
			AuthHeaderPrefix: bearer,
			DefaultModel:     "gpt-4o",
			SupportedModels: []string{
				"o3", "o4-mini", "gpt-4.1", "gpt-4.1-mini", "gpt-4.1-nano",
				"gpt-4o", "gpt-4o-mini", "o1", "o1-mini",
			},
		},
		{
			Type:             TypeAnthropic,
			Name:             "Anthropic",
			BaseURL:          "https://api.anthropic.com/v1/messages",
			AuthHeaderName:   "x-api-key",
			AuthHeaderPrefix: "",
			APIVersionHeader: anthropicVersionHeader,
			APIVersion:       anthropicVersion,
			DefaultModel:     "claude-3-5-sonnet-20241022",
			SupportedModels: []string{
				"claude-opus-4-20250514", "claude-sonnet-4-20250514", "claude-3-7-sonnet-20250219",
				"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022",
				"claude-3-opus-20240229", "claude-3-haiku-20240307",
			},
		},
		{
			Type:             TypeMistral,
			Name:             "Mistral",
			BaseURL:          "https://api.mistral.ai/v1/chat/completions",
			AuthHeaderName:   "Authorization",
			AuthHeaderPrefix: bearer,
			DefaultModel:     "mistral-medium-2505",
			SupportedModels: []string{
				"mistral-medium-2505", "magistral-medium-2506", "codestral-2501", "devstral-medium-2507",
				"mistral-large-2411", "pixtral-large-2411", "ministral-8b-2410", "ministral-3b-2410",
				"magistral-small-2506", "mistral-small-2506", "devstral-small-2507", "mistral-nemo-2407",
				"pixtral-12b-2409", "mistral-embed", "mistral-moderation-2411", "mistral-ocr-2505",
			},
		},
		{
			Type:             TypePerplexity,
			Name:             "Perplexity",
			BaseURL:          "https://api.perplexity.ai/chat/completions",
			AuthHeaderName:   "Authorization",
			AuthHeaderPrefix: bearer,
			DefaultModel:     "sonar-pro",
			SupportedModels: []string{
				"sonar-reasoning-pro", "sonar-reasoning", "sonar-pro", "sonar", "sonar-deep-research", "r1-1776",
				"llama-3.1-sonar-large-128k-online", "llama-3.1-sonar-small-128k-online",
				"llama-3.1-sonar-large-128k-chat", "llama-3.1-sonar-small-128k-chat",
				"llama-3.1-8b-instruct", "llama-3.1-70b-instruct",
			},
		},
		{
			Type:             TypeGrok,
			Name:             "Grok",
			BaseURL:          "https://api.x.ai/v1/chat/completions",
			AuthHeaderName:   "Authorization",
			AuthHeaderPrefix: bearer,
			DefaultModel:     "grok-2-1212",
			SupportedModels: []string{
				"grok-3", "grok-2-1212", "grok-2-vision-1212", "grok-2-public", "grok-beta", "grok-vision-beta",
			},
		},
		{
			Type:             TypeDeepSeek,
			Name:             "DeepSeek",
			BaseURL:          "https://api.deepseek.com/v1/chat/completions",
			AuthHeaderName:   "Authorization",
			AuthHeaderPrefix: bearer,
			DefaultModel:     "deepseek-v3-0324",
			SupportedModels: []string{
				"deepseek-v3-0324", "deepseek-r1-0528", "deepseek-r1-lite-preview",
				"deepseek-r1-distill-llama-70b", "deepseek-r1-distill-qwen-32b", "deepseek-r1-distill-qwen-14b",
				"deepseek-r1-distill-qwen-7b", "deepseek-r1-distill-qwen-1.5b",
				"deepseek-coder-v2-instruct", "deepseek-coder-v2-lite-instruct", "deepseek-math-7b-instruct",
			},
		},
		{
			Type:             TypeWorkflow,
			Name:             "n8n",
			BaseURL:          "http://localhost:5678/webhook/chat",
			AuthHeaderName:   "Authorization",
			AuthHeaderPrefix: bearer,
			DefaultModel:     "blog-workflow",
			SupportedModels:  []string{"blog-workflow"},
		},
	}
}

// DefaultRegistry builds a Registry from Defaults.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(Defaults()...)
}
