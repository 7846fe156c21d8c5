package gemini

// ProviderOption represents a provider-specific option for Gemini requests.
type ProviderOption func(map[string]any)

// BuildProviderOptions constructs a provider options map suitable for core.Request.
func BuildProviderOptions(opts ...ProviderOption) map[string]any {
	out := make(map[string]any)
	for _, opt := range opts {
		if opt != nil {
			opt(out)
		}
	}
	return out
}

// WithThinkingBudget sets the thinking budget (token count) for Gemini reasoning.
func WithThinkingBudget(tokens int) ProviderOption {
	return func(m map[string]any) {
		m[providerOptionThinkingBudget] = tokens
	}
}

// WithIncludeThoughts toggles inclusion of thought summaries in model responses.
func WithIncludeThoughts(include bool) ProviderOption {
	return func(m map[string]any) {
		m[providerOptionIncludeThought] = include
	}
}
