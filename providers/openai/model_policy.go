package openai

import "strings"

// modelProfile captures per-model request rules. Reasoning models reject
// sampling parameters and take max_completion_tokens in place of
// max_tokens.
type modelProfile struct {
	UseMaxCompletionTokens bool
	AllowSampling          bool
}

func defaultProfile() modelProfile {
	return modelProfile{AllowSampling: true}
}

var reasoningProfile = modelProfile{UseMaxCompletionTokens: true}

func profileForModel(model string) modelProfile {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "gpt-5"):
		return reasoningProfile
	case strings.HasPrefix(m, "o4"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o1"):
		return reasoningProfile
	case strings.HasPrefix(m, "gpt-4.1"):
		return modelProfile{UseMaxCompletionTokens: true, AllowSampling: true}
	default:
		return defaultProfile()
	}
}
