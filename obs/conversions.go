package obs

import (
	"github.com/shillcollin/chorus/core"
)

// UsageFromCore builds a UsageTokens struct from a core.Usage value.
func UsageFromCore(u core.Usage) UsageTokens {
	return UsageTokens{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
	}
}

// MessageFromCore converts a core.Message into an observability-safe message.
func MessageFromCore(msg core.Message) Message {
	var data map[string]any
	if len(msg.Metadata) > 0 {
		data = make(map[string]any, len(msg.Metadata))
		for k, v := range msg.Metadata {
			data[k] = v
		}
	}
	return Message{Role: string(msg.Role), Text: msg.Content, Data: data}
}

// MessagesFromCore converts a slice of core.Message.
func MessagesFromCore(messages []core.Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, MessageFromCore(msg))
	}
	return out
}
