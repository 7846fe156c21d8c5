package chorus

import "github.com/shillcollin/chorus/core"

// ConversationOption configures a Conversation when created via Client.Conversation().
type ConversationOption func(*Conversation)

// ConvProvider sets the provider for the conversation.
// The name may be any accepted alias (e.g. "claude", "ChatGPT").
func ConvProvider(provider string) ConversationOption {
	return func(c *Conversation) {
		c.provider = provider
	}
}

// ConvModel overrides the provider's default model for the conversation.
func ConvModel(model string) ConversationOption {
	return func(c *Conversation) {
		c.model = model
	}
}

// ConvSystem sets the system prompt for the conversation.
func ConvSystem(system string) ConversationOption {
	return func(c *Conversation) {
		c.system = system
	}
}

// ConvMessages initializes the conversation with existing messages.
func ConvMessages(msgs ...core.Message) ConversationOption {
	return func(c *Conversation) {
		c.messages = append(c.messages, msgs...)
	}
}

// ConvMaxMessages sets the maximum number of messages to keep in history.
// When exceeded, older messages are trimmed (system message is preserved).
// Set to 0 for unlimited (default).
func ConvMaxMessages(n int) ConversationOption {
	return func(c *Conversation) {
		c.maxMsgs = n
	}
}

// ConvMetadata sets metadata carried on every request of the conversation.
func ConvMetadata(key string, value any) ConversationOption {
	return func(c *Conversation) {
		if c.metadata == nil {
			c.metadata = make(map[string]any)
		}
		c.metadata[key] = value
	}
}
