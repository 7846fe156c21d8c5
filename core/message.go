package core

// Role identifies the author of a message.
type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
)

// Message represents a single conversation turn. This layer exchanges
// plain text; provider packages translate messages into their wire shapes.
type Message struct {
	Role     Role           `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: System, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: User, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: Assistant, Content: content}
}
