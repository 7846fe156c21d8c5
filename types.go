package chorus

import "github.com/shillcollin/chorus/core"

// Message and Role types for building conversations.
// These are type aliases from core for convenience.
type (
	// Message represents a single conversation turn.
	Message = core.Message

	// Role identifies the author of a message.
	Role = core.Role
)

// Role constants.
const (
	System    = core.System
	User      = core.User
	Assistant = core.Assistant
)

// Connector lifecycle types.
type (
	// Connector is the uniform surface every provider implements.
	Connector = core.Connector

	// State tracks the lifecycle of a connector session.
	State = core.State

	// Capabilities describes a provider's static properties.
	Capabilities = core.Capabilities
)

// Connector state constants.
const (
	StateDisconnected = core.StateDisconnected
	StateConnected    = core.StateConnected
	StateFailed       = core.StateFailed
)

// Request and result types.
type (
	// Request describes one text-generation call.
	Request = core.Request

	// TextResult is the raw outcome of a SendMessage call.
	TextResult = core.TextResult

	// Usage tracks token consumption.
	Usage = core.Usage

	// StopReason explains why generation stopped.
	StopReason = core.StopReason
)

// Message constructors - convenience functions that wrap core functions.

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return core.SystemMessage(content)
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return core.UserMessage(content)
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return core.AssistantMessage(content)
}
