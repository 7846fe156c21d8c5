package core

import "context"

// Connector is the uniform surface every provider implements.
// A connector represents one provider session: it must be connected
// before messages can be sent, and disconnecting is always safe.
type Connector interface {
	// Connect resolves the provider credential and prepares the session.
	// A missing credential fails fast with ErrCredentialMissing and no
	// network traffic. Transport or auth failures during an optional
	// reachability probe report ErrConnectionFailed.
	Connect(ctx context.Context) error

	// SendMessage issues exactly one request to the provider's
	// text-generation endpoint. The connector must be in StateConnected;
	// otherwise the call fails with ErrNotConnected before any I/O.
	SendMessage(ctx context.Context, req Request) (*TextResult, error)

	// Disconnect releases held network resources and returns the
	// connector to StateDisconnected. Idempotent.
	Disconnect() error

	// State reports the current connection state.
	State() State

	// Capabilities describes the provider behind this connector.
	Capabilities() Capabilities
}

// State tracks the lifecycle of a connector session.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Capabilities describes a provider's static properties.
type Capabilities struct {
	// Provider is the canonical provider identifier (e.g. "openai").
	Provider string
	// DefaultModel is used when a request does not name a model.
	DefaultModel string
	// OpenAICompatible marks providers speaking the OpenAI wire protocol.
	OpenAICompatible bool
}
