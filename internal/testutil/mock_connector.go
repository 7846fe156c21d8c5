package testutil

import (
	"context"
	"sync"

	"github.com/shillcollin/chorus/core"
)

// MockConnector is a configurable mock implementation of core.Connector for testing.
type MockConnector struct {
	mu    sync.Mutex
	state core.State

	// Configurable responses
	Response *core.TextResult
	Caps     core.Capabilities

	// Error injection
	ConnectErr error
	SendErr    error

	// Call tracking
	ConnectCalls    int
	SendCalls       []core.Request
	DisconnectCalls int

	// Custom handlers (override default behavior)
	OnConnect     func(ctx context.Context) error
	OnSendMessage func(ctx context.Context, req core.Request) (*core.TextResult, error)
}

// NewMockConnector creates a new MockConnector with sensible defaults.
func NewMockConnector() *MockConnector {
	return &MockConnector{
		Response: &core.TextResult{
			Text:     "mock response",
			Model:    "mock-model",
			Provider: "mock",
			Usage: core.Usage{
				InputTokens:  10,
				OutputTokens: 5,
				TotalTokens:  15,
			},
			FinishReason: core.StopReason{Type: core.StopReasonComplete},
		},
		Caps: core.Capabilities{
			Provider:     "mock",
			DefaultModel: "mock-model",
		},
	}
}

// Connect implements core.Connector.
func (m *MockConnector) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.ConnectCalls++
	m.mu.Unlock()

	if m.OnConnect != nil {
		if err := m.OnConnect(ctx); err != nil {
			m.setState(core.StateFailed)
			return err
		}
		m.setState(core.StateConnected)
		return nil
	}

	if m.ConnectErr != nil {
		if !core.IsCredentialMissing(m.ConnectErr) {
			m.setState(core.StateFailed)
		}
		return m.ConnectErr
	}

	m.setState(core.StateConnected)
	return nil
}

// SendMessage implements core.Connector.
func (m *MockConnector) SendMessage(ctx context.Context, req core.Request) (*core.TextResult, error) {
	m.mu.Lock()
	m.SendCalls = append(m.SendCalls, req)
	state := m.state
	m.mu.Unlock()

	if state != core.StateConnected {
		return nil, core.NewError(core.ErrNotConnected, "mock: send before connect", core.WithProvider(m.Caps.Provider))
	}

	if m.OnSendMessage != nil {
		return m.OnSendMessage(ctx, req)
	}

	if m.SendErr != nil {
		return nil, m.SendErr
	}

	return m.Response, nil
}

// Disconnect implements core.Connector.
func (m *MockConnector) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DisconnectCalls++
	m.state = core.StateDisconnected
	return nil
}

// State implements core.Connector.
func (m *MockConnector) State() core.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Capabilities implements core.Connector.
func (m *MockConnector) Capabilities() core.Capabilities {
	return m.Caps
}

// Reset clears tracked calls and returns the connector to disconnected.
func (m *MockConnector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectCalls = 0
	m.SendCalls = nil
	m.DisconnectCalls = 0
	m.state = core.StateDisconnected
}

// SetResponse configures the text returned by SendMessage.
func (m *MockConnector) SetResponse(text string) {
	m.Response = &core.TextResult{
		Text:     text,
		Model:    "mock-model",
		Provider: m.Caps.Provider,
		Usage: core.Usage{
			InputTokens:  10,
			OutputTokens: 5,
			TotalTokens:  15,
		},
		FinishReason: core.StopReason{Type: core.StopReasonComplete},
	}
}

func (m *MockConnector) setState(s core.State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
