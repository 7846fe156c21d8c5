package chorus

import (
	"testing"
)

func TestRoleConstants(t *testing.T) {
	if System != "system" {
		t.Errorf("System role mismatch: got %q", System)
	}
	if User != "user" {
		t.Errorf("User role mismatch: got %q", User)
	}
	if Assistant != "assistant" {
		t.Errorf("Assistant role mismatch: got %q", Assistant)
	}
}

func TestStateConstants(t *testing.T) {
	if StateDisconnected.String() != "disconnected" {
		t.Errorf("unexpected state string: %s", StateDisconnected)
	}
	if StateConnected.String() != "connected" {
		t.Errorf("unexpected state string: %s", StateConnected)
	}
	if StateFailed.String() != "failed" {
		t.Errorf("unexpected state string: %s", StateFailed)
	}
}

func TestSystemMessage(t *testing.T) {
	msg := SystemMessage("You are helpful")

	if msg.Role != System {
		t.Errorf("expected System role, got %s", msg.Role)
	}
	if msg.Content != "You are helpful" {
		t.Errorf("unexpected content: %q", msg.Content)
	}
}

func TestUserMessage(t *testing.T) {
	msg := UserMessage("Hello")

	if msg.Role != User {
		t.Errorf("expected User role, got %s", msg.Role)
	}
	if msg.Content != "Hello" {
		t.Errorf("unexpected content: %q", msg.Content)
	}
}

func TestAssistantMessage(t *testing.T) {
	msg := AssistantMessage("I can help")

	if msg.Role != Assistant {
		t.Errorf("expected Assistant role, got %s", msg.Role)
	}
}
