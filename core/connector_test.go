package core

import "testing"

func TestStateString(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnected, "connected"},
		{StateFailed, "failed"},
		{State(42), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}

func TestMessageConstructors(t *testing.T) {
	if msg := SystemMessage("be brief"); msg.Role != System || msg.Content != "be brief" {
		t.Errorf("SystemMessage = %+v", msg)
	}
	if msg := UserMessage("hello"); msg.Role != User || msg.Content != "hello" {
		t.Errorf("UserMessage = %+v", msg)
	}
	if msg := AssistantMessage("hi"); msg.Role != Assistant || msg.Content != "hi" {
		t.Errorf("AssistantMessage = %+v", msg)
	}
}

func TestRequestClone(t *testing.T) {
	req := Request{
		Model:           "gpt-4",
		Messages:        []Message{UserMessage("one")},
		Metadata:        map[string]any{"k": "v"},
		ProviderOptions: map[string]any{"opt": 1},
	}

	clone := req.Clone()
	clone.Messages[0].Content = "changed"
	clone.Messages = append(clone.Messages, UserMessage("two"))
	clone.Metadata["k"] = "other"
	clone.ProviderOptions["opt"] = 2

	if req.Messages[0].Content != "one" {
		t.Error("clone mutation leaked into original messages")
	}
	if len(req.Messages) != 1 {
		t.Error("clone append leaked into original messages")
	}
	if req.Metadata["k"] != "v" {
		t.Error("clone mutation leaked into original metadata")
	}
	if req.ProviderOptions["opt"] != 1 {
		t.Error("clone mutation leaked into original provider options")
	}
}

func TestRequestCloneNilMaps(t *testing.T) {
	clone := Request{Model: "m"}.Clone()
	if clone.Metadata != nil || clone.ProviderOptions != nil {
		t.Error("nil maps should stay nil after Clone")
	}
}
