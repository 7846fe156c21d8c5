package chorus

import (
	"testing"

	"github.com/shillcollin/chorus/core"
)

func TestResultText(t *testing.T) {
	result := newResult(&core.TextResult{
		Text:     "Hello, World!",
		Model:    "test-model",
		Provider: "test-provider",
	})

	if result.Text() != "Hello, World!" {
		t.Errorf("expected 'Hello, World!', got %q", result.Text())
	}
}

func TestResultTextNil(t *testing.T) {
	result := newResult(nil)

	if result.Text() != "" {
		t.Errorf("expected empty string for nil result, got %q", result.Text())
	}
}

func TestResultHasText(t *testing.T) {
	withText := newResult(&core.TextResult{Text: "content"})
	withoutText := newResult(&core.TextResult{Text: ""})
	nilResult := newResult(nil)

	if !withText.HasText() {
		t.Error("expected HasText() to be true when text is present")
	}
	if withoutText.HasText() {
		t.Error("expected HasText() to be false when text is empty")
	}
	if nilResult.HasText() {
		t.Error("expected HasText() to be false when result is nil")
	}
}

func TestResultAccessors(t *testing.T) {
	result := newResult(&core.TextResult{
		Text:     "hi",
		Model:    "gpt-4",
		Provider: "openai",
		Usage: core.Usage{
			InputTokens:  12,
			OutputTokens: 4,
			TotalTokens:  16,
		},
		FinishReason: core.StopReason{Type: "stop"},
		LatencyMS:    125,
	})

	if result.Model() != "gpt-4" {
		t.Errorf("unexpected model: %q", result.Model())
	}
	if result.Provider() != "openai" {
		t.Errorf("unexpected provider: %q", result.Provider())
	}
	if result.TotalTokens() != 16 || result.InputTokens() != 12 || result.OutputTokens() != 4 {
		t.Errorf("unexpected usage: %+v", result.Usage())
	}
	if result.FinishReason().Type != "stop" {
		t.Errorf("unexpected finish reason: %+v", result.FinishReason())
	}
	if result.LatencyMS() != 125 {
		t.Errorf("unexpected latency: %d", result.LatencyMS())
	}
	if result.Core() == nil {
		t.Error("Core() should expose the underlying result")
	}
}

func TestResultNilAccessors(t *testing.T) {
	result := newResult(nil)

	if result.Model() != "" || result.Provider() != "" {
		t.Error("nil result accessors should return zero values")
	}
	if result.TotalTokens() != 0 {
		t.Error("nil result should report zero tokens")
	}
	if result.LatencyMS() != 0 {
		t.Error("nil result should report zero latency")
	}
	if result.Messages() != nil {
		t.Error("nil result should produce no history messages")
	}
}

func TestResultMessages(t *testing.T) {
	result := newResult(&core.TextResult{Text: "a reply"})

	msgs := result.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one history message, got %d", len(msgs))
	}
	if msgs[0].Role != core.Assistant || msgs[0].Content != "a reply" {
		t.Errorf("unexpected history message: %+v", msgs[0])
	}

	empty := newResult(&core.TextResult{})
	if empty.Messages() != nil {
		t.Error("empty reply should produce no history messages")
	}
}
