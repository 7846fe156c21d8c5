package chorus

import (
	"github.com/shillcollin/chorus/core"
)

// Result wraps core.TextResult with convenience accessors.
type Result struct {
	inner *core.TextResult
}

// newResult wraps a core.TextResult.
func newResult(r *core.TextResult) *Result {
	return &Result{inner: r}
}

// Text returns the text content from the response.
func (r *Result) Text() string {
	if r.inner == nil {
		return ""
	}
	return r.inner.Text
}

// HasText returns true if the response contains text content.
func (r *Result) HasText() bool {
	return r.Text() != ""
}

// Model returns the model that generated this response.
func (r *Result) Model() string {
	if r.inner == nil {
		return ""
	}
	return r.inner.Model
}

// Provider returns the provider that generated this response.
func (r *Result) Provider() string {
	if r.inner == nil {
		return ""
	}
	return r.inner.Provider
}

// Usage returns token usage information.
func (r *Result) Usage() core.Usage {
	if r.inner == nil {
		return core.Usage{}
	}
	return r.inner.Usage
}

// TotalTokens returns the total token count (convenience accessor).
func (r *Result) TotalTokens() int {
	return r.Usage().TotalTokens
}

// InputTokens returns the input token count (convenience accessor).
func (r *Result) InputTokens() int {
	return r.Usage().InputTokens
}

// OutputTokens returns the output token count (convenience accessor).
func (r *Result) OutputTokens() int {
	return r.Usage().OutputTokens
}

// FinishReason returns the reason generation stopped.
func (r *Result) FinishReason() core.StopReason {
	if r.inner == nil {
		return core.StopReason{}
	}
	return r.inner.FinishReason
}

// LatencyMS returns the request latency in milliseconds.
func (r *Result) LatencyMS() int64 {
	if r.inner == nil {
		return 0
	}
	return r.inner.LatencyMS
}

// Core returns the underlying core.TextResult for advanced use cases.
func (r *Result) Core() *core.TextResult {
	return r.inner
}

// Messages returns the messages to append to conversation history:
// a single assistant message for a text reply, nothing for an empty one.
func (r *Result) Messages() []core.Message {
	if r.inner == nil || r.inner.Text == "" {
		return nil
	}
	return []core.Message{core.AssistantMessage(r.inner.Text)}
}
