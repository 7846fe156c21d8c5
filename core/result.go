package core

// Usage tracks token consumption for a single call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// StopReason explains why generation stopped.
type StopReason struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Common stop reason types.
const (
	StopReasonComplete  = "complete"
	StopReasonMaxTokens = "max_tokens"
	StopReasonFiltered  = "filtered"
)

// TextResult is the outcome of a successful SendMessage call.
type TextResult struct {
	Text         string
	Model        string
	Provider     string
	Usage        Usage
	FinishReason StopReason
	LatencyMS    int64
}
