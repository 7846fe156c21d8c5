package core

// Request describes one text-generation call.
type Request struct {
	// Model overrides the connector's configured model when non-empty.
	Model string

	// Messages are sent in order. Provider packages decide how system
	// messages are represented on the wire.
	Messages []Message

	Temperature float32
	MaxTokens   int
	TopP        float32

	// Metadata is carried through to results and observability sinks.
	Metadata map[string]any

	// ProviderOptions pass provider-specific knobs without widening the
	// shared request shape.
	ProviderOptions map[string]any
}

// Clone returns a deep copy safe for mutation by callers.
func (r Request) Clone() Request {
	clone := r
	clone.Messages = append([]Message(nil), r.Messages...)
	clone.Metadata = copyAnyMap(r.Metadata)
	clone.ProviderOptions = copyAnyMap(r.ProviderOptions)
	return clone
}

func copyAnyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
