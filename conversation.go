package chorus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/shillcollin/chorus/core"
)

// Conversation provides automatic history management for multi-turn
// interactions with a single provider. It wraps a Client and maintains
// message history across calls.
//
// Example:
//
//	conv := client.Conversation(
//	    chorus.ConvProvider("claude"),
//	    chorus.ConvSystem("You are a helpful assistant"),
//	)
//
//	reply, _ := conv.Say(ctx, "Hello!")
//	fmt.Println(reply.Text())
//
//	reply, _ = conv.Say(ctx, "What did I just say?")
//	fmt.Println(reply.Text()) // Remembers context
type Conversation struct {
	mu       sync.RWMutex
	client   *Client
	provider string
	model    string
	system   string
	messages []core.Message
	maxMsgs  int // Max messages to keep (0 = unlimited)
	metadata map[string]any
}

// Say sends a message and returns the response, automatically managing history.
func (c *Conversation) Say(ctx context.Context, text string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	userMsg := core.UserMessage(text)
	req := c.buildRequest(userMsg)

	result, err := c.client.send(ctx, c.provider, req)
	if err != nil {
		return nil, err
	}

	c.appendToHistory(userMsg, result)
	return result, nil
}

// Messages returns a copy of the conversation history.
func (c *Conversation) Messages() []core.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := make([]core.Message, len(c.messages))
	copy(msgs, c.messages)
	return msgs
}

// AddMessages appends messages to the conversation history.
func (c *Conversation) AddMessages(msgs ...core.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, msgs...)
	c.trim()
}

// Clear removes all messages from the conversation history.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = c.messages[:0]
}

// Rollback removes the last n messages from history.
func (c *Conversation) Rollback(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n >= len(c.messages) {
		c.messages = c.messages[:0]
		return
	}
	c.messages = c.messages[:len(c.messages)-n]
}

// Fork creates an independent copy of the conversation.
// Changes to the fork don't affect the original.
func (c *Conversation) Fork() *Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := make([]core.Message, len(c.messages))
	copy(msgs, c.messages)

	metadata := make(map[string]any, len(c.metadata))
	for k, v := range c.metadata {
		metadata[k] = v
	}

	return &Conversation{
		client:   c.client,
		provider: c.provider,
		model:    c.model,
		system:   c.system,
		messages: msgs,
		maxMsgs:  c.maxMsgs,
		metadata: metadata,
	}
}

// Provider returns the configured provider name.
func (c *Conversation) Provider() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provider
}

// Model returns the configured model override.
func (c *Conversation) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// System returns the system prompt.
func (c *Conversation) System() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.system
}

// MessageCount returns the number of messages in history.
func (c *Conversation) MessageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// buildRequest assembles the request for the next turn: system prompt,
// history, then the new user message.
func (c *Conversation) buildRequest(userMsg core.Message) core.Request {
	messages := make([]core.Message, 0, len(c.messages)+2)

	if c.system != "" {
		hasSystem := false
		for _, msg := range c.messages {
			if msg.Role == core.System {
				hasSystem = true
				break
			}
		}
		if !hasSystem {
			messages = append(messages, core.SystemMessage(c.system))
		}
	}

	messages = append(messages, c.messages...)
	messages = append(messages, userMsg)

	return core.Request{
		Model:    c.model,
		Messages: messages,
		Metadata: c.metadata,
	}
}

// appendToHistory adds the user message and result messages to history.
func (c *Conversation) appendToHistory(userMsg core.Message, result *Result) {
	c.messages = append(c.messages, userMsg)
	c.messages = append(c.messages, result.Messages()...)
	c.trim()
}

// trim enforces the maxMsgs limit.
func (c *Conversation) trim() {
	if c.maxMsgs <= 0 || len(c.messages) <= c.maxMsgs {
		return
	}

	startIdx := len(c.messages) - c.maxMsgs

	// If first message is system, preserve it
	if len(c.messages) > 0 && c.messages[0].Role == core.System {
		if startIdx < 1 {
			startIdx = 1
		}
		preserved := make([]core.Message, 0, c.maxMsgs)
		preserved = append(preserved, c.messages[0])
		preserved = append(preserved, c.messages[startIdx:]...)
		c.messages = preserved
		return
	}

	c.messages = c.messages[startIdx:]
}

// conversationJSON is the serialized form of a Conversation.
type conversationJSON struct {
	Provider string         `json:"provider,omitempty"`
	Model    string         `json:"model,omitempty"`
	System   string         `json:"system,omitempty"`
	MaxMsgs  int            `json:"max_messages,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Messages []core.Message `json:"messages"`
}

// MarshalJSON serializes the conversation to JSON.
func (c *Conversation) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data := conversationJSON{
		Provider: c.provider,
		Model:    c.model,
		System:   c.system,
		MaxMsgs:  c.maxMsgs,
		Metadata: c.metadata,
		Messages: c.messages,
	}
	return json.Marshal(data)
}

// UnmarshalJSON restores a conversation from JSON. The client binding is not
// serialized; use Client.Conversation or Attach to rebind after decoding.
func (c *Conversation) UnmarshalJSON(payload []byte) error {
	var data conversationJSON
	if err := json.Unmarshal(payload, &data); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.provider = data.Provider
	c.model = data.Model
	c.system = data.System
	c.maxMsgs = data.MaxMsgs
	c.metadata = data.Metadata
	c.messages = data.Messages
	return nil
}

// Attach binds the conversation to a client after deserialization.
func (c *Conversation) Attach(client *Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = client
}
