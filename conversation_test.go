package chorus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shillcollin/chorus/core"
	"github.com/shillcollin/chorus/internal/testutil"
)

func conversationClient(t *testing.T) (*Client, *testutil.MockConnector) {
	t.Helper()
	connector := testutil.NewMockConnector()
	register(t, "mock", &mockFactory{connector: connector, defaultCfg: ConnectorConfig{APIKey: "k"}})
	return NewClient(), connector
}

func TestConversationBasicSay(t *testing.T) {
	client, connector := conversationClient(t)
	connector.SetResponse("Hello! How can I help you?")

	conv := client.Conversation(
		ConvProvider("mock"),
		ConvSystem("You are a helpful assistant"),
	)

	result, err := conv.Say(context.Background(), "Hello!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text() != "Hello! How can I help you?" {
		t.Errorf("unexpected reply: %q", result.Text())
	}

	msgs := conv.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages in history, got %d", len(msgs))
	}
	if msgs[0].Role != core.User {
		t.Errorf("expected first message to be user, got %s", msgs[0].Role)
	}
	if msgs[1].Role != core.Assistant {
		t.Errorf("expected second message to be assistant, got %s", msgs[1].Role)
	}
}

func TestConversationMultiTurn(t *testing.T) {
	client, connector := conversationClient(t)

	callCount := 0
	connector.OnSendMessage = func(ctx context.Context, req core.Request) (*core.TextResult, error) {
		callCount++
		if callCount == 1 {
			if len(req.Messages) != 2 { // system + user
				t.Errorf("expected system and user message, got %d", len(req.Messages))
			}
			if req.Messages[0].Role != core.System {
				t.Errorf("system prompt should lead the request")
			}
			return &core.TextResult{Text: "Hello! I'm here to help.", Provider: "mock"}, nil
		}
		if len(req.Messages) != 4 { // system + user + assistant + user
			t.Errorf("expected history in second request, got %d messages", len(req.Messages))
		}
		return &core.TextResult{Text: "I said: Hello! I'm here to help.", Provider: "mock"}, nil
	}

	conv := client.Conversation(
		ConvProvider("mock"),
		ConvSystem("You are a helpful assistant"),
	)

	ctx := context.Background()
	if _, err := conv.Say(ctx, "Hello!"); err != nil {
		t.Fatalf("first turn error: %v", err)
	}
	result, err := conv.Say(ctx, "What did you just say?")
	if err != nil {
		t.Fatalf("second turn error: %v", err)
	}
	if result.Text() != "I said: Hello! I'm here to help." {
		t.Errorf("unexpected response: %q", result.Text())
	}
	if conv.MessageCount() != 4 {
		t.Errorf("expected 4 messages, got %d", conv.MessageCount())
	}
}

func TestConversationFailedTurnLeavesHistory(t *testing.T) {
	client, connector := conversationClient(t)
	connector.SendErr = core.NewError(core.ErrServerError, "mock: boom", core.WithProvider("mock"))

	conv := client.Conversation(ConvProvider("mock"))
	if _, err := conv.Say(context.Background(), "Hello!"); err == nil {
		t.Fatalf("expected error")
	}
	if conv.MessageCount() != 0 {
		t.Errorf("failed turn must not pollute history, got %d messages", conv.MessageCount())
	}
}

func TestConversationRollback(t *testing.T) {
	client, connector := conversationClient(t)
	connector.SetResponse("Response")

	conv := client.Conversation(ConvProvider("mock"))
	ctx := context.Background()
	conv.Say(ctx, "Message 1")
	conv.Say(ctx, "Message 2")
	conv.Say(ctx, "Message 3")

	if conv.MessageCount() != 6 {
		t.Fatalf("expected 6 messages, got %d", conv.MessageCount())
	}

	conv.Rollback(2)
	if conv.MessageCount() != 4 {
		t.Errorf("expected 4 messages after rollback, got %d", conv.MessageCount())
	}

	conv.Rollback(100)
	if conv.MessageCount() != 0 {
		t.Errorf("oversized rollback should clear history, got %d", conv.MessageCount())
	}
}

func TestConversationClear(t *testing.T) {
	client, connector := conversationClient(t)
	connector.SetResponse("Response")

	conv := client.Conversation(ConvProvider("mock"))
	conv.Say(context.Background(), "Hello")
	if conv.MessageCount() == 0 {
		t.Fatal("expected messages after Say")
	}

	conv.Clear()
	if conv.MessageCount() != 0 {
		t.Errorf("expected 0 messages after clear, got %d", conv.MessageCount())
	}
}

func TestConversationFork(t *testing.T) {
	client, connector := conversationClient(t)
	connector.SetResponse("Response")

	conv := client.Conversation(
		ConvProvider("mock"),
		ConvSystem("System prompt"),
	)

	ctx := context.Background()
	conv.Say(ctx, "Hello")

	fork := conv.Fork()
	conv.Say(ctx, "Original continues")

	if conv.MessageCount() != 4 {
		t.Errorf("original should have 4 messages, got %d", conv.MessageCount())
	}
	if fork.MessageCount() != 2 {
		t.Errorf("fork should be untouched, got %d", fork.MessageCount())
	}
	if fork.Provider() != conv.Provider() || fork.System() != conv.System() {
		t.Errorf("fork should keep settings")
	}

	fork.Say(ctx, "Fork diverges")
	origMsgs := conv.Messages()
	forkMsgs := fork.Messages()
	if origMsgs[2].Content == forkMsgs[2].Content {
		t.Errorf("fork and original histories should diverge")
	}
}

func TestConversationMaxMessages(t *testing.T) {
	client, connector := conversationClient(t)
	connector.SetResponse("Response")

	conv := client.Conversation(
		ConvProvider("mock"),
		ConvMaxMessages(4),
	)

	ctx := context.Background()
	conv.Say(ctx, "Message 1")
	conv.Say(ctx, "Message 2")
	conv.Say(ctx, "Message 3")

	if conv.MessageCount() != 4 {
		t.Errorf("expected 4 messages (max), got %d", conv.MessageCount())
	}

	msgs := conv.Messages()
	lastUser := msgs[len(msgs)-2]
	if lastUser.Content != "Message 3" {
		t.Errorf("most recent turns should be kept, got %q", lastUser.Content)
	}
}

func TestConversationMaxMessagesPreservesSystem(t *testing.T) {
	client, connector := conversationClient(t)
	connector.SetResponse("Response")

	conv := client.Conversation(
		ConvProvider("mock"),
		ConvMaxMessages(3),
	)
	conv.AddMessages(core.SystemMessage("I am the system"))

	ctx := context.Background()
	conv.Say(ctx, "Message 1")
	conv.Say(ctx, "Message 2")

	msgs := conv.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != core.System {
		t.Errorf("system message should survive trimming, got %s", msgs[0].Role)
	}
}

func TestConversationJSONRoundtrip(t *testing.T) {
	client, connector := conversationClient(t)
	connector.SetResponse("Response")

	conv := client.Conversation(
		ConvProvider("mock"),
		ConvModel("mock-large"),
		ConvSystem("System prompt"),
		ConvMetadata("session", "abc"),
	)
	conv.Say(context.Background(), "Hello!")

	data, err := json.Marshal(conv)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	conv2 := client.Conversation()
	if err := json.Unmarshal(data, conv2); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if conv2.Provider() != conv.Provider() {
		t.Errorf("provider mismatch: %q vs %q", conv2.Provider(), conv.Provider())
	}
	if conv2.Model() != conv.Model() {
		t.Errorf("model mismatch: %q vs %q", conv2.Model(), conv.Model())
	}
	if conv2.System() != conv.System() {
		t.Errorf("system mismatch: %q vs %q", conv2.System(), conv.System())
	}
	if conv2.MessageCount() != conv.MessageCount() {
		t.Errorf("message count mismatch: %d vs %d", conv2.MessageCount(), conv.MessageCount())
	}

	// The restored conversation is bound to the client and can continue.
	if _, err := conv2.Say(context.Background(), "Still there?"); err != nil {
		t.Fatalf("restored conversation Say error: %v", err)
	}
}

func TestConversationAttach(t *testing.T) {
	client, connector := conversationClient(t)
	connector.SetResponse("Response")

	conv := client.Conversation(ConvProvider("mock"))
	conv.Say(context.Background(), "Hello")

	data, err := json.Marshal(conv)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	restored := &Conversation{}
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	restored.Attach(client)

	if _, err := restored.Say(context.Background(), "Continue"); err != nil {
		t.Fatalf("Say after Attach error: %v", err)
	}
	if restored.MessageCount() != 4 {
		t.Errorf("expected 4 messages, got %d", restored.MessageCount())
	}
}

func TestConversationThreadSafety(t *testing.T) {
	client, connector := conversationClient(t)
	connector.SetResponse("Response")

	conv := client.Conversation(ConvProvider("mock"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv.Say(ctx, "Message")
		}()
	}
	wg.Wait()

	if conv.MessageCount() != 20 {
		t.Errorf("expected 20 messages, got %d", conv.MessageCount())
	}
}

func TestConversationAddMessages(t *testing.T) {
	client, _ := conversationClient(t)

	conv := client.Conversation(ConvProvider("mock"))
	conv.AddMessages(
		core.UserMessage("Hello"),
		core.AssistantMessage("Hi there!"),
	)

	if conv.MessageCount() != 2 {
		t.Errorf("expected 2 messages, got %d", conv.MessageCount())
	}
	msgs := conv.Messages()
	if msgs[0].Role != core.User || msgs[1].Role != core.Assistant {
		t.Errorf("unexpected roles: %s %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestConversationSystemNotDuplicated(t *testing.T) {
	client, connector := conversationClient(t)

	var lastReq core.Request
	connector.OnSendMessage = func(ctx context.Context, req core.Request) (*core.TextResult, error) {
		lastReq = req
		return &core.TextResult{Text: "ok", Provider: "mock"}, nil
	}

	conv := client.Conversation(
		ConvProvider("mock"),
		ConvSystem("configured system"),
	)
	conv.AddMessages(core.SystemMessage("history system"))

	conv.Say(context.Background(), "Hello")

	systemCount := 0
	for _, msg := range lastReq.Messages {
		if msg.Role == core.System {
			systemCount++
		}
	}
	if systemCount != 1 {
		t.Errorf("expected exactly one system message, got %d", systemCount)
	}
}
