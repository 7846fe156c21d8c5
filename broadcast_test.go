package chorus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shillcollin/chorus/core"
	"github.com/shillcollin/chorus/internal/testutil"
)

func registerMany(factories map[string]*mockFactory) {
	clearRegistry()
	for name, factory := range factories {
		RegisterConnector(name, factory)
	}
}

func respondingConnector(provider, text string) *testutil.MockConnector {
	connector := testutil.NewMockConnector()
	connector.Caps = core.Capabilities{Provider: provider, DefaultModel: "mock-model"}
	connector.Response = &core.TextResult{
		Text:     text,
		Model:    "mock-model",
		Provider: provider,
		Usage:    core.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}
	return connector
}

func TestBroadcastCollectsAllResponses(t *testing.T) {
	alpha := respondingConnector("alpha", "from alpha")
	beta := respondingConnector("beta", "from beta")
	registerMany(map[string]*mockFactory{
		"alpha": {connector: alpha, defaultCfg: ConnectorConfig{APIKey: "k"}},
		"beta":  {connector: beta, defaultCfg: ConnectorConfig{APIKey: "k"}},
	})

	client := NewClient()
	round, err := client.Broadcast(context.Background(), "hello", []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}
	if round.ID == "" {
		t.Fatalf("round should carry an id")
	}
	if len(round.Responses) != 2 || len(round.Failures) != 0 {
		t.Fatalf("unexpected round: responses=%d failures=%d", len(round.Responses), len(round.Failures))
	}
	if text, ok := round.Response("alpha"); !ok || text != "from alpha" {
		t.Fatalf("unexpected alpha response: %q %v", text, ok)
	}
	if text, ok := round.Response("beta"); !ok || text != "from beta" {
		t.Fatalf("unexpected beta response: %q %v", text, ok)
	}
	if alpha.DisconnectCalls != 1 || beta.DisconnectCalls != 1 {
		t.Fatalf("both connectors should be disconnected after the round")
	}
}

func TestBroadcastSkipsUnavailableProvider(t *testing.T) {
	alpha := respondingConnector("alpha", "from alpha")
	beta := testutil.NewMockConnector()
	beta.ConnectErr = core.NewError(core.ErrCredentialMissing, "beta: no API key", core.WithProvider("beta"))
	gamma := respondingConnector("gamma", "from gamma")
	registerMany(map[string]*mockFactory{
		"alpha": {connector: alpha, defaultCfg: ConnectorConfig{APIKey: "k"}},
		"beta":  {connector: beta},
		"gamma": {connector: gamma, defaultCfg: ConnectorConfig{APIKey: "k"}},
	})

	client := NewClient()
	round, err := client.Broadcast(context.Background(), "hello", []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}
	if got := round.Succeeded(); len(got) != 2 || got[0] != "alpha" || got[1] != "gamma" {
		t.Fatalf("unexpected succeeded set: %v", got)
	}
	if got := round.Failed(); len(got) != 1 || got[0] != "beta" {
		t.Fatalf("unexpected failed set: %v", got)
	}
	failure := round.Failures["beta"]
	if !core.IsCredentialMissing(failure) {
		t.Fatalf("expected credential_missing, got %v", failure)
	}
	var provErr *ProviderError
	if !errors.As(failure, &provErr) || provErr.Op != "Connect" {
		t.Fatalf("failure should name the failing operation: %v", failure)
	}
}

func TestBroadcastSendFailureStaysInRound(t *testing.T) {
	alpha := respondingConnector("alpha", "from alpha")
	beta := testutil.NewMockConnector()
	beta.SendErr = core.NewError(core.ErrServerError, "beta: boom",
		core.WithProvider("beta"), core.WithStatus(500))
	registerMany(map[string]*mockFactory{
		"alpha": {connector: alpha, defaultCfg: ConnectorConfig{APIKey: "k"}},
		"beta":  {connector: beta, defaultCfg: ConnectorConfig{APIKey: "k"}},
	})

	client := NewClient()
	round, err := client.Broadcast(context.Background(), "hello", []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("send failures must not escape: %v", err)
	}
	if _, ok := round.Responses["alpha"]; !ok {
		t.Fatalf("healthy provider should still answer")
	}
	var provErr *ProviderError
	if !errors.As(round.Failures["beta"], &provErr) || provErr.Op != "SendMessage" {
		t.Fatalf("unexpected failure: %v", round.Failures["beta"])
	}
	if beta.DisconnectCalls != 1 {
		t.Fatalf("failed provider should still be disconnected")
	}
}

func TestBroadcastAllUnavailable(t *testing.T) {
	alpha := testutil.NewMockConnector()
	alpha.ConnectErr = core.NewError(core.ErrCredentialMissing, "alpha: no API key", core.WithProvider("alpha"))
	beta := testutil.NewMockConnector()
	beta.ConnectErr = core.NewError(core.ErrCredentialMissing, "beta: no API key", core.WithProvider("beta"))
	registerMany(map[string]*mockFactory{
		"alpha": {connector: alpha},
		"beta":  {connector: beta},
	})

	client := NewClient()
	round, err := client.Broadcast(context.Background(), "hello", []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("an empty round is not an error: %v", err)
	}
	if len(round.Responses) != 0 {
		t.Fatalf("no provider should answer: %v", round.Responses)
	}
	if len(round.Failures) != 2 {
		t.Fatalf("every provider should be accounted for: %v", round.Failures)
	}
}

func TestBroadcastUnknownProvider(t *testing.T) {
	registerMany(map[string]*mockFactory{
		"alpha": {defaultCfg: ConnectorConfig{APIKey: "k"}},
	})

	client := NewClient()
	_, err := client.Broadcast(context.Background(), "hello", []string{"alpha", "nope"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestBroadcastDedupesAliases(t *testing.T) {
	connector := respondingConnector("anthropic", "once")
	registerMany(map[string]*mockFactory{
		"anthropic": {connector: connector, defaultCfg: ConnectorConfig{APIKey: "k"}},
	})

	client := NewClient()
	round, err := client.Broadcast(context.Background(), "hello", []string{"claude", "anthropic", "Claude"})
	if err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}
	if len(round.Attempted) != 1 || round.Attempted[0] != "anthropic" {
		t.Fatalf("aliases should collapse to one attempt: %v", round.Attempted)
	}
	if len(connector.SendCalls) != 1 {
		t.Fatalf("provider should be asked once, got %d", len(connector.SendCalls))
	}
}

func TestBroadcastAttemptOrder(t *testing.T) {
	registerMany(map[string]*mockFactory{
		"alpha": {connector: respondingConnector("alpha", "a"), defaultCfg: ConnectorConfig{APIKey: "k"}},
		"beta":  {connector: respondingConnector("beta", "b"), defaultCfg: ConnectorConfig{APIKey: "k"}},
		"gamma": {connector: respondingConnector("gamma", "c"), defaultCfg: ConnectorConfig{APIKey: "k"}},
	})

	client := NewClient()
	round, err := client.Broadcast(context.Background(), "hello", []string{"gamma", "alpha", "beta"})
	if err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}
	want := []string{"gamma", "alpha", "beta"}
	for i, name := range want {
		if round.Attempted[i] != name {
			t.Fatalf("attempt order not preserved: %v", round.Attempted)
		}
	}
	if got := round.Succeeded(); len(got) != 3 || got[0] != "gamma" {
		t.Fatalf("succeeded should follow attempt order: %v", got)
	}
}

func TestBroadcastPerProviderPrompts(t *testing.T) {
	alpha := respondingConnector("alpha", "a")
	beta := respondingConnector("beta", "b")
	registerMany(map[string]*mockFactory{
		"alpha": {connector: alpha, defaultCfg: ConnectorConfig{APIKey: "k"}},
		"beta":  {connector: beta, defaultCfg: ConnectorConfig{APIKey: "k"}},
	})

	client := NewClient()
	_, err := client.Broadcast(context.Background(), "shared", []string{"alpha", "beta"},
		WithPrompts(func(provider string) string {
			if provider == "alpha" {
				return "custom for alpha"
			}
			return ""
		}),
	)
	if err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}
	if got := alpha.SendCalls[0].Messages[0].Content; got != "custom for alpha" {
		t.Fatalf("unexpected alpha prompt: %q", got)
	}
	if got := beta.SendCalls[0].Messages[0].Content; got != "shared" {
		t.Fatalf("empty custom prompt should fall back to the shared one: %q", got)
	}
}

func TestBroadcastMaxParallel(t *testing.T) {
	var mu sync.Mutex
	var current, peak int
	slowSend := func(provider string) func(context.Context, core.Request) (*core.TextResult, error) {
		return func(ctx context.Context, req core.Request) (*core.TextResult, error) {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			current--
			mu.Unlock()
			return &core.TextResult{Text: "ok", Provider: provider}, nil
		}
	}

	factories := make(map[string]*mockFactory)
	for _, name := range []string{"p1", "p2", "p3", "p4"} {
		connector := testutil.NewMockConnector()
		connector.OnSendMessage = slowSend(name)
		factories[name] = &mockFactory{connector: connector, defaultCfg: ConnectorConfig{APIKey: "k"}}
	}
	registerMany(factories)

	client := NewClient()
	round, err := client.Broadcast(context.Background(), "hello", []string{"p1", "p2", "p3", "p4"},
		WithMaxParallel(2))
	if err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}
	if len(round.Responses) != 4 {
		t.Fatalf("all providers should answer: %v", round.Failed())
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Fatalf("parallelism cap exceeded: peak %d", peak)
	}
}

func TestBroadcastPerProviderTimeout(t *testing.T) {
	slow := testutil.NewMockConnector()
	slow.OnSendMessage = func(ctx context.Context, req core.Request) (*core.TextResult, error) {
		<-ctx.Done()
		return nil, core.FromTransport(ctx.Err())
	}
	fast := respondingConnector("fast", "quick")
	registerMany(map[string]*mockFactory{
		"slow": {connector: slow, defaultCfg: ConnectorConfig{APIKey: "k"}},
		"fast": {connector: fast, defaultCfg: ConnectorConfig{APIKey: "k"}},
	})

	client := NewClient()
	round, err := client.Broadcast(context.Background(), "hello", []string{"slow", "fast"},
		WithPerProviderTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}
	if _, ok := round.Responses["fast"]; !ok {
		t.Fatalf("fast provider should answer")
	}
	if !core.IsTimeout(round.Failures["slow"]) {
		t.Fatalf("expected timeout failure, got %v", round.Failures["slow"])
	}
}

func TestBroadcastParentCancellation(t *testing.T) {
	blocked := testutil.NewMockConnector()
	blocked.OnSendMessage = func(ctx context.Context, req core.Request) (*core.TextResult, error) {
		<-ctx.Done()
		return nil, core.FromTransport(ctx.Err())
	}
	never := respondingConnector("never", "unreached")
	registerMany(map[string]*mockFactory{
		"blocked": {connector: blocked, defaultCfg: ConnectorConfig{APIKey: "k"}},
		"never":   {connector: never, defaultCfg: ConnectorConfig{APIKey: "k"}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	client := NewClient()
	round, err := client.Broadcast(ctx, "hello", []string{"blocked", "never"},
		WithStagger(time.Second))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if round == nil {
		t.Fatalf("partial round should still be returned")
	}
	if len(round.Failures) != 2 {
		t.Fatalf("both providers should be accounted for: %v", round.Failures)
	}
	if len(never.SendCalls) != 0 {
		t.Fatalf("staggered provider should never launch after cancel")
	}
}

func TestBroadcastNoProviders(t *testing.T) {
	clearRegistry()

	client := NewClient()
	round, err := client.Broadcast(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}
	if len(round.Attempted) != 0 || len(round.Responses) != 0 || len(round.Failures) != 0 {
		t.Fatalf("empty round expected: %+v", round)
	}
}
