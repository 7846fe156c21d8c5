package xai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shillcollin/chorus/core"
)

type roundTrip func(*http.Request) (*http.Response, error)

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req)
}

func TestSendMessage(t *testing.T) {
	transport := roundTrip(func(req *http.Request) (*http.Response, error) {
		if req.URL.Host != "api.x.ai" {
			t.Fatalf("unexpected host: %s", req.URL.Host)
		}
		var payload map[string]any
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["model"] != "grok-beta" {
			t.Fatalf("unexpected model: %v", payload["model"])
		}
		resp := map[string]any{
			"model": "grok-beta",
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "Grok here"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7},
		}
		buf, _ := json.Marshal(resp)
		return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(buf)), Header: http.Header{"Content-Type": []string{"application/json"}}}, nil
	})

	client := New(WithAPIKey("key"), WithHTTPClient(&http.Client{Transport: transport}))
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer client.Disconnect()

	res, err := client.SendMessage(context.Background(), core.Request{Messages: []core.Message{core.UserMessage("hi")}})
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if res.Text != "Grok here" {
		t.Fatalf("unexpected text: %s", res.Text)
	}
	if res.Provider != "xai" {
		t.Fatalf("unexpected provider: %s", res.Provider)
	}
}

func TestConnectWithoutKey(t *testing.T) {
	client := New()
	err := client.Connect(context.Background())
	if !core.IsCredentialMissing(err) {
		t.Fatalf("expected credential_missing, got %v", err)
	}
	var aiErr *core.AIError
	if !errors.As(err, &aiErr) {
		t.Fatalf("expected AIError, got %v", err)
	}
	if aiErr.Provider != "xai" {
		t.Fatalf("unexpected provider: %s", aiErr.Provider)
	}
	if !strings.Contains(aiErr.Message, "XAI_API_KEY") {
		t.Fatalf("error should name the env var: %s", aiErr.Message)
	}
}

func TestCapabilities(t *testing.T) {
	client := New()
	caps := client.Capabilities()
	if caps.Provider != "xai" || caps.DefaultModel != "grok-beta" {
		t.Fatalf("unexpected capabilities: %+v", caps)
	}
}
