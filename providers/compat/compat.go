package compat

import (
	"context"
	"net/http"
	"time"

	"github.com/shillcollin/chorus/core"
	"github.com/shillcollin/chorus/providers/openai"
)

// CompatOpts configures a connector for an OpenAI-compatible endpoint.
// Provider names the upstream service so results and errors carry its
// name instead of openai.
type CompatOpts struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	Headers    map[string]string
	HTTPClient *http.Client
	Timeout    time.Duration
	Probe      bool
}

// Client adapts the OpenAI connector to any chat-completions compatible
// API surface.
type Client struct {
	inner *openai.Client
}

// New constructs a connector targeting an OpenAI-compatible API surface.
func New(opts CompatOpts) *Client {
	options := []openai.Option{
		openai.WithProviderName(opts.Provider),
	}
	if opts.BaseURL != "" {
		options = append(options, openai.WithBaseURL(opts.BaseURL))
	}
	if opts.APIKey != "" {
		options = append(options, openai.WithAPIKey(opts.APIKey))
	}
	if opts.Model != "" {
		options = append(options, openai.WithModel(opts.Model))
	}
	if opts.HTTPClient != nil {
		options = append(options, openai.WithHTTPClient(opts.HTTPClient))
	}
	if opts.Timeout > 0 {
		options = append(options, openai.WithTimeout(opts.Timeout))
	}
	if opts.Probe {
		options = append(options, openai.WithConnectProbe(true))
	}
	for k, v := range opts.Headers {
		options = append(options, openai.WithHeader(k, v))
	}
	return &Client{inner: openai.New(options...)}
}

func (c *Client) Connect(ctx context.Context) error {
	return c.inner.Connect(ctx)
}

func (c *Client) SendMessage(ctx context.Context, req core.Request) (*core.TextResult, error) {
	return c.inner.SendMessage(ctx, req)
}

func (c *Client) Disconnect() error {
	return c.inner.Disconnect()
}

func (c *Client) State() core.State {
	return c.inner.State()
}

func (c *Client) Capabilities() core.Capabilities {
	return c.inner.Capabilities()
}
