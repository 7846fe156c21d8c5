package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shillcollin/chorus/core"
	"github.com/shillcollin/chorus/internal/httpclient"
	"github.com/shillcollin/chorus/obs"
)

// Client implements core.Connector for the OpenAI Chat Completions API.
// With WithBaseURL and WithProviderName it also serves OpenAI-compatible
// endpoints such as x.ai.
type Client struct {
	opts       options
	httpClient *http.Client

	mu    sync.Mutex
	state core.State
}

// New constructs a new OpenAI connector.
func New(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = httpclient.New(httpclient.WithTimeout(o.timeout))
	}
	return &Client{opts: o, httpClient: o.httpClient}
}

// Connect resolves the API key and marks the session ready. Without a key it
// fails immediately and no network traffic occurs. When the connector was
// built WithConnectProbe, Connect also verifies the endpoint is reachable.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.apiKey == "" {
		return core.NewError(core.ErrCredentialMissing,
			fmt.Sprintf("%s: no API key configured (set %s_API_KEY)",
				c.opts.provider, strings.ToUpper(c.opts.provider)),
			core.WithProvider(c.opts.provider))
	}

	if c.opts.probe {
		if err := c.probeEndpoint(ctx); err != nil {
			c.state = core.StateFailed
			return err
		}
	}

	c.state = core.StateConnected
	return nil
}

func (c *Client) probeEndpoint(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.opts.baseURL, "/")+"/models", nil)
	if err != nil {
		return core.NewError(core.ErrConnectionFailed, c.opts.provider+": build probe request",
			core.WithProvider(c.opts.provider), core.WithWrapped(err))
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.apiKey)
	for k, v := range c.opts.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.NewError(core.ErrConnectionFailed, c.opts.provider+": endpoint unreachable",
			core.WithProvider(c.opts.provider), core.WithWrapped(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return core.NewError(core.ErrConnectionFailed,
			fmt.Sprintf("%s: probe rejected: %s: %s", c.opts.provider, resp.Status, bytes.TrimSpace(data)),
			core.WithProvider(c.opts.provider), core.WithStatus(resp.StatusCode))
	}
	return nil
}

// SendMessage issues one request against the chat completions endpoint.
func (c *Client) SendMessage(ctx context.Context, req core.Request) (_ *core.TextResult, err error) {
	ctx, recorder := obs.StartRequest(ctx, "providers."+c.opts.provider+".SendMessage",
		obs.ProviderAttr(c.opts.provider),
		obs.OperationAttr("chat.completions"),
	)
	var usageTokens obs.UsageTokens
	defer func() {
		recorder.End(err, usageTokens)
	}()

	if c.State() != core.StateConnected {
		return nil, core.NewError(core.ErrNotConnected, c.opts.provider+": send before connect",
			core.WithProvider(c.opts.provider))
	}

	payload := c.buildPayload(req)
	recorder.AddAttributes(obs.ModelAttr(payload.Model))

	start := time.Now()
	body, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp chatCompletionResponse
	if decodeErr := json.NewDecoder(body).Decode(&resp); decodeErr != nil {
		return nil, core.NewError(core.ErrMalformedResponse, c.opts.provider+": decode response",
			core.WithProvider(c.opts.provider), core.WithWrapped(decodeErr))
	}
	if len(resp.Choices) == 0 {
		return nil, core.NewError(core.ErrMalformedResponse, c.opts.provider+": response carried no choices",
			core.WithProvider(c.opts.provider))
	}
	choice := resp.Choices[0]

	usage := resp.Usage.toCore()
	usageTokens = obs.UsageFromCore(usage)
	return &core.TextResult{
		Text:         choice.Message.Content,
		Model:        resp.Model,
		Provider:     c.opts.provider,
		Usage:        usage,
		FinishReason: core.StopReason{Type: choice.FinishReason},
		LatencyMS:    time.Since(start).Milliseconds(),
	}, nil
}

// Disconnect releases idle connections and returns to the disconnected state.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == core.StateDisconnected {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	c.state = core.StateDisconnected
	return nil
}

// State reports the current connection state.
func (c *Client) State() core.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Capabilities implements core.Connector.
func (c *Client) Capabilities() core.Capabilities {
	return core.Capabilities{
		Provider:         c.opts.provider,
		DefaultModel:     c.opts.model,
		OpenAICompatible: true,
	}
}

// buildPayload translates a core request into the chat completions wire
// shape. Reasoning models refuse sampling parameters and expect
// max_completion_tokens, so the model profile decides which fields go out.
func (c *Client) buildPayload(req core.Request) *chatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.opts.model
	}
	profile := profileForModel(model)

	payload := &chatCompletionRequest{Model: model}
	if profile.AllowSampling {
		payload.Temperature = req.Temperature
		payload.TopP = req.TopP
	}
	if req.MaxTokens > 0 {
		if profile.UseMaxCompletionTokens {
			payload.MaxCompletionTokens = req.MaxTokens
		} else {
			payload.MaxTokens = req.MaxTokens
		}
	}
	for _, msg := range req.Messages {
		payload.Messages = append(payload.Messages, openAIMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return payload
}

func (c *Client) doRequest(ctx context.Context, payload *chatCompletionRequest) (io.ReadCloser, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, core.NewError(core.ErrInternal, c.opts.provider+": marshal payload",
			core.WithProvider(c.opts.provider), core.WithWrapped(err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.opts.baseURL, "/")+"/chat/completions", buf)
	if err != nil {
		return nil, core.NewError(core.ErrInternal, c.opts.provider+": build request",
			core.WithProvider(c.opts.provider), core.WithWrapped(err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.apiKey)
	for k, v := range c.opts.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		aiErr := core.FromTransport(err)
		aiErr.Provider = c.opts.provider
		return nil, aiErr
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(c.opts.provider, resp, data)
	}
	return resp.Body, nil
}

// statusError maps an HTTP error response to an AIError, preserving the
// response body and any Retry-After hint.
func statusError(provider string, resp *http.Response, body []byte) *core.AIError {
	code := core.FromHTTPStatus(resp.StatusCode)
	opts := []core.ErrorOption{
		core.WithProvider(provider),
		core.WithStatus(resp.StatusCode),
		core.WithRetryable(code == core.ErrRateLimited || code == core.ErrServerError || code == core.ErrTimeout),
	}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			opts = append(opts, core.WithRetryAfter(secs))
		}
	}
	return core.NewError(code, fmt.Sprintf("%s: %s: %s", provider, resp.Status, bytes.TrimSpace(body)), opts...)
}
