package anthropic

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

// Client implements core.Connector for Anthropic's Messages API.
type Client struct {
	opts       options
	httpClient *http.Client

	mu    sync.Mutex
	state core.State
}

// New constructs a new Anthropic connector.
func New(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = httpclient.New(httpclient.WithTimeout(o.timeout))
	}
	if _, ok := o.headers["anthropic-version"]; !ok {
		o.headers["anthropic-version"] = "2023-06-01"
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
			"anthropic: no API key configured (set ANTHROPIC_API_KEY)",
			core.WithProvider("anthropic"))
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

// probeEndpoint issues a lightweight authenticated request to confirm the
// endpoint accepts the credential.
func (c *Client) probeEndpoint(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.opts.baseURL, "/")+"/models", nil)
	if err != nil {
		return core.NewError(core.ErrConnectionFailed, "anthropic: build probe request",
			core.WithProvider("anthropic"), core.WithWrapped(err))
	}
	req.Header.Set("X-API-Key", c.opts.apiKey)
	for k, v := range c.opts.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.NewError(core.ErrConnectionFailed, "anthropic: endpoint unreachable",
			core.WithProvider("anthropic"), core.WithWrapped(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return core.NewError(core.ErrConnectionFailed,
			fmt.Sprintf("anthropic: probe rejected: %s: %s", resp.Status, bytes.TrimSpace(data)),
			core.WithProvider("anthropic"), core.WithStatus(resp.StatusCode))
	}
	return nil
}

// SendMessage issues one request against the Messages endpoint.
func (c *Client) SendMessage(ctx context.Context, req core.Request) (_ *core.TextResult, err error) {
	ctx, recorder := obs.StartRequest(ctx, "providers.anthropic.SendMessage",
		obs.ProviderAttr("anthropic"),
		obs.OperationAttr("messages"),
	)
	var usageTokens obs.UsageTokens
	defer func() {
		recorder.End(err, usageTokens)
	}()

	if c.State() != core.StateConnected {
		return nil, core.NewError(core.ErrNotConnected, "anthropic: send before connect",
			core.WithProvider("anthropic"))
	}

	payload := c.buildPayload(req)
	recorder.AddAttributes(obs.ModelAttr(payload.Model))

	start := time.Now()
	body, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp anthropicResponse
	if decodeErr := json.NewDecoder(body).Decode(&resp); decodeErr != nil {
		return nil, core.NewError(core.ErrMalformedResponse, "anthropic: decode response",
			core.WithProvider("anthropic"), core.WithWrapped(decodeErr))
	}
	if len(resp.Content) == 0 {
		return nil, core.NewError(core.ErrMalformedResponse, "anthropic: response carried no content",
			core.WithProvider("anthropic"))
	}

	usage := resp.Usage.toCore()
	usageTokens = obs.UsageFromCore(usage)
	return &core.TextResult{
		Text:         resp.JoinText(),
		Model:        resp.Model,
		Provider:     "anthropic",
		Usage:        usage,
		FinishReason: core.StopReason{Type: resp.StopReason},
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
		Provider:     "anthropic",
		DefaultModel: c.opts.model,
	}
}

// buildPayload translates a core request into the Messages wire shape.
// System messages move to the top-level system field; Anthropic requires
// max_tokens, so the configured default applies when the request has none.
func (c *Client) buildPayload(req core.Request) *anthropicRequest {
	model := req.Model
	if model == "" {
		model = c.opts.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.opts.maxTokens
	}

	payload := &anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	for _, msg := range req.Messages {
		if msg.Role == core.System {
			if payload.System != "" {
				payload.System += "\n"
			}
			payload.System += msg.Content
			continue
		}
		payload.Messages = append(payload.Messages, anthropicMessage{
			Role:    string(msg.Role),
			Content: []anthropicContent{{Type: "text", Text: msg.Content}},
		})
	}
	return payload
}

func (c *Client) doRequest(ctx context.Context, payload *anthropicRequest) (io.ReadCloser, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, core.NewError(core.ErrInternal, "anthropic: marshal payload",
			core.WithProvider("anthropic"), core.WithWrapped(err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.opts.baseURL, "/")+"/messages", buf)
	if err != nil {
		return nil, core.NewError(core.ErrInternal, "anthropic: build request",
			core.WithProvider("anthropic"), core.WithWrapped(err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.opts.apiKey)
	for k, v := range c.opts.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		aiErr := core.FromTransport(err)
		aiErr.Provider = "anthropic"
		return nil, aiErr
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(resp, data)
	}
	return resp.Body, nil
}

// statusError maps an HTTP error response to an AIError, preserving the
// response body and any Retry-After hint.
func statusError(resp *http.Response, body []byte) *core.AIError {
	code := core.FromHTTPStatus(resp.StatusCode)
	opts := []core.ErrorOption{
		core.WithProvider("anthropic"),
		core.WithStatus(resp.StatusCode),
		core.WithRetryable(code == core.ErrRateLimited || code == core.ErrServerError || code == core.ErrTimeout),
	}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			opts = append(opts, core.WithRetryAfter(secs))
		}
	}
	return core.NewError(code, fmt.Sprintf("anthropic: %s: %s", resp.Status, bytes.TrimSpace(body)), opts...)
}
