package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shillcollin/chorus/core"
	"github.com/shillcollin/chorus/internal/httpclient"
	"github.com/shillcollin/chorus/obs"
)

const (
	providerOptionThinkingBudget = "gemini.thinking.budget"
	providerOptionIncludeThought = "gemini.thinking.include_thoughts"
)

// Client implements core.Connector for the Gemini generateContent API.
type Client struct {
	opts       options
	httpClient *http.Client

	mu    sync.Mutex
	state core.State
}

// New constructs a new Gemini connector.
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
			"gemini: no API key configured (set GOOGLE_API_KEY)",
			core.WithProvider("gemini"))
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
	probeURL := strings.TrimRight(c.opts.baseURL, "/") + "/models?key=" + url.QueryEscape(c.opts.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return core.NewError(core.ErrConnectionFailed, "gemini: build probe request",
			core.WithProvider("gemini"), core.WithWrapped(err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.NewError(core.ErrConnectionFailed, "gemini: endpoint unreachable",
			core.WithProvider("gemini"), core.WithWrapped(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return core.NewError(core.ErrConnectionFailed,
			fmt.Sprintf("gemini: probe rejected: %s: %s", resp.Status, bytes.TrimSpace(data)),
			core.WithProvider("gemini"), core.WithStatus(resp.StatusCode))
	}
	return nil
}

// SendMessage issues one request against the generateContent endpoint.
func (c *Client) SendMessage(ctx context.Context, req core.Request) (_ *core.TextResult, err error) {
	ctx, recorder := obs.StartRequest(ctx, "providers.gemini.SendMessage",
		obs.ProviderAttr("gemini"),
		obs.OperationAttr("generateContent"),
	)
	var usageTokens obs.UsageTokens
	defer func() {
		recorder.End(err, usageTokens)
	}()

	if c.State() != core.StateConnected {
		return nil, core.NewError(core.ErrNotConnected, "gemini: send before connect",
			core.WithProvider("gemini"))
	}

	model := req.Model
	if model == "" {
		model = c.opts.model
	}
	payload := buildPayload(req)
	recorder.AddAttributes(obs.ModelAttr(model))

	start := time.Now()
	body, err := c.doRequest(ctx, model, payload)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp geminiResponse
	if decodeErr := json.NewDecoder(body).Decode(&resp); decodeErr != nil {
		return nil, core.NewError(core.ErrMalformedResponse, "gemini: decode response",
			core.WithProvider("gemini"), core.WithWrapped(decodeErr))
	}
	if len(resp.Candidates) == 0 {
		return nil, core.NewError(core.ErrMalformedResponse, "gemini: response carried no candidates",
			core.WithProvider("gemini"))
	}

	usage := resp.UsageMetadata.toCore()
	usageTokens = obs.UsageFromCore(usage)
	return &core.TextResult{
		Text:         resp.JoinText(),
		Model:        model,
		Provider:     "gemini",
		Usage:        usage,
		FinishReason: core.StopReason{Type: resp.Candidates[0].FinishReason},
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
		Provider:     "gemini",
		DefaultModel: c.opts.model,
	}
}

// buildPayload translates a core request into the generateContent wire
// shape. Gemini has no system role, so system text is prepended to the
// first user turn; assistant turns map to the model role.
func buildPayload(req core.Request) *geminiRequest {
	contents := make([]geminiContent, 0, len(req.Messages))
	var systemBuffer strings.Builder

	for _, msg := range req.Messages {
		if msg.Role == core.System {
			if systemBuffer.Len() > 0 {
				systemBuffer.WriteString("\n")
			}
			systemBuffer.WriteString(msg.Content)
			continue
		}
		role := "user"
		if msg.Role == core.Assistant {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	if systemBuffer.Len() > 0 {
		systemPart := geminiPart{Text: systemBuffer.String()}
		if len(contents) > 0 && contents[0].Role == "user" {
			contents[0].Parts = append([]geminiPart{systemPart}, contents[0].Parts...)
		} else {
			contents = append([]geminiContent{{Role: "user", Parts: []geminiPart{systemPart}}}, contents...)
		}
	}

	payload := &geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			TopP:            req.TopP,
		},
	}
	applyProviderOptions(payload, req.ProviderOptions)
	return payload
}

func applyProviderOptions(payload *geminiRequest, opts map[string]any) {
	if len(opts) == 0 {
		return
	}
	cfg := payload.GenerationConfig.ThinkingConfig
	if budget, ok := opts[providerOptionThinkingBudget].(int); ok {
		if cfg == nil {
			cfg = &geminiThinkingConfig{}
		}
		cfg.ThinkingBudget = budget
	}
	if include, ok := opts[providerOptionIncludeThought].(bool); ok {
		if cfg == nil {
			cfg = &geminiThinkingConfig{}
		}
		cfg.IncludeThoughts = include
	}
	payload.GenerationConfig.ThinkingConfig = cfg
}

func (c *Client) doRequest(ctx context.Context, model string, payload *geminiRequest) (io.ReadCloser, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, core.NewError(core.ErrInternal, "gemini: marshal payload",
			core.WithProvider("gemini"), core.WithWrapped(err))
	}
	fullURL := strings.TrimRight(c.opts.baseURL, "/") + "/models/" + url.PathEscape(model) + ":generateContent"
	if c.opts.apiKey != "" {
		fullURL += "?key=" + url.QueryEscape(c.opts.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, buf)
	if err != nil {
		return nil, core.NewError(core.ErrInternal, "gemini: build request",
			core.WithProvider("gemini"), core.WithWrapped(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		aiErr := core.FromTransport(err)
		aiErr.Provider = "gemini"
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
		core.WithProvider("gemini"),
		core.WithStatus(resp.StatusCode),
		core.WithRetryable(code == core.ErrRateLimited || code == core.ErrServerError || code == core.ErrTimeout),
	}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			opts = append(opts, core.WithRetryAfter(secs))
		}
	}
	return core.NewError(code, fmt.Sprintf("gemini: %s: %s", resp.Status, bytes.TrimSpace(body)), opts...)
}
