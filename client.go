package chorus

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shillcollin/chorus/core"
)

// Client is the unified entry point for talking to AI providers. It holds
// per-provider configuration and constructs connectors on demand; it never
// keeps live connections itself, so a Client is safe to share across
// goroutines for the life of the process.
type Client struct {
	mu         sync.RWMutex
	configs    map[string]ConnectorConfig
	aliases    map[string]string
	patches    []configPatch
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
	skipEnv    bool
}

// configPatch records an explicit per-provider configuration change made via
// a ClientOption. Patches are resolved after environment auto-configuration
// so explicit settings win over ambient ones.
type configPatch struct {
	name    string
	replace bool
	cfg     ConnectorConfig
	apply   func(*ConnectorConfig)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Client with auto-configuration from environment.
// Providers are configured automatically when their API keys are present in
// environment variables (e.g. OPENAI_API_KEY, ANTHROPIC_API_KEY); providers
// without credentials are silently left unconfigured.
//
// Import provider packages to enable them:
//
//	import (
//	    "github.com/shillcollin/chorus"
//	    _ "github.com/shillcollin/chorus/providers/openai"
//	    _ "github.com/shillcollin/chorus/providers/anthropic"
//	)
//
//	client := chorus.NewClient()
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		configs: make(map[string]ConnectorConfig),
		aliases: make(map[string]string),
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if !c.skipEnv {
		c.autoConfigureConnectors()
	}
	c.applyPatches()

	return c
}

// autoConfigureConnectors stages configuration for every registered factory
// whose default config carries an API key.
func (c *Client) autoConfigureConnectors() {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for name, factory := range registry {
		if _, exists := c.configs[name]; exists {
			continue
		}

		config := factory.DefaultConfig()
		if config.APIKey == "" {
			continue
		}
		c.configs[name] = c.fillDefaults(config)
	}
}

// applyPatches folds explicit option settings into the staged configs.
func (c *Client) applyPatches() {
	for _, patch := range c.patches {
		canonical, err := c.resolveProvider(patch.name)
		if err != nil {
			continue // unrecognized name, skip silently
		}

		cfg, ok := c.configs[canonical]
		if !ok {
			cfg = c.baseConfig(canonical)
		}
		if patch.replace {
			cfg = patch.cfg
		} else {
			patch.apply(&cfg)
		}
		c.configs[canonical] = c.fillDefaults(cfg)
	}
	c.patches = nil

	// A config without a credential leaves the provider unavailable.
	for name, cfg := range c.configs {
		if cfg.APIKey == "" {
			delete(c.configs, name)
		}
	}
}

// baseConfig returns the starting configuration for a provider that has not
// been staged yet: factory defaults, minus the environment credential when
// WithoutEnv was requested.
func (c *Client) baseConfig(canonical string) ConnectorConfig {
	factory, ok := GetConnectorFactory(canonical)
	if !ok {
		return ConnectorConfig{}
	}
	cfg := factory.DefaultConfig()
	if c.skipEnv {
		cfg.APIKey = ""
	}
	return cfg
}

func (c *Client) fillDefaults(cfg ConnectorConfig) ConnectorConfig {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = c.httpClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = c.timeout
	}
	return cfg
}

// Connector constructs a fresh, unconnected connector for the named provider.
// The name may be any accepted alias ("ChatGPT", "claude", ...). Connectors
// for providers without a configured credential are still returned; their
// Connect will fail with core.ErrCredentialMissing.
func (c *Client) Connector(name string) (core.Connector, error) {
	canonical, err := c.resolveProvider(name)
	if err != nil {
		return nil, err
	}
	return c.connectorFor(canonical)
}

func (c *Client) connectorFor(canonical string) (core.Connector, error) {
	factory, ok := GetConnectorFactory(canonical)
	if !ok {
		return nil, fmt.Errorf("%s: %w", canonical, ErrNoProvider)
	}

	c.mu.RLock()
	config, configured := c.configs[canonical]
	c.mu.RUnlock()

	if !configured {
		config = c.fillDefaults(c.baseConfig(canonical))
	}

	connector, err := factory.New(config)
	if err != nil {
		return nil, &ProviderError{Provider: canonical, Op: "New", Err: err}
	}
	return connector, nil
}

// Providers returns the sorted names of all configured providers.
func (c *Client) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.configs))
	for name := range c.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasProvider checks if a provider (by any accepted alias) has a configured
// credential.
func (c *Client) HasProvider(name string) bool {
	canonical, err := c.resolveProvider(name)
	if err != nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.configs[canonical]
	return ok
}

// Ask sends a single prompt to the named provider and returns the result.
// The full connector lifecycle runs inside: connect, send, disconnect.
func (c *Client) Ask(ctx context.Context, provider, prompt string) (*Result, error) {
	req := core.Request{Messages: []core.Message{core.UserMessage(prompt)}}
	return c.send(ctx, provider, req)
}

// Text is a convenience method that returns just the text of a reply.
// Returns ErrNoText if the response contains no text.
func (c *Client) Text(ctx context.Context, provider, prompt string) (string, error) {
	result, err := c.Ask(ctx, provider, prompt)
	if err != nil {
		return "", err
	}
	if !result.HasText() {
		return "", ErrNoText
	}
	return result.Text(), nil
}

// send runs one request through a connector's full lifecycle. Failures are
// wrapped in *ProviderError naming the provider and the failing operation.
func (c *Client) send(ctx context.Context, provider string, req core.Request) (*Result, error) {
	canonical, err := c.resolveProvider(provider)
	if err != nil {
		return nil, err
	}

	connector, err := c.connectorFor(canonical)
	if err != nil {
		return nil, err
	}

	if err := connector.Connect(ctx); err != nil {
		return nil, &ProviderError{Provider: canonical, Op: "Connect", Err: err}
	}
	defer func() {
		if err := connector.Disconnect(); err != nil {
			c.logger.Debug().Err(err).Str("provider", canonical).Msg("disconnect failed")
		}
	}()

	result, err := connector.SendMessage(ctx, req)
	if err != nil {
		return nil, &ProviderError{Provider: canonical, Op: "SendMessage", Err: err}
	}

	c.logger.Debug().
		Str("provider", canonical).
		Str("model", result.Model).
		Int("total_tokens", result.Usage.TotalTokens).
		Int64("latency_ms", result.LatencyMS).
		Msg("request complete")

	return newResult(result), nil
}

// Conversation creates a new Conversation with automatic history management.
// Use ConversationOption functions to configure the conversation.
//
// Example:
//
//	conv := client.Conversation(
//	    chorus.ConvProvider("claude"),
//	    chorus.ConvSystem("You are a helpful assistant"),
//	)
//
//	reply, err := conv.Say(ctx, "Hello!")
//	fmt.Println(reply.Text())
//
//	reply, err = conv.Say(ctx, "What did I just say?")
//	// Conversation history is maintained automatically.
func (c *Client) Conversation(opts ...ConversationOption) *Conversation {
	conv := &Conversation{
		client:   c,
		messages: make([]core.Message, 0),
		metadata: make(map[string]any),
	}

	for _, opt := range opts {
		opt(conv)
	}

	return conv
}
