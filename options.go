package chorus

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WithCredential sets the API key for a specific provider, overriding any
// environment credential. The provider name may be any accepted alias.
func WithCredential(provider, apiKey string) ClientOption {
	return func(c *Client) {
		c.patches = append(c.patches, configPatch{
			name:  provider,
			apply: func(cfg *ConnectorConfig) { cfg.APIKey = apiKey },
		})
	}
}

// WithCredentials sets API keys for several providers at once.
func WithCredentials(keys map[string]string) ClientOption {
	return func(c *Client) {
		for provider, apiKey := range keys {
			WithCredential(provider, apiKey)(c)
		}
	}
}

// WithConnectorConfig configures a provider with a full configuration,
// replacing defaults and environment settings wholesale.
func WithConnectorConfig(provider string, config ConnectorConfig) ClientOption {
	return func(c *Client) {
		c.patches = append(c.patches, configPatch{
			name:    provider,
			replace: true,
			cfg:     config,
		})
	}
}

// WithBaseURL sets a custom base URL for a specific provider.
// Useful for self-hosted gateways or proxy endpoints.
func WithBaseURL(provider, baseURL string) ClientOption {
	return func(c *Client) {
		c.patches = append(c.patches, configPatch{
			name:  provider,
			apply: func(cfg *ConnectorConfig) { cfg.BaseURL = baseURL },
		})
	}
}

// WithModel overrides the default model for a specific provider.
func WithModel(provider, model string) ClientOption {
	return func(c *Client) {
		c.patches = append(c.patches, configPatch{
			name:  provider,
			apply: func(cfg *ConnectorConfig) { cfg.Model = model },
		})
	}
}

// WithHTTPClient sets a custom HTTP client shared by all connectors.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout applied to all connectors that do
// not configure their own.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithAlias defines a runtime provider alias.
//
//	client := chorus.NewClient(
//	    chorus.WithAlias("fast", "gemini"),
//	    chorus.WithAlias("smart", "claude"),
//	)
//	reply, _ := client.Ask(ctx, "fast", "Hello")
func WithAlias(alias, provider string) ClientOption {
	return func(c *Client) {
		c.aliases[strings.ToLower(alias)] = provider
	}
}

// WithAliases sets multiple runtime aliases at once.
func WithAliases(aliases map[string]string) ClientOption {
	return func(c *Client) {
		for alias, provider := range aliases {
			c.aliases[strings.ToLower(alias)] = provider
		}
	}
}

// WithoutEnv disables credential auto-configuration from environment
// variables. Only providers configured explicitly through options are
// available.
func WithoutEnv() ClientOption {
	return func(c *Client) {
		c.skipEnv = true
	}
}

// WithLogger sets the structured logger used by the client and by Broadcast.
// The default logger discards everything.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}
