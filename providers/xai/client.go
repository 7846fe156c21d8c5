package xai

import (
	"github.com/shillcollin/chorus/providers/compat"
)

// Client is the connector for the x.ai Grok API, an OpenAI-compatible
// surface.
type Client struct {
	*compat.Client
}

// New constructs a new x.ai connector.
func New(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		Client: compat.New(compat.CompatOpts{
			Provider:   "xai",
			BaseURL:    o.baseURL,
			APIKey:     o.apiKey,
			Model:      o.model,
			Headers:    o.headers,
			HTTPClient: o.httpClient,
			Timeout:    o.timeout,
			Probe:      o.probe,
		}),
	}
}
