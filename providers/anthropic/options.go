package anthropic

import (
	"net/http"
	"time"
)

type Option func(*options)

type options struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	headers    map[string]string
	timeout    time.Duration
	probe      bool
}

func defaultOptions() options {
	return options{
		model:     "claude-3-5-sonnet-20241022",
		baseURL:   "https://api.anthropic.com/v1",
		maxTokens: 1024,
		timeout:   60 * time.Second,
		headers:   map[string]string{},
	}
}

func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithMaxTokens sets the default max_tokens for requests that carry none.
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

func WithHeader(key, value string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = map[string]string{}
		}
		o.headers[key] = value
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithConnectProbe makes Connect verify endpoint reachability with an
// authenticated request instead of only checking the credential locally.
func WithConnectProbe(enabled bool) Option {
	return func(o *options) { o.probe = enabled }
}
