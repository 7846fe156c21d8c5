package xai

import (
	"os"

	"github.com/shillcollin/chorus"
	"github.com/shillcollin/chorus/core"
)

func init() {
	chorus.RegisterConnector("xai", &Factory{})
}

// Factory creates x.ai connector instances.
type Factory struct{}

// New creates a new x.ai connector with the given configuration.
func (f *Factory) New(config chorus.ConnectorConfig) (core.Connector, error) {
	var opts []Option

	if config.APIKey != "" {
		opts = append(opts, WithAPIKey(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, WithBaseURL(config.BaseURL))
	}
	if config.Model != "" {
		opts = append(opts, WithModel(config.Model))
	}
	if config.HTTPClient != nil {
		opts = append(opts, WithHTTPClient(config.HTTPClient))
	}
	if config.Timeout > 0 {
		opts = append(opts, WithTimeout(config.Timeout))
	}
	for k, v := range config.Headers {
		opts = append(opts, WithHeader(k, v))
	}

	return New(opts...), nil
}

// DefaultConfig returns default configuration from environment variables.
func (f *Factory) DefaultConfig() chorus.ConnectorConfig {
	return chorus.ConnectorConfig{
		APIKey:  os.Getenv("XAI_API_KEY"),
		BaseURL: os.Getenv("XAI_BASE_URL"),
	}
}
