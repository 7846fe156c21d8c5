package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// config is the optional chorus.yaml file.
//
//	default_provider: claude
//	timeout: 90s
//	max_parallel: 2
//	stagger: 500ms
//	providers:
//	  openai:
//	    model: gpt-4.1
//	  gemini:
//	    base_url: https://my-gateway.example.com/v1beta
//	prompts:
//	  gemini: "Answer in one sentence."
//	aliases:
//	  fast: gemini
type config struct {
	DefaultProvider string                    `yaml:"default_provider"`
	System          string                    `yaml:"system"`
	Timeout         duration                  `yaml:"timeout"`
	MaxParallel     int                       `yaml:"max_parallel"`
	Stagger         duration                  `yaml:"stagger"`
	Providers       map[string]providerConfig `yaml:"providers"`
	Prompts         map[string]string         `yaml:"prompts"`
	Aliases         map[string]string         `yaml:"aliases"`
}

type providerConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// duration accepts time.ParseDuration spellings ("90s", "2m") in YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", node.Value, err)
	}
	*d = duration(parsed)
	return nil
}

func defaultChorusConfig() *config {
	return &config{
		Providers: make(map[string]providerConfig),
		Prompts:   make(map[string]string),
		Aliases:   make(map[string]string),
	}
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := defaultChorusConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// loadConfigOrDefault loads config from the given path. A missing file yields
// the defaults; parse failures are still returned.
func loadConfigOrDefault(path string) (*config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultChorusConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func (c *config) validate() error {
	var errs []error

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %s", time.Duration(c.Timeout)))
	}
	if c.MaxParallel < 0 {
		errs = append(errs, fmt.Errorf("max_parallel must be >= 0, got %d", c.MaxParallel))
	}
	if c.Stagger < 0 {
		errs = append(errs, fmt.Errorf("stagger must be >= 0, got %s", time.Duration(c.Stagger)))
	}

	return errors.Join(errs...)
}
