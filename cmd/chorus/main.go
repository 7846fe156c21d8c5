package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shillcollin/chorus"
	"github.com/shillcollin/chorus/obs"
	_ "github.com/shillcollin/chorus/providers/anthropic"
	_ "github.com/shillcollin/chorus/providers/gemini"
	_ "github.com/shillcollin/chorus/providers/openai"
	_ "github.com/shillcollin/chorus/providers/xai"
)

var log zerolog.Logger

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "chorus",
	Short: "Talk to AI providers through one interface",
	Long: `chorus sends prompts to OpenAI, Anthropic, Gemini and xAI through a
single connector abstraction.

Credentials come from the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY,
GOOGLE_API_KEY, XAI_API_KEY) or a .env file in the working directory. An
optional chorus.yaml configures models, base URLs and broadcast behavior.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log = log.Level(zerolog.DebugLevel)
		}
	},
}

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger().Level(zerolog.InfoLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	shutdownObs, err := initObservability(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "observability init warning: %v\n", err)
	}
	defer func() {
		if shutdownObs != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownObs(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "observability shutdown error: %v\n", err)
			}
		}
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "chorus.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// buildClient assembles the shared client from the config file and any
// command-specific overrides.
func buildClient(extra ...chorus.ClientOption) (*chorus.Client, *config, error) {
	cfg, err := loadConfigOrDefault(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []chorus.ClientOption{chorus.WithLogger(log)}
	if cfg.Timeout > 0 {
		opts = append(opts, chorus.WithTimeout(time.Duration(cfg.Timeout)))
	}
	for name, pc := range cfg.Providers {
		if pc.Model != "" {
			opts = append(opts, chorus.WithModel(name, pc.Model))
		}
		if pc.BaseURL != "" {
			opts = append(opts, chorus.WithBaseURL(name, pc.BaseURL))
		}
	}
	if len(cfg.Aliases) > 0 {
		opts = append(opts, chorus.WithAliases(cfg.Aliases))
	}
	opts = append(opts, extra...)

	return chorus.NewClient(opts...), cfg, nil
}

func initObservability(ctx context.Context) (func(context.Context) error, error) {
	opts := obs.DefaultOptions()
	opts.ServiceName = "chorus-cli"

	setExporterFromEnv(&opts)
	configureMetricsFromEnv(&opts)
	configureBraintrustFromEnv(&opts)

	if opts.Exporter == obs.ExporterNone && !opts.Braintrust.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	shutdown, err := obs.Init(ctx, opts)
	if err != nil {
		return func(context.Context) error { return nil }, fmt.Errorf("init observability: %w", err)
	}
	return shutdown, nil
}

func setExporterFromEnv(opts *obs.Options) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("CHORUS_OBS_EXPORTER"))) {
	case "stdout":
		opts.Exporter = obs.ExporterStdout
	case "otlp":
		opts.Exporter = obs.ExporterOTLP
	case "none":
		opts.Exporter = obs.ExporterNone
	}

	if opts.Exporter == obs.ExporterOTLP {
		if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
			opts.Endpoint = endpoint
		}
		if strings.EqualFold(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"), "true") {
			opts.Insecure = true
		}
	}

	// OTLP without an explicit endpoint would block on a dial nobody answers.
	if opts.Exporter == obs.ExporterOTLP && opts.Endpoint == "" {
		opts.Exporter = obs.ExporterNone
	}

	if opts.Exporter != obs.ExporterOTLP {
		opts.Endpoint = ""
		opts.Insecure = false
	}
}

func configureMetricsFromEnv(opts *obs.Options) {
	if strings.EqualFold(os.Getenv("CHORUS_OBS_DISABLE_METRICS"), "true") {
		opts.DisableMetrics = true
	}
	if ratio := strings.TrimSpace(os.Getenv("CHORUS_OBS_SAMPLE_RATIO")); ratio != "" {
		if v, err := strconv.ParseFloat(ratio, 64); err == nil && v > 0 && v <= 1 {
			opts.SampleRatio = v
		}
	}
}

func configureBraintrustFromEnv(opts *obs.Options) {
	key := strings.TrimSpace(os.Getenv("BRAINTRUST_API_KEY"))
	if key == "" {
		opts.Braintrust.Enabled = false
		return
	}
	proj := strings.TrimSpace(os.Getenv("BRAINTRUST_PROJECT_NAME"))
	projID := strings.TrimSpace(os.Getenv("BRAINTRUST_PROJECT_ID"))
	if proj == "" && projID == "" {
		fmt.Fprintln(os.Stderr, "chorus: BRAINTRUST_API_KEY set without project; disabling Braintrust sink")
		opts.Braintrust.Enabled = false
		return
	}
	opts.Braintrust.Enabled = true
	opts.Braintrust.APIKey = key
	opts.Braintrust.Project = proj
	opts.Braintrust.ProjectID = projID
	opts.Braintrust.Dataset = strings.TrimSpace(os.Getenv("BRAINTRUST_DATASET"))
	if baseURL := strings.TrimSpace(os.Getenv("BRAINTRUST_BASE_URL")); baseURL != "" {
		opts.Braintrust.BaseURL = baseURL
	}
}
