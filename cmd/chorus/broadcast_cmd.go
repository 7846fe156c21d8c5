package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shillcollin/chorus"
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast <prompt>...",
	Short: "Send one prompt to several providers at once",
	Long: `Fan one prompt out to multiple providers concurrently and print every
reply that arrives. Providers that cannot answer (missing credential,
connect or send failure) are reported on stderr without failing the round.

Per-provider prompt prefixes from the config file's prompts section are
prepended to the shared prompt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := buildClient()
		if err != nil {
			return err
		}

		prompt := strings.Join(args, " ")

		providers, _ := cmd.Flags().GetStringSlice("providers")
		if len(providers) == 0 {
			providers = client.Providers()
		}
		if len(providers) == 0 {
			return errors.New("no providers configured; set API keys or pass --providers")
		}

		var opts []chorus.BroadcastOption
		if parallel, _ := cmd.Flags().GetInt("parallel"); parallel > 0 {
			opts = append(opts, chorus.WithMaxParallel(parallel))
		} else if cfg.MaxParallel > 0 {
			opts = append(opts, chorus.WithMaxParallel(cfg.MaxParallel))
		}
		if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
			opts = append(opts, chorus.WithPerProviderTimeout(timeout))
		}
		if cfg.Stagger > 0 {
			opts = append(opts, chorus.WithStagger(time.Duration(cfg.Stagger)))
		}
		if len(cfg.Prompts) > 0 {
			opts = append(opts, chorus.WithPrompts(func(provider string) string {
				if prefix := cfg.Prompts[provider]; prefix != "" {
					return prefix + "\n\n" + prompt
				}
				return ""
			}))
		}

		round, err := client.Broadcast(cmd.Context(), prompt, providers, opts...)
		if err != nil {
			return err
		}

		for _, name := range round.Succeeded() {
			result := round.Responses[name]
			fmt.Printf("=== %s (%s, %.2fs) ===\n%s\n\n",
				name, result.Model(), float64(result.LatencyMS())/1000, result.Text())
		}
		for _, name := range round.Failed() {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, round.Failures[name])
		}
		fmt.Fprintf(os.Stderr, "round %s: %d/%d providers answered in %.2fs\n",
			round.ID, len(round.Responses), len(round.Attempted), round.Elapsed.Seconds())
		return nil
	},
}

func init() {
	broadcastCmd.Flags().StringSliceP("providers", "p", nil, "Providers to query (default: all configured)")
	broadcastCmd.Flags().IntP("parallel", "j", 0, "Max concurrent providers (0 = all at once)")
	broadcastCmd.Flags().DurationP("timeout", "t", 0, "Per-provider timeout (default 60s)")
	rootCmd.AddCommand(broadcastCmd)
}
