package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shillcollin/chorus"
)

var askCmd = &cobra.Command{
	Use:   "ask <provider> <prompt>...",
	Short: "Send one prompt to one provider",
	Long: `Send a single prompt through the full connector lifecycle:
connect, send, disconnect. The provider may be any accepted alias
("claude", "ChatGPT", "grok", ...).

The response text goes to stdout; usage and latency go to stderr, so the
output stays pipeable.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := args[0]
		prompt := strings.Join(args[1:], " ")

		var extra []chorus.ClientOption
		if model, _ := cmd.Flags().GetString("model"); model != "" {
			extra = append(extra, chorus.WithModel(provider, model))
		}

		client, _, err := buildClient(extra...)
		if err != nil {
			return err
		}
		if !client.HasProvider(provider) {
			return fmt.Errorf("provider %q not configured; run 'chorus providers'", provider)
		}

		start := time.Now()
		result, err := client.Ask(cmd.Context(), provider, prompt)
		if err != nil {
			return err
		}

		fmt.Println(result.Text())
		fmt.Fprintf(os.Stderr, "%s / %s: input=%d output=%d total=%d tokens (%.2fs)\n",
			result.Provider(), result.Model(),
			result.InputTokens(), result.OutputTokens(), result.TotalTokens(),
			time.Since(start).Seconds())
		return nil
	},
}

func init() {
	askCmd.Flags().StringP("model", "m", "", "Model override for this call")
	rootCmd.AddCommand(askCmd)
}
