package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shillcollin/chorus"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List known providers and their configuration state",
	Long: `List every provider the CLI can talk to, whether a credential is
configured for it, and the aliases that resolve to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := buildClient()
		if err != nil {
			return err
		}

		aliasesFor := make(map[string][]string)
		for alias, canonical := range client.Aliases() {
			if alias == canonical {
				continue
			}
			aliasesFor[canonical] = append(aliasesFor[canonical], alias)
		}

		for _, name := range chorus.KnownProviders() {
			status := "not configured"
			if client.HasProvider(name) {
				status = "ready"
			}
			model := ""
			if connector, err := client.Connector(name); err == nil {
				caps := connector.Capabilities()
				model = caps.DefaultModel
				if caps.OpenAICompatible && caps.Provider != "openai" {
					model += " (openai-compatible)"
				}
			}
			aliases := aliasesFor[name]
			sort.Strings(aliases)
			if len(aliases) > 0 {
				fmt.Printf("  %-10s %-16s %-32s aliases: %s\n", name, status, model, strings.Join(aliases, ", "))
			} else {
				fmt.Printf("  %-10s %-16s %s\n", name, status, model)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
