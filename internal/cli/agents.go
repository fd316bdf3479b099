package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAgentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agent catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, cfg, err := authedClient()
			if err != nil {
				return err
			}

			agents, err := client.ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			if len(agents) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No agents available.")
				return nil
			}

			synced := map[string]bool{}
			for id := range cfg.SyncTokens {
				synced[id] = true
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tPROVIDER\tSYNCED\tID")
			for _, a := range agents {
				state := "-"
				if synced[a.ID] {
					state = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Name, a.Type, a.Provider, state, a.ID)
			}
			return w.Flush()
		},
	}
}
