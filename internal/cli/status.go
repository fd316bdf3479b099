package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show login and sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := configManager()
			if err != nil {
				return err
			}
			cfg, err := mgr.Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API URL:  %s\n", apiURL(cfg))
			fmt.Fprintf(out, "Config:   %s\n", mgr.Path())

			if cfg.Token == "" {
				fmt.Fprintln(out, "Status:   not logged in")
				return nil
			}

			client := NewClient(apiURL(cfg), cfg.Token)
			emp, org, err := client.Me(cmd.Context())
			if err != nil {
				if apiErr, ok := err.(*APIError); ok && apiErr.Status == 401 {
					fmt.Fprintln(out, "Status:   session expired, run 'arfactl login'")
					return nil
				}
				return err
			}

			fmt.Fprintf(out, "Status:   logged in as %s (%s)\n", emp.Email, emp.RoleName)
			fmt.Fprintf(out, "Org:      %s (%s)\n", org.Name, org.Slug)
			fmt.Fprintf(out, "Synced:   %d agent(s)\n", len(cfg.SyncTokens))
			return nil
		},
	}
}
