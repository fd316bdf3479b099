package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// localBundle is the on-disk form written per agent.
type localBundle struct {
	AgentID      string          `json:"agent_id"`
	AgentName    string          `json:"agent_name"`
	Config       json.RawMessage `json:"config"`
	IsEnabled    bool            `json:"is_enabled"`
	SystemPrompt string          `json:"system_prompt,omitempty"`
	SyncToken    string          `json:"sync_token"`
}

func newSyncCommand() *cobra.Command {
	var (
		agentID string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull resolved agent configurations to local files",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, mgr, cfg, err := authedClient()
			if err != nil {
				return err
			}

			if outDir == "" {
				outDir = filepath.Join(filepath.Dir(mgr.Path()), "agents")
			}
			if err := os.MkdirAll(outDir, 0o700); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if cfg.SyncTokens == nil {
				cfg.SyncTokens = map[string]string{}
			}

			var ids []string
			if agentID != "" {
				ids = []string{agentID}
			} else {
				agents, err := client.ListAgents(cmd.Context())
				if err != nil {
					return err
				}
				for _, a := range agents {
					ids = append(ids, a.ID)
				}
			}

			var pulled, unchanged int
			for _, id := range ids {
				bundle, err := client.SyncAgent(cmd.Context(), id, cfg.SyncTokens[id])
				if err != nil {
					// Agents without an org-level config are simply not
					// provisioned for this tenant.
					if apiErr, ok := err.(*APIError); ok && apiErr.Status == 404 {
						continue
					}
					return fmt.Errorf("sync agent %s: %w", id, err)
				}
				if !bundle.Changed {
					unchanged++
					continue
				}

				path := filepath.Join(outDir, bundle.AgentID+".json")
				if err := writeBundleFile(path, bundle); err != nil {
					return err
				}
				cfg.SyncTokens[bundle.AgentID] = bundle.SyncToken
				pulled++
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %s -> %s\n", bundle.AgentName, path)
			}

			if err := mgr.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d updated, %d already current\n", pulled, unchanged)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "sync a single agent by id")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default <config dir>/agents)")
	return cmd
}

func writeBundleFile(path string, bundle *SyncBundle) error {
	data, err := json.MarshalIndent(localBundle{
		AgentID:      bundle.AgentID,
		AgentName:    bundle.AgentName,
		Config:       bundle.Config,
		IsEnabled:    bundle.IsEnabled,
		SystemPrompt: bundle.SystemPrompt,
		SyncToken:    bundle.SyncToken,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}
