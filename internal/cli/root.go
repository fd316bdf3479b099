package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagAPIURL     string
	flagConfigPath string
)

// NewRootCommand builds the arfactl command tree.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "arfactl",
		Short:         "Sync agent configurations from the admin platform",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagAPIURL, "url", "", "API base URL (defaults to saved URL or ARFA_API_URL)")
	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path (default ~/.config/arfactl/config.json)")

	root.AddCommand(newLoginCommand())
	root.AddCommand(newAgentsCommand())
	root.AddCommand(newSyncCommand())
	root.AddCommand(newStatusCommand())

	return root
}

func configManager() (*ConfigManager, error) {
	if flagConfigPath != "" {
		return NewConfigManagerWithPath(flagConfigPath), nil
	}
	return NewConfigManager()
}

// apiURL resolves with precedence flag > saved config > ARFA_API_URL > default.
func apiURL(cfg *Config) string {
	if flagAPIURL != "" {
		return flagAPIURL
	}
	if cfg.APIURL != "" {
		return cfg.APIURL
	}
	return DefaultAPIURL()
}

// authedClient loads the stored token; commands that talk to the API after
// login go through here.
func authedClient() (*Client, *ConfigManager, *Config, error) {
	mgr, err := configManager()
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := mgr.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Token == "" {
		return nil, nil, nil, fmt.Errorf("not logged in, run 'arfactl login' first")
	}
	return NewClient(apiURL(cfg), cfg.Token), mgr, cfg, nil
}
