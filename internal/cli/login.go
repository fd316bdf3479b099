package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCommand() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session token locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := configManager()
			if err != nil {
				return err
			}
			cfg, err := mgr.Load()
			if err != nil {
				return err
			}

			if email == "" {
				email, err = promptLine(cmd, "Email: ")
				if err != nil {
					return err
				}
			}
			if password == "" {
				password, err = promptPassword(cmd, "Password: ")
				if err != nil {
					return err
				}
			}

			client := NewClient(apiURL(cfg), "")
			resp, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			cfg.APIURL = apiURL(cfg)
			cfg.Token = resp.Token
			cfg.Email = resp.Employee.Email
			if err := mgr.Save(cfg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.Employee.Email, resp.Employee.RoleName)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword hides input on a real terminal and falls back to a plain
// line read when stdin is piped.
func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.OutOrStdout(), prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	return promptLine(cmd, prompt)
}
