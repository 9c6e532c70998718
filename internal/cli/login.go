package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tansive/ideconnector/internal/connector/client"
)

// PasswordEnv names the environment variable read when no --passwd flag is given.
const PasswordEnv = "IDECONNECTOR_PASSWORD"

// newClient returns a connector client for the loaded configuration, holding its token.
func newClient(cfg *Config) (*client.Client, error) {
	c, err := client.New(cfg.ConnectorConfig())
	if err != nil {
		return nil, err
	}
	c.SetToken(cfg.Token)
	return c, nil
}

// newLoginCmd creates and returns a new login command
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the connector service",
		Long: `Log in to the connector service to obtain a session token.
The token is stored in the configuration file and used by the following commands.

Example:
  ideconnector login --user Admin --passwd admin
  IDECONNECTOR_PASSWORD=admin ideconnector login  # uses the user from the config file`,
		RunE: runLogin,
	}

	cmd.Flags().String("user", "", "User name, defaults to the user in the config file")
	cmd.Flags().String("passwd", "", "Password, defaults to $"+PasswordEnv)
	return cmd
}

// runLogin handles the login command execution
func runLogin(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = cfg.User
	}
	if user == "" {
		return errors.New("no user name provided. Use --user flag or set user in config file")
	}
	passwd, _ := cmd.Flags().GetString("passwd")
	if passwd == "" {
		passwd = os.Getenv(PasswordEnv)
	}
	if passwd == "" {
		return fmt.Errorf("no password provided. Use --passwd flag or set %s", PasswordEnv)
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	status, err := c.Login(cmd.Context(), user, passwd)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}

	if !status.LoggedIn {
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), map[string]any{"result": 0, "error": status.Message})
		} else {
			errorLabel.Fprintln(cmd.ErrOrStderr(), status.Message)
		}
		return ErrAlreadyHandled
	}

	cfg.User = user
	cfg.Token = status.Token
	if err := saveConfig(cfg); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]any{"result": 1, "message": status.Message})
	} else {
		okLabel.Fprintln(cmd.OutOrStdout(), "✓ "+status.Message)
	}
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session with the connector service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig()
			if cfg == nil {
				return fmt.Errorf("no configuration loaded")
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			// the token is dropped locally even if the server could not be reached
			logoutErr := c.Logout(cmd.Context())
			cfg.Token = ""
			if err := saveConfig(cfg); err != nil {
				return err
			}
			if logoutErr != nil {
				return fmt.Errorf("logout request failed: %w", logoutErr)
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]int{"result": 1})
			} else {
				okLabel.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			}
			return nil
		},
	}
}
