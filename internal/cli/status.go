package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"

	"github.com/tansive/ideconnector/internal/connector/client"
	"github.com/tansive/ideconnector/pkg/api"
)

// statusResponse is what the status command reports.
type statusResponse struct {
	ServiceURL    string `json:"serviceURL"`
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
	Compatible    bool   `json:"compatible"`
	LoggedIn      bool   `json:"loggedIn"`
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Get server status and version information",
		Long: `Get server status and version information. The command waits until the server
answers its readiness check and reports whether the server speaks a protocol version this
CLI understands.

Examples:
  # Get server status
  ideconnector status

  # Wait up to 10 attempts for the server to come up
  ideconnector status --attempts 10`,
		RunE: getStatus,
	}
	cmd.Flags().Uint("attempts", 3, "Number of readiness checks before giving up")
	return cmd
}

// waitReady polls the readiness endpoint with exponential backoff.
func waitReady(ctx context.Context, c *client.Client, attempts uint, delay time.Duration) error {
	return retry.Do(func() error {
		return c.Ready(ctx)
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// getStatus handles retrieving server status information
func getStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}
	attempts, _ := cmd.Flags().GetUint("attempts")

	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	if err := waitReady(cmd.Context(), c, max(attempts, 1), 500*time.Millisecond); err != nil {
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), map[string]string{
				"version_cli": getCLIVersion(),
				"error":       "Unable to connect to server: " + err.Error(),
			})
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "ideconnector CLI %s\n", getCLIVersion())
			errorLabel.Fprintln(cmd.OutOrStdout(), "Error: Unable to connect to server: "+err.Error())
		}
		return ErrAlreadyHandled
	}

	v, err := c.Version(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get server version: %w", err)
	}
	status := statusResponse{
		ServiceURL:    cfg.ServiceURL(),
		ServerVersion: v.ServerVersion,
		ApiVersion:    v.ApiVersion,
		Compatible:    api.IsProtocolCompatible(v.ApiVersion),
		LoggedIn:      cfg.Token != "",
	}

	if jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]any{
			"result":      1,
			"version_cli": getCLIVersion(),
			"value":       status,
		})
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "ideconnector CLI %s\n", getCLIVersion())
		printStatusPretty(cmd, status)
	}
	if !status.Compatible {
		return fmt.Errorf("server protocol version %s is not compatible with %s", v.ApiVersion, api.ProtocolVersion)
	}
	return nil
}

// printStatusPretty prints the status information in a human-readable format
func printStatusPretty(cmd *cobra.Command, status statusResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Service URL: %s\n", status.ServiceURL)
	fmt.Fprintf(out, "Server Version: %s\n", status.ServerVersion)
	fmt.Fprintf(out, "API Version: %s\n", status.ApiVersion)
	if status.Compatible {
		okLabel.Fprintln(out, "Protocol: compatible")
	} else {
		errorLabel.Fprintf(out, "Protocol: incompatible, CLI speaks %s\n", api.ProtocolVersion)
	}
	if status.LoggedIn {
		fmt.Fprintln(out, "Logged in: yes")
	} else {
		fmt.Fprintln(out, "Logged in: no")
	}
}
