// Package cli implements the ideconnector command line client. It logs in to a connector
// service, keeps the session token in its config file and streams module imports to the
// terminal.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ideconnector [command] [flags]",
		Short: "IDE connector CLI - imports CMS modules from the command line",
		Long: `The IDE connector CLI talks to a connector service. It logs in, imports module
archives and shows the import log while it is being written.

Examples:
  # Point the CLI to a server
  ideconnector config create --server localhost:8194 --user Admin

  # Log in, the token is kept in the config file
  ideconnector login --passwd admin

  # Import two modules, the second one to a site
  ideconnector import /tmp/com.acme.base_1.0.zip
  ideconnector import /tmp/com.acme.web_1.2.zip --site-root /sites/default/

  # Log out
  ideconnector logout`,
		PersistentPreRunE: preRunHandlePersistents,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	cmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newHashPasswordCmd())
	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(os.Stdout, map[string]string{
				"error": err.Error(),
			})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// noConfigCommands run without a loaded config file.
var noConfigCommands = map[string]bool{
	"config":        true,
	"version":       true,
	"hash-password": true,
	"help":          true,
}

// preRunHandlePersistents resolves the config file path and loads it for the commands
// that talk to a server.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		var err error
		configFile, err = GetDefaultConfigPath()
		if err != nil {
			return err
		}
	}

	for c := cmd; c != nil; c = c.Parent() {
		if noConfigCommands[c.Name()] {
			return nil
		}
	}

	if err := LoadConfig(configFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found, configure the CLI with \"ideconnector config create\" first", configFile)
		}
		return err
	}
	return nil
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the CLI",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"version":     getCLIVersion(),
					"config_file": configFile,
				})
			} else {
				cmd.Printf("ideconnector CLI %s\n", getCLIVersion())
				cmd.Printf("Config file: %s\n", configFile)
			}
		},
	}
}

// printJSON prints the given value as indented JSON to w
func printJSON(w io.Writer, data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(jsonData))
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v0.1.0"
}
