package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tansive/ideconnector/internal/connector/cms"
)

// newHashPasswordCmd prints the bcrypt hash of a password for the users table of the
// server's filesystem backend.
func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the hash of a password for the server configuration",
		Long: `Print the hash of a password to put into the users table of the server
configuration. The password is read from standard input when not given as argument.

Example:
  ideconnector hash-password admin`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var passwd string
			if len(args) == 1 {
				passwd = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				passwd = strings.TrimRight(line, "\r\n")
			}
			if passwd == "" {
				return errors.New("password must not be empty")
			}
			hash, err := cms.HashPassword(passwd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
