package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/tansive/ideconnector/internal/common/httpclient"
	"github.com/tansive/ideconnector/internal/connector/client"
	"github.com/tansive/ideconnector/pkg/api"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <module-zip>...",
		Short: "Import module archives",
		Long: `Import one or more module archives in the given order. The archive paths are
resolved by the connector server. The import log is printed while it is written; a module
that fails is reported and the remaining modules are still imported.

Examples:
  ideconnector import /tmp/com.acme.base_1.0.zip /tmp/com.acme.web_1.2.zip
  ideconnector import /tmp/com.acme.web_1.2.zip --site-root /sites/default/`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}
	cmd.Flags().String("site-root", "", "Site root to import to, \"/\" when not given")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}
	siteRoot, _ := cmd.Flags().GetString("site-root")

	units := make([]api.ModuleImportInfo, 0, len(args))
	for _, zipPath := range args {
		units = append(units, api.ModuleImportInfo{ModuleZipPath: zipPath, ImportSiteRoot: siteRoot})
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	printer := NewLinePrinter(cmd.OutOrStdout())
	err = c.ImportModules(cmd.Context(), units, printer.PrintLine)
	switch {
	case errors.Is(err, client.ErrNotLoggedIn), httpclient.StatusCodeOf(err) == http.StatusUnauthorized:
		return errors.New("not logged in, run \"ideconnector login\" first")
	case err != nil:
		return fmt.Errorf("import failed: %w", err)
	}

	if jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]int{
			"modules":  len(units),
			"imported": printer.Modules,
			"failed":   printer.Failures,
		})
	}
	if printer.Failures > 0 {
		errorLabel.Fprintf(cmd.ErrOrStderr(), "%d of %d modules failed to import\n", printer.Failures, len(units))
		return ErrAlreadyHandled
	}
	return nil
}
