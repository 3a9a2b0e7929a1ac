package main

import (
	"github.com/spf13/cobra"

	"github.com/nvinuesa/tenantporter/internal/api"
	"github.com/nvinuesa/tenantporter/internal/ops"
)

var idpCmd = &cobra.Command{
	Use:   "idp",
	Short: "Manage social identity providers",
}

var (
	idpExportFlags bulkFlags
	idpImportFlags bulkFlags
	idpDeleteFlags bulkFlags
)

var idpExportCmd = &cobra.Command{
	Use:   "export" + connectionUse,
	Short: "Export social identity providers",
	Long: `Export social identity providers and their transform scripts.

Examples:
  tenantporter idp export -i google acme
  tenantporter idp export -a --no-deps acme`,
	Args: connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := idpExportFlags.exportOptions()
		if err := requireMode(o.Mode(), "one of --idp-id, --all or --all-separate is required"); err != nil {
			return err
		}
		p, err := idpOps(cmd, args)
		if err != nil {
			return err
		}
		return p.Export(cmd.Context(), o)
	},
}

var idpImportCmd = &cobra.Command{
	Use:   "import" + connectionUse,
	Short: "Import social identity providers",
	Long: `Import social identity providers. Transform scripts found in the file
are imported first unless --no-deps is given.

Examples:
  tenantporter idp import -i google -f allProviders.idp.json acme
  tenantporter idp import -A -D ./idps acme`,
	Args: connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := idpImportFlags.importOptions()
		if err := requireMode(o.Mode(), "--file with --idp-id or --all, --all-separate, or --file alone is required"); err != nil {
			return err
		}
		p, err := idpOps(cmd, args)
		if err != nil {
			return err
		}
		return p.Import(cmd.Context(), o)
	},
}

var idpDeleteCmd = &cobra.Command{
	Use:   "delete" + connectionUse,
	Short: "Delete social identity providers",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := idpDeleteFlags.deleteOptions()
		if err := requireMode(o.Mode(), "--idp-id or --all is required"); err != nil {
			return err
		}
		p, err := idpOps(cmd, args)
		if err != nil {
			return err
		}
		return p.Delete(cmd.Context(), o)
	},
}

var idpListCmd = &cobra.Command{
	Use:   "list" + connectionUse,
	Short: "List social identity providers",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := idpOps(cmd, args)
		if err != nil {
			return err
		}
		return p.List(cmd.Context(), listLong)
	},
}

func init() {
	addExportFlags(idpExportCmd, &idpExportFlags, "idp-id", "provider", true)
	addImportFlags(idpImportCmd, &idpImportFlags, "idp-id", "provider", true)
	addDeleteFlags(idpDeleteCmd, &idpDeleteFlags, "idp-id", "provider")
	addListFlags(idpListCmd)

	idpCmd.AddCommand(idpExportCmd, idpImportCmd, idpDeleteCmd, idpListCmd)
}

func idpOps(cmd *cobra.Command, args []string) (*ops.IdpOps, error) {
	s, err := connect(cmd.Context(), args)
	if err != nil {
		return nil, err
	}
	return ops.NewIdpOps(api.NewSocialProviders(s), api.NewScripts(s), opsDeps(s)), nil
}
