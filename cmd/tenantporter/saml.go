package main

import (
	"github.com/spf13/cobra"

	"github.com/nvinuesa/tenantporter/internal/api"
	"github.com/nvinuesa/tenantporter/internal/ops"
)

var samlCmd = &cobra.Command{
	Use:   "saml",
	Short: "Manage SAML2 entity providers",
}

var samlMetadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Manage SAML2 entity metadata",
}

var (
	samlExportFlags   bulkFlags
	samlImportFlags   bulkFlags
	samlDeleteFlags   bulkFlags
	samlMetadataFlags bulkFlags
)

var samlExportCmd = &cobra.Command{
	Use:   "export" + connectionUse,
	Short: "Export SAML2 entity providers",
	Long: `Export hosted and remote SAML2 entity providers with their metadata
and the scripts they reference.

Examples:
  tenantporter saml export -i urn:example:sp acme
  tenantporter saml export -A -D ./saml acme`,
	Args: connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := samlExportFlags.exportOptions()
		if err := requireMode(o.Mode(), "one of --entity-id, --all or --all-separate is required"); err != nil {
			return err
		}
		a, err := samlOps(cmd, args)
		if err != nil {
			return err
		}
		return a.Export(cmd.Context(), o)
	},
}

var samlImportCmd = &cobra.Command{
	Use:   "import" + connectionUse,
	Short: "Import SAML2 entity providers",
	Long: `Import SAML2 entity providers. Hosted entities are created or updated.
Remote entities that do not exist are first imported from the metadata in
the file. With --file alone the first remote entity, else the first hosted
entity, is imported.

Examples:
  tenantporter saml import -i urn:example:sp -f allProviders.saml.json acme
  tenantporter saml import -f urn_example_sp.saml.json acme`,
	Args: connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := samlImportFlags.importOptions()
		if err := requireMode(o.Mode(), "--file with --entity-id or --all, --all-separate, or --file alone is required"); err != nil {
			return err
		}
		a, err := samlOps(cmd, args)
		if err != nil {
			return err
		}
		return a.Import(cmd.Context(), o)
	},
}

var samlDeleteCmd = &cobra.Command{
	Use:   "delete" + connectionUse,
	Short: "Delete SAML2 entity providers",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := samlDeleteFlags.deleteOptions()
		if err := requireMode(o.Mode(), "--entity-id or --all is required"); err != nil {
			return err
		}
		a, err := samlOps(cmd, args)
		if err != nil {
			return err
		}
		return a.Delete(cmd.Context(), o)
	},
}

var samlListCmd = &cobra.Command{
	Use:   "list" + connectionUse,
	Short: "List SAML2 entity providers",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := samlOps(cmd, args)
		if err != nil {
			return err
		}
		return a.List(cmd.Context(), listLong)
	},
}

var samlMetadataExportCmd = &cobra.Command{
	Use:   "export" + connectionUse,
	Short: "Export the metadata XML of an entity provider",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := samlMetadataFlags.exportOptions()
		if o.ID == "" {
			return &ops.ErrUsage{Reason: "--entity-id is required"}
		}
		a, err := samlOps(cmd, args)
		if err != nil {
			return err
		}
		return a.ExportMetadata(cmd.Context(), o)
	},
}

func init() {
	addExportFlags(samlExportCmd, &samlExportFlags, "entity-id", "entity provider", true)
	addImportFlags(samlImportCmd, &samlImportFlags, "entity-id", "entity provider", true)
	addDeleteFlags(samlDeleteCmd, &samlDeleteFlags, "entity-id", "entity provider")
	addListFlags(samlListCmd)

	addIDFlag(samlMetadataExportCmd, &samlMetadataFlags, "entity-id", "Entity id")
	samlMetadataExportCmd.Flags().StringVarP(&samlMetadataFlags.file, "file", "f", "", "Output file (default <entity-id>.metadata.xml)")
	samlMetadataExportCmd.Flags().StringP("directory", "D", "", "Output directory")
	samlMetadataCmd.AddCommand(samlMetadataExportCmd)

	samlCmd.AddCommand(samlExportCmd, samlImportCmd, samlDeleteCmd, samlListCmd, samlMetadataCmd)
}

func samlOps(cmd *cobra.Command, args []string) (*ops.Saml2Ops, error) {
	s, err := connect(cmd.Context(), args)
	if err != nil {
		return nil, err
	}
	return ops.NewSaml2Ops(api.NewSaml2(s), api.NewScripts(s), opsDeps(s)), nil
}
