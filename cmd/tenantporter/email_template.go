package main

import (
	"github.com/spf13/cobra"

	"github.com/nvinuesa/tenantporter/internal/api"
	"github.com/nvinuesa/tenantporter/internal/ops"
)

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Manage email configuration",
}

var emailTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage email templates",
}

var (
	emailExportFlags bulkFlags
	emailImportFlags bulkFlags
	emailDeleteFlags bulkFlags
	previewFlags     ops.PreviewOptions
)

var emailExportCmd = &cobra.Command{
	Use:   "export" + connectionUse,
	Short: "Export email templates",
	Long: `Export email templates to files.

Examples:
  # One template to welcome.template.email.json
  tenantporter email template export -i welcome acme

  # All templates into allEmailTemplates.template.email.json
  tenantporter email template export -a acme

  # One file per template
  tenantporter email template export -A -D ./templates acme`,
	Args: connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := emailExportFlags.exportOptions()
		if err := requireMode(o.Mode(), "one of --template-id, --all or --all-separate is required"); err != nil {
			return err
		}
		e, err := emailOps(cmd, args)
		if err != nil {
			return err
		}
		return e.Export(cmd.Context(), o)
	},
}

var emailImportCmd = &cobra.Command{
	Use:   "import" + connectionUse,
	Short: "Import email templates",
	Long: `Import email templates from files.

With --id and --file the named template is imported from the file. With --all
and --file every template in the file is imported. --all-separate imports
every *.template.email.json file in --directory. --file alone imports the
first template of the file.

--raw reads emailTemplate-<id>.json files holding a single template as
stored on the tenant. --clean deletes every existing template first and
requires --all-separate.

Examples:
  tenantporter email template import -i welcome -f allEmailTemplates.template.email.json acme
  tenantporter email template import -A --raw --clean -D ./raw acme`,
	Args: connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := emailImportFlags.importOptions()
		if err := requireMode(o.Mode(), "--file with --template-id or --all, --all-separate, or --file alone is required"); err != nil {
			return err
		}
		if err := o.Validate(); err != nil {
			return err
		}
		e, err := emailOps(cmd, args)
		if err != nil {
			return err
		}
		return e.Import(cmd.Context(), o)
	},
}

var emailDeleteCmd = &cobra.Command{
	Use:   "delete" + connectionUse,
	Short: "Delete email templates",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := emailDeleteFlags.deleteOptions()
		if err := requireMode(o.Mode(), "--template-id or --all is required"); err != nil {
			return err
		}
		e, err := emailOps(cmd, args)
		if err != nil {
			return err
		}
		return e.Delete(cmd.Context(), o)
	},
}

var emailListCmd = &cobra.Command{
	Use:   "list" + connectionUse,
	Short: "List email templates",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := emailOps(cmd, args)
		if err != nil {
			return err
		}
		return e.List(cmd.Context(), listLong)
	},
}

var emailPreviewCmd = &cobra.Command{
	Use:   "preview" + connectionUse,
	Short: "Render an email template with sample data",
	Long: `Render the subject and message of an email template.

The template is read from --file when given, otherwise from the tenant.
Placeholders such as {{object.givenName}} are filled from --data, or from
built-in sample data.

Examples:
  tenantporter email template preview -i welcome -f welcome.template.email.json
  tenantporter email template preview -i welcome --data user.json --locale fr acme`,
	Args: connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := previewFlags
		o.Directory = app.cfg.OutputDirectory
		if o.ID == "" {
			return &ops.ErrUsage{Reason: "--template-id is required"}
		}
		if o.File != "" {
			return ops.NewEmailTemplateOps(nil, ops.Deps{Console: app.console, Logger: app.logger}).Preview(cmd.Context(), o)
		}
		e, err := emailOps(cmd, args)
		if err != nil {
			return err
		}
		return e.Preview(cmd.Context(), o)
	},
}

func init() {
	addExportFlags(emailExportCmd, &emailExportFlags, "template-id", "email template", false)
	addImportFlags(emailImportCmd, &emailImportFlags, "template-id", "email template", false)
	emailImportCmd.Flags().BoolVar(&emailImportFlags.raw, "raw", false, "Import raw emailTemplate-<id>.json files")
	emailImportCmd.Flags().BoolVar(&emailImportFlags.clean, "clean", false, "Delete all existing templates before importing")
	addDeleteFlags(emailDeleteCmd, &emailDeleteFlags, "template-id", "email template")
	addListFlags(emailListCmd)

	emailPreviewCmd.Flags().StringVarP(&previewFlags.ID, "template-id", "i", "", "Template id")
	emailPreviewCmd.Flags().StringVarP(&previewFlags.File, "file", "f", "", "Read the template from this export file")
	emailPreviewCmd.Flags().StringP("directory", "D", "", "Directory of --file")
	emailPreviewCmd.Flags().StringVar(&previewFlags.DataFile, "data", "", "JSON file with sample data")
	emailPreviewCmd.Flags().StringVar(&previewFlags.Locale, "locale", "", "Locale to render (default: the template's default locale)")

	emailTemplateCmd.AddCommand(emailExportCmd, emailImportCmd, emailDeleteCmd, emailListCmd, emailPreviewCmd)
	emailCmd.AddCommand(emailTemplateCmd)
}

func emailOps(cmd *cobra.Command, args []string) (*ops.EmailTemplateOps, error) {
	s, err := connect(cmd.Context(), args)
	if err != nil {
		return nil, err
	}
	return ops.NewEmailTemplateOps(api.NewEmailTemplates(s), opsDeps(s)), nil
}
