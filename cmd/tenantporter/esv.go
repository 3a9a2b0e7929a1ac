package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvinuesa/tenantporter/internal/api"
	"github.com/nvinuesa/tenantporter/internal/ops"
)

var esvCmd = &cobra.Command{
	Use:   "esv",
	Short: "Manage environment secrets and variables",
}

var esvVariableCmd = &cobra.Command{
	Use:   "variable",
	Short: "Manage environment variables",
}

var (
	variableCreateFlags ops.CreateOptions
	variableDescribe    struct {
		id     string
		asJSON bool
	}
	variableSet struct {
		id          string
		description string
	}
	variableDeleteFlags bulkFlags
	variableExportFlags bulkFlags
	variableImportFlags bulkFlags
)

var variableCreateCmd = &cobra.Command{
	Use:   "create" + connectionUse,
	Short: "Create or replace a variable",
	Long: `Create or replace an environment variable.

The value is given with --value, or read from AWS with --value-from
awssm:<secret-id> (Secrets Manager) or ssm:<parameter-name> (Parameter Store)
using the default AWS credential chain.

Examples:
  tenantporter esv variable create -i esv-region --value eu-west-1 acme
  tenantporter esv variable create -i esv-api-url --value-from ssm:/prod/api-url acme`,
	Args: connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := variableCreateFlags.Validate(); err != nil {
			return err
		}
		v, err := variableOps(cmd, args)
		if err != nil {
			return err
		}
		return v.Create(cmd.Context(), variableCreateFlags)
	},
}

var variableDeleteCmd = &cobra.Command{
	Use:   "delete" + connectionUse,
	Short: "Delete variables",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := variableDeleteFlags.deleteOptions()
		if err := requireMode(o.Mode(), "--variable-id or --all is required"); err != nil {
			return err
		}
		v, err := variableOps(cmd, args)
		if err != nil {
			return err
		}
		return v.Delete(cmd.Context(), o)
	},
}

var variableDescribeCmd = &cobra.Command{
	Use:   "describe" + connectionUse,
	Short: "Show one variable",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if variableDescribe.id == "" {
			return &ops.ErrUsage{Reason: "--variable-id is required"}
		}
		v, err := variableOps(cmd, args)
		if err != nil {
			return err
		}
		return v.Describe(cmd.Context(), variableDescribe.id, variableDescribe.asJSON)
	},
}

var variableSetCmd = &cobra.Command{
	Use:   "set" + connectionUse,
	Short: "Set the description of a variable",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if variableSet.id == "" {
			return &ops.ErrUsage{Reason: "--variable-id is required"}
		}
		v, err := variableOps(cmd, args)
		if err != nil {
			return err
		}
		return v.SetDescription(cmd.Context(), variableSet.id, variableSet.description)
	},
}

var variableListCmd = &cobra.Command{
	Use:   "list" + connectionUse,
	Short: "List variables",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := variableOps(cmd, args)
		if err != nil {
			return err
		}
		return v.List(cmd.Context(), listLong)
	},
}

var variableExportCmd = &cobra.Command{
	Use:   "export" + connectionUse,
	Short: "Export variables",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := variableExportFlags.exportOptions()
		if err := requireMode(o.Mode(), "one of --variable-id, --all or --all-separate is required"); err != nil {
			return err
		}
		v, err := variableOps(cmd, args)
		if err != nil {
			return err
		}
		return v.Export(cmd.Context(), o)
	},
}

var variableImportCmd = &cobra.Command{
	Use:   "import" + connectionUse,
	Short: "Import variables",
	Args:  connectionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := variableImportFlags.importOptions()
		if err := requireMode(o.Mode(), "--file with --variable-id or --all, --all-separate, or --file alone is required"); err != nil {
			return err
		}
		v, err := variableOps(cmd, args)
		if err != nil {
			return err
		}
		return v.Import(cmd.Context(), o)
	},
}

func init() {
	f := variableCreateCmd.Flags()
	f.StringVarP(&variableCreateFlags.ID, "variable-id", "i", "", "Variable id (esv-...)")
	f.StringVar(&variableCreateFlags.Value, "value", "", "Variable value")
	f.StringVar(&variableCreateFlags.ValueFrom, "value-from", "", "Read the value from awssm:<id> or ssm:<name>")
	f.StringVar(&variableCreateFlags.Description, "description", "", "Variable description")
	f.StringVar(&variableCreateFlags.Type, "variable-type", "string", "Expression type ("+strings.Join(ops.VariableTypes, "|")+")")
	variableCreateCmd.MarkFlagsMutuallyExclusive("value", "value-from")

	variableDescribeCmd.Flags().StringVarP(&variableDescribe.id, "variable-id", "i", "", "Variable id")
	variableDescribeCmd.Flags().BoolVar(&variableDescribe.asJSON, "json", false, "Print the variable as JSON")

	variableSetCmd.Flags().StringVarP(&variableSet.id, "variable-id", "i", "", "Variable id")
	variableSetCmd.Flags().StringVar(&variableSet.description, "description", "", "New description")
	variableSetCmd.MarkFlagRequired("description")

	addDeleteFlags(variableDeleteCmd, &variableDeleteFlags, "variable-id", "variable")
	addExportFlags(variableExportCmd, &variableExportFlags, "variable-id", "variable", false)
	addImportFlags(variableImportCmd, &variableImportFlags, "variable-id", "variable", false)
	addListFlags(variableListCmd)

	esvVariableCmd.AddCommand(variableCreateCmd, variableDeleteCmd, variableDescribeCmd, variableSetCmd,
		variableListCmd, variableExportCmd, variableImportCmd)
	esvCmd.AddCommand(esvVariableCmd)
}

func variableOps(cmd *cobra.Command, args []string) (*ops.VariableOps, error) {
	s, err := connect(cmd.Context(), args)
	if err != nil {
		return nil, err
	}
	return ops.NewVariableOps(api.NewVariables(s), app.secrets, opsDeps(s)), nil
}
