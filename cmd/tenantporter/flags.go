package main

import (
	"github.com/spf13/cobra"

	"github.com/nvinuesa/tenantporter/internal/ops"
)

// bulkFlags are the selection flags of export, import and delete commands.
type bulkFlags struct {
	id          string
	file        string
	all         bool
	allSeparate bool
	noMetadata  bool
	noDeps      bool
	raw         bool
	clean       bool
}

// addIDFlag registers the per-resource id flag, e.g. template-id, as -i.
func addIDFlag(cmd *cobra.Command, f *bulkFlags, idFlag, usage string) {
	cmd.Flags().StringVarP(&f.id, idFlag, "i", "", usage)
}

func addExportFlags(cmd *cobra.Command, f *bulkFlags, idFlag, noun string, deps bool) {
	addIDFlag(cmd, f, idFlag, "Export the "+noun+" with this id")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Export file name (default <id>.<kind>.json)")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "Export all "+noun+"s into a single file")
	cmd.Flags().BoolVarP(&f.allSeparate, "all-separate", "A", false, "Export each "+noun+" into its own file")
	cmd.Flags().StringP("directory", "D", "", "Directory for export files")
	cmd.Flags().BoolVarP(&f.noMetadata, "no-metadata", "N", false, "Omit the meta block")
	if deps {
		cmd.Flags().BoolVar(&f.noDeps, "no-deps", false, "Do not export script dependencies")
	}
	cmd.MarkFlagsMutuallyExclusive(idFlag, "all", "all-separate")
}

func addImportFlags(cmd *cobra.Command, f *bulkFlags, idFlag, noun string, deps bool) {
	addIDFlag(cmd, f, idFlag, "Import only the "+noun+" with this id")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Import file")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "Import every "+noun+" in --file")
	cmd.Flags().BoolVarP(&f.allSeparate, "all-separate", "A", false, "Import every "+noun+" file in --directory")
	cmd.Flags().StringP("directory", "D", "", "Directory of import files")
	if deps {
		cmd.Flags().BoolVar(&f.noDeps, "no-deps", false, "Do not import script dependencies")
	}
}

func addDeleteFlags(cmd *cobra.Command, f *bulkFlags, idFlag, noun string) {
	addIDFlag(cmd, f, idFlag, "Delete the "+noun+" with this id")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "Delete all "+noun+"s")
	cmd.MarkFlagsMutuallyExclusive(idFlag, "all")
}

func (f *bulkFlags) exportOptions() ops.ExportOptions {
	return ops.ExportOptions{
		ID:          f.id,
		File:        f.file,
		All:         f.all,
		AllSeparate: f.allSeparate,
		Directory:   app.cfg.OutputDirectory,
		NoMetadata:  f.noMetadata,
		NoDeps:      f.noDeps,
	}
}

func (f *bulkFlags) importOptions() ops.ImportOptions {
	return ops.ImportOptions{
		ID:          f.id,
		File:        f.file,
		All:         f.all,
		AllSeparate: f.allSeparate,
		Directory:   app.cfg.OutputDirectory,
		Raw:         f.raw,
		Clean:       f.clean,
		NoDeps:      f.noDeps,
	}
}

func (f *bulkFlags) deleteOptions() ops.DeleteOptions {
	return ops.DeleteOptions{ID: f.id, All: f.all}
}

var listLong bool

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&listLong, "long", "l", false, "Show details in a table")
}
