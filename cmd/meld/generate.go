package main

import (
	"github.com/spf13/cobra"

	"github.com/pthm/meld/lib/generator"
)

func generateCmd() *cobra.Command {
	var opts generator.Options

	cmd := &cobra.Command{
		Use:   "generate [packages]",
		Short: "Write meld_components.go for packages that declare components",
		Long: `Scan packages for structs embedding meld.Base and write a Register
function into each package that declares any.

Examples:
  meld generate ./...                 Generate for all packages
  meld generate ./components          Generate for one package
  meld generate --dry-run ./...       Preview generation`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Out = cmd.OutOrStdout()
			return generator.New(opts).Generate(patternsOrDefault(args)...)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be generated without writing files")
	cmd.Flags().StringVar(&opts.ImportPath, "import", generator.DefaultImportPath, "Import path of the meld package")
	return cmd
}

func cleanCmd() *cobra.Command {
	var opts generator.Options

	cmd := &cobra.Command{
		Use:   "clean [packages]",
		Short: "Remove generated " + generator.OutputFile + " files",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Out = cmd.OutOrStdout()
			return generator.New(opts).Clean(patternsOrDefault(args)...)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be removed without deleting files")
	return cmd
}
