package main

import (
	"fmt"
	"html/template"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/meld"
	"github.com/pthm/meld/lib/config"
	"github.com/pthm/meld/lib/generator"
)

func checkCmd() *cobra.Command {
	var (
		configPath string
		dir        string
		ext        string
		importPath string
	)

	cmd := &cobra.Command{
		Use:   "check [packages]",
		Short: "Verify every component has a template",
		Long: `Scan packages for components and report any whose template is missing
from the templates directory. The directory and extension come from the
config file unless given as flags.

Examples:
  meld check ./components
  meld check --config meld.yaml ./...
  meld check --templates views --ext .tmpl ./...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Templates.Dir = dir
			}
			if ext != "" {
				cfg.Templates.Ext = ext
			}

			out := cmd.OutOrStdout()
			comps, err := generator.New(generator.Options{ImportPath: importPath, Out: out}).
				Scan(patternsOrDefault(args)...)
			if err != nil {
				return err
			}

			engine, err := meld.NewFileEngine(os.DirFS(cfg.Templates.Dir),
				meld.WithExtension(cfg.Templates.Ext),
				meld.WithFuncs(parseOnlyFuncs))
			if err != nil {
				return fmt.Errorf("load templates from %s: %w", cfg.Templates.Dir, err)
			}

			missing := missingTemplates(comps, engine)
			for _, c := range missing {
				fmt.Fprintf(out, "missing template %s%s for %s (%s)\n",
					c.Name, cfg.Templates.Ext, c.TypeName, c.SourceFile)
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d of %d components have no template", len(missing), len(comps))
			}
			fmt.Fprintf(out, "%d components ok\n", len(comps))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a meld YAML config file")
	cmd.Flags().StringVar(&dir, "templates", "", "Templates directory (overrides config)")
	cmd.Flags().StringVar(&ext, "ext", "", "Template file extension (overrides config)")
	cmd.Flags().StringVar(&importPath, "import", generator.DefaultImportPath, "Import path of the meld package")
	return cmd
}

// parseOnlyFuncs lets templates that nest components parse without a
// dispatcher.
var parseOnlyFuncs = template.FuncMap{
	"meld": func(string) (template.HTML, error) { return "", nil },
}

// missingTemplates returns the components lister has no template for.
func missingTemplates(comps []*generator.ComponentInfo, lister meld.TemplateLister) []*generator.ComponentInfo {
	have := make(map[string]bool)
	for _, name := range lister.Templates() {
		have[name] = true
	}

	var missing []*generator.ComponentInfo
	for _, c := range comps {
		if !have[c.Name] {
			missing = append(missing, c)
		}
	}
	return missing
}
