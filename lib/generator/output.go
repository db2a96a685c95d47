package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"text/template"
)

const generatedHeader = "// Code generated by meld generate. DO NOT EDIT."

// writeRegistration writes OutputFile for one package.
func (g *Generator) writeRegistration(pkgPath, pkgName string, comps []*ComponentInfo) error {
	outputFile := filepath.Join(pkgPath, OutputFile)

	fmt.Fprintf(g.opts.Out, "generating %s (%d components)\n", outputFile, len(comps))

	if g.opts.DryRun {
		return nil
	}

	code, err := g.render(pkgName, comps)
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, code, 0644)
}

// render produces the formatted source of the registration file.
func (g *Generator) render(pkgName string, comps []*ComponentInfo) ([]byte, error) {
	data := struct {
		Header     string
		Package    string
		ImportPath string
		Components []*ComponentInfo
	}{
		Header:     generatedHeader,
		Package:    pkgName,
		ImportPath: g.opts.ImportPath,
		Components: comps,
	}

	var buf bytes.Buffer
	if err := registerTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format source: %w", err)
	}
	return formatted, nil
}

func isGenerated(data []byte) bool {
	return bytes.HasPrefix(data, []byte(generatedHeader))
}

var registerTemplate = template.Must(template.New("register").Parse(`{{.Header}}

package {{.Package}}

import meld {{printf "%q" .ImportPath}}

// Components lists the registered names of this package's components.
var Components = []string{
{{- range .Components}}
	{{printf "%q" .Name}},
{{- end}}
}

// Register adds this package's components to reg.
func Register(reg *meld.Registry) error {
{{- range .Components}}
	if err := reg.Register({{printf "%q" .Name}}, func() meld.Component {
	{{- if .Constructor}}
		return {{.Constructor}}()
	{{- else}}
		return &{{.TypeName}}{}
	{{- end}}
	}); err != nil {
		return err
	}
{{- end}}
	return nil
}
`))
