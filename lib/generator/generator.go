// Package generator finds meld components in Go source and writes the
// registration file for each package that declares them.
//
// A component is any struct type embedding meld.Base. Its registered name is
// the snake_case form of the type name unless the type's doc comment carries
// a directive:
//
//	//meld:name todo-list
//	type Todos struct {
//	    meld.Base
//	    ...
//	}
//
// When the package declares a NewTodos() *Todos function it is used as the
// constructor; otherwise the zero value is used.
package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pthm/meld"
)

// OutputFile is the name of the generated file in each package.
const OutputFile = "meld_components.go"

// DefaultImportPath is the import path of the meld package.
const DefaultImportPath = "github.com/pthm/meld"

const nameDirective = "//meld:name "

// Options configures the generator.
type Options struct {
	DryRun bool
	// ImportPath overrides the meld import path to look for.
	ImportPath string
	// Out receives progress lines. Defaults to os.Stdout.
	Out io.Writer
}

// Generator generates meld registration code.
type Generator struct {
	opts Options
	fset *token.FileSet
}

// New creates a new generator.
func New(opts Options) *Generator {
	if opts.ImportPath == "" {
		opts.ImportPath = DefaultImportPath
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
	}
}

// ComponentInfo holds information about a discovered component.
type ComponentInfo struct {
	SourceFile  string
	Package     string
	TypeName    string // e.g., "TodoList"
	Name        string // registered name, e.g., "todo_list"
	Constructor string // e.g., "NewTodoList", empty when none
}

// Generate writes OutputFile into every package matched by patterns that
// declares at least one component.
func (g *Generator) Generate(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.generatePackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// Clean removes generated files for the given package patterns.
func (g *Generator) Clean(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.cleanPackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// Scan returns the components declared in the packages matched by patterns,
// sorted by registered name.
func (g *Generator) Scan(patterns ...string) ([]*ComponentInfo, error) {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return nil, err
	}

	var all []*ComponentInfo
	for _, pkg := range packages {
		comps, err := g.scanPackage(pkg)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", pkg, err)
		}
		for _, list := range comps {
			all = append(all, list...)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

// findPackages resolves package patterns to directory paths.
func (g *Generator) findPackages(patterns []string) ([]string, error) {
	var packages []string

	for _, pattern := range patterns {
		// Handle ./... pattern
		if !strings.HasSuffix(pattern, "/...") {
			packages = append(packages, pattern)
			continue
		}
		root := strings.TrimSuffix(pattern, "/...")
		if root == "" {
			root = "."
		}

		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			base := d.Name()
			if path != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") ||
				base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return nil
			}
			for _, entry := range entries {
				if !entry.IsDir() && isSourceFile(entry.Name()) {
					packages = append(packages, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return packages, nil
}

func isSourceFile(name string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		name != OutputFile
}

// scanPackage parses one directory and returns its components keyed by
// package name.
func (g *Generator) scanPackage(pkgPath string) (map[string][]*ComponentInfo, error) {
	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		return nil, err
	}

	files := make(map[string][]*ast.File)
	var order []string
	for _, entry := range entries {
		if entry.IsDir() || !isSourceFile(entry.Name()) {
			continue
		}
		path := filepath.Join(pkgPath, entry.Name())
		file, err := parser.ParseFile(g.fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		name := file.Name.Name
		if _, ok := files[name]; !ok {
			order = append(order, name)
		}
		files[name] = append(files[name], file)
	}

	out := make(map[string][]*ComponentInfo)
	for _, pkgName := range order {
		if comps := g.findComponents(pkgName, files[pkgName]); len(comps) > 0 {
			out[pkgName] = comps
		}
	}
	return out, nil
}

// generatePackage generates code for a single package.
func (g *Generator) generatePackage(pkgPath string) error {
	pkgs, err := g.scanPackage(pkgPath)
	if err != nil {
		return err
	}
	if len(pkgs) > 1 {
		return fmt.Errorf("components declared in more than one package")
	}

	for pkgName, comps := range pkgs {
		if err := g.writeRegistration(pkgPath, pkgName, comps); err != nil {
			return err
		}
	}
	return nil
}

// cleanPackage removes generated files from a package.
func (g *Generator) cleanPackage(pkgPath string) error {
	path := filepath.Join(pkgPath, OutputFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !isGenerated(data) {
		return nil
	}

	fmt.Fprintf(g.opts.Out, "removing %s\n", path)
	if g.opts.DryRun {
		return nil
	}
	return os.Remove(path)
}

// findComponents finds all component types in the files of one package.
func (g *Generator) findComponents(pkgName string, files []*ast.File) []*ComponentInfo {
	ctors := make(map[string]string)
	for _, file := range files {
		for name, typ := range findConstructors(file) {
			ctors[typ] = name
		}
	}

	var components []*ComponentInfo
	seen := make(map[string]string)
	for _, file := range files {
		alias := g.importName(file)
		if alias == "" {
			continue
		}
		filename := g.fset.Position(file.Pos()).Filename

		for _, decl := range file.Decls {
			genDecl, ok := decl.(*ast.GenDecl)
			if !ok || genDecl.Tok != token.TYPE {
				continue
			}

			for _, spec := range genDecl.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok || typeSpec.TypeParams != nil {
					continue
				}
				structType, ok := typeSpec.Type.(*ast.StructType)
				if !ok || !embedsBase(structType, alias) {
					continue
				}

				typeName := typeSpec.Name.Name
				doc := typeSpec.Doc
				if doc == nil && len(genDecl.Specs) == 1 {
					doc = genDecl.Doc
				}
				name := directiveName(doc)
				if name == "" {
					name = typeName
				}
				name = meld.NormalizeName(name)

				if prev, dup := seen[name]; dup {
					fmt.Fprintf(g.opts.Out, "warning: %s and %s both register %q, keeping %s\n",
						prev, typeName, name, prev)
					continue
				}
				seen[name] = typeName

				components = append(components, &ComponentInfo{
					SourceFile:  filename,
					Package:     pkgName,
					TypeName:    typeName,
					Name:        name,
					Constructor: ctors[typeName],
				})
			}
		}
	}

	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })
	return components
}

// importName returns the local name of the meld import in file, or "" when
// the file does not import it.
func (g *Generator) importName(file *ast.File) string {
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || path != g.opts.ImportPath {
			continue
		}
		if imp.Name != nil {
			if imp.Name.Name == "_" || imp.Name.Name == "." {
				return ""
			}
			return imp.Name.Name
		}
		return path[strings.LastIndex(path, "/")+1:]
	}
	return ""
}

// embedsBase checks if a struct embeds <alias>.Base by value.
func embedsBase(structType *ast.StructType, alias string) bool {
	for _, field := range structType.Fields.List {
		if len(field.Names) != 0 {
			continue
		}
		sel, ok := field.Type.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Base" {
			continue
		}
		if ident, ok := sel.X.(*ast.Ident); ok && ident.Name == alias {
			return true
		}
	}
	return false
}

// findConstructors maps type names to NewX functions that take no
// arguments and return *X.
func findConstructors(file *ast.File) map[string]string {
	out := make(map[string]string)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Type.TypeParams != nil {
			continue
		}
		if !strings.HasPrefix(fn.Name.Name, "New") || fn.Type.Params.NumFields() != 0 {
			continue
		}
		results := fn.Type.Results
		if results == nil || results.NumFields() != 1 {
			continue
		}
		star, ok := results.List[0].Type.(*ast.StarExpr)
		if !ok {
			continue
		}
		ident, ok := star.X.(*ast.Ident)
		if !ok || fn.Name.Name != "New"+ident.Name {
			continue
		}
		out[fn.Name.Name] = ident.Name
	}
	return out
}

// directiveName extracts the //meld:name directive from a doc comment.
func directiveName(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	for _, c := range doc.List {
		if strings.HasPrefix(c.Text, nameDirective) {
			return strings.TrimSpace(strings.TrimPrefix(c.Text, nameDirective))
		}
	}
	return ""
}
