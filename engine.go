package meld

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

// Engine renders a named template with a variable map.
//
// Engines return ErrTemplateNotFound (wrapped) for unknown names.
type Engine interface {
	Render(ctx context.Context, name string, vars map[string]any) (string, error)
}

// templateKey normalizes the last path element of a template name so that
// "components/todo-list" and "components/todo_list" are the same template.
func templateKey(name string) string {
	dir, file := path.Split(name)
	return dir + NormalizeName(file)
}

// FileEngine renders html/template files from a file system.
//
// Every file with the configured extension (".html" by default) is parsed at
// construction. A template is named by its path relative to the root without
// the extension: "counter.html" is "counter" and "forms/signup.html" is
// "forms/signup".
type FileEngine struct {
	templates map[string]*template.Template
}

type fileEngineConfig struct {
	ext   string
	funcs template.FuncMap
}

// FileEngineOption configures a FileEngine.
type FileEngineOption func(*fileEngineConfig)

// WithExtension sets the template file extension.
func WithExtension(ext string) FileEngineOption {
	return func(c *fileEngineConfig) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.ext = ext
	}
}

// WithFuncs adds template functions.
func WithFuncs(funcs template.FuncMap) FileEngineOption {
	return func(c *fileEngineConfig) {
		for k, v := range funcs {
			c.funcs[k] = v
		}
	}
}

// NewFileEngine parses every template under fsys.
func NewFileEngine(fsys fs.FS, opts ...FileEngineOption) (*FileEngine, error) {
	cfg := &fileEngineConfig{ext: ".html", funcs: template.FuncMap{}}
	for _, opt := range opts {
		opt(cfg)
	}

	e := &FileEngine{templates: make(map[string]*template.Template)}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, cfg.ext) {
			return nil
		}
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(p, cfg.ext)
		t, err := template.New(name).Funcs(cfg.funcs).Parse(string(src))
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		e.templates[templateKey(name)] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Render executes the named template.
func (e *FileEngine) Render(_ context.Context, name string, vars map[string]any) (string, error) {
	t, ok := e.templates[templateKey(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Templates returns the parsed template names, sorted.
func (e *FileEngine) Templates() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TemplFunc builds a templ component from the render variables.
type TemplFunc func(vars map[string]any) templ.Component

// TemplEngine renders templ components registered by name.
//
//	engine := meld.NewTemplEngine().
//	    Add("counter", func(vars map[string]any) templ.Component {
//	        return counterView(vars["count"].(int))
//	    })
type TemplEngine struct {
	mu         sync.RWMutex
	components map[string]TemplFunc
}

// NewTemplEngine creates an empty templ engine.
func NewTemplEngine() *TemplEngine {
	return &TemplEngine{components: make(map[string]TemplFunc)}
}

// Add registers fn under name and returns the engine for chaining.
func (e *TemplEngine) Add(name string, fn TemplFunc) *TemplEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.components[templateKey(name)] = fn
	return e
}

// Render builds and renders the named templ component.
func (e *TemplEngine) Render(ctx context.Context, name string, vars map[string]any) (string, error) {
	e.mu.RLock()
	fn, ok := e.components[templateKey(name)]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	var buf bytes.Buffer
	if err := fn(vars).Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Templates returns the registered names, sorted.
func (e *TemplEngine) Templates() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.components))
	for name := range e.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
