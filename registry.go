package meld

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Constructor returns a fresh, zero-state component instance.
type Constructor func() Component

type entry struct {
	name string
	ctor Constructor
	desc *description
}

// Registry maps component names to constructors.
//
// Names are normalized to snake_case, so "todo-list", "TodoList" and
// "todo_list" resolve to the same component. Register components at startup;
// lookups are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// NormalizeName returns the canonical form of a component name.
func NormalizeName(name string) string {
	return snakeCase(strings.TrimSpace(name))
}

// Register adds a component under name. The constructor is called once to
// describe the type; an invalid type or a duplicate name is an error.
func (reg *Registry) Register(name string, ctor Constructor) error {
	key := NormalizeName(name)
	if key == "" {
		return fmt.Errorf("%w: empty component name", ErrInvalidComponent)
	}
	if ctor == nil {
		return fmt.Errorf("%w: %q has no constructor", ErrInvalidComponent, key)
	}
	probe := ctor()
	if probe == nil {
		return fmt.Errorf("%w: constructor for %q returned nil", ErrInvalidComponent, key)
	}
	desc, err := describe(probe)
	if err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.entries[key]; exists {
		return fmt.Errorf("%w: %q is already registered", ErrInvalidComponent, key)
	}
	reg.entries[key] = &entry{name: key, ctor: ctor, desc: desc}
	return nil
}

// Add registers a component and panics on error. Use it for static
// registration at startup:
//
//	reg.Add("counter", func() meld.Component { return &Counter{} })
func (reg *Registry) Add(name string, ctor Constructor) {
	if err := reg.Register(name, ctor); err != nil {
		panic(err.Error())
	}
}

// Resolve returns the canonical name for a registered component.
func (reg *Registry) Resolve(name string) (string, error) {
	e, err := reg.lookup(name)
	if err != nil {
		return "", err
	}
	return e.name, nil
}

func (reg *Registry) lookup(name string) (*entry, error) {
	key := NormalizeName(name)
	reg.mu.RLock()
	e, ok := reg.entries[key]
	reg.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrComponentNotFound, name)
	}
	return e, nil
}

// New constructs an instance of the named component from a client snapshot.
// An empty id produces a fresh instance with a generated id.
func (reg *Registry) New(ctx context.Context, name, id string, data map[string]any) (Component, error) {
	return reg.instantiate(ctx, name, id, data, slog.Default())
}

func (reg *Registry) instantiate(ctx context.Context, name, id string, data map[string]any, logger *slog.Logger) (Component, error) {
	e, err := reg.lookup(name)
	if err != nil {
		return nil, err
	}
	c := e.ctor()
	if err := mount(ctx, c, id, data, logger.With("component", e.name)); err != nil {
		return nil, err
	}
	return c, nil
}

// Names returns the registered component names, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.entries))
	for name := range reg.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info describes a registered component.
type Info struct {
	Name       string
	Type       string
	Attributes []string
	Actions    []string
}

// Describe returns the public surface of the named component.
func (reg *Registry) Describe(name string) (Info, error) {
	e, err := reg.lookup(name)
	if err != nil {
		return Info{}, err
	}
	info := Info{Name: e.name, Type: e.desc.typ.String(), Attributes: []string{errorsAttr}}
	for _, f := range e.desc.fields {
		info.Attributes = append(info.Attributes, f.name)
	}
	for _, a := range e.desc.actions {
		info.Actions = append(info.Actions, a.name)
	}
	return info, nil
}

// Check reports every registered component without a template in lister.
// templateName maps a component name to its template name; nil means the
// component name itself.
func (reg *Registry) Check(lister TemplateLister, templateName func(string) string) error {
	if templateName == nil {
		templateName = func(name string) string { return name }
	}
	available := make(map[string]bool)
	for _, t := range lister.Templates() {
		available[templateKey(t)] = true
	}
	var errs []error
	for _, name := range reg.Names() {
		if t := templateName(name); !available[templateKey(t)] {
			errs = append(errs, fmt.Errorf("%w: component %q needs template %q", ErrTemplateNotFound, name, t))
		}
	}
	return errors.Join(errs...)
}
