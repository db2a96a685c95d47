package meld

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	reg.Add("counter", func() Component { return &counter{} })
	reg.Add("signup-form", func() Component { return &signup{} })
	return reg
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"counter", "counter"},
		{"todo-list", "todo_list"},
		{"TodoList", "todo_list"},
		{" todo_list ", "todo_list"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.out {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.out)
			}
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := newTestRegistry(t)

	for _, name := range []string{"signup-form", "signup_form", "SignupForm"} {
		got, err := reg.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", name, err)
		}
		if got != "signup_form" {
			t.Errorf("Resolve(%q) = %q, want signup_form", name, got)
		}
	}

	if _, err := reg.Resolve("missing"); !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("Resolve(missing) error = %v, want ErrComponentNotFound", err)
	}
}

func TestRegistryRegisterErrors(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		name      string
		component string
		ctor      Constructor
	}{
		{"empty name", "  ", func() Component { return &counter{} }},
		{"nil constructor", "other", nil},
		{"nil component", "other", func() Component { return nil }},
		{"duplicate", "Counter", func() Component { return &counter{} }},
		{"invalid type", "other", func() Component { return &duplicateAttr{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := reg.Register(tt.component, tt.ctor); !errors.Is(err, ErrInvalidComponent) {
				t.Errorf("Register() error = %v, want ErrInvalidComponent", err)
			}
		})
	}
}

func TestRegistryAddPanics(t *testing.T) {
	reg := newTestRegistry(t)
	defer func() {
		if recover() == nil {
			t.Error("Add() with duplicate name should panic")
		}
	}()
	reg.Add("counter", func() Component { return &counter{} })
}

func TestRegistryNew(t *testing.T) {
	reg := newTestRegistry(t)

	c, err := reg.New(context.Background(), "counter", "c1", map[string]any{"count": 2.0})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cnt, ok := c.(*counter)
	if !ok {
		t.Fatalf("New() = %T, want *counter", c)
	}
	if cnt.Count != 2 || cnt.ID() != "c1" {
		t.Errorf("New() = count %d id %q, want 2 c1", cnt.Count, cnt.ID())
	}

	other, _ := reg.New(context.Background(), "counter", "c2", nil)
	if other.(*counter).Count != 0 {
		t.Error("instances must not share state")
	}
}

func TestRegistryNamesAndDescribe(t *testing.T) {
	reg := newTestRegistry(t)

	if got := reg.Names(); !reflect.DeepEqual(got, []string{"counter", "signup_form"}) {
		t.Errorf("Names() = %v", got)
	}

	info, err := reg.Describe("counter")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if !reflect.DeepEqual(info.Attributes, []string{"errors", "count", "title"}) {
		t.Errorf("Attributes = %v", info.Attributes)
	}
	if !reflect.DeepEqual(info.Actions, []string{"add", "explode", "reset", "set_label", "sum"}) {
		t.Errorf("Actions = %v", info.Actions)
	}
	if info.Type != "*meld.counter" {
		t.Errorf("Type = %q, want *meld.counter", info.Type)
	}
}

func TestRegistryCheck(t *testing.T) {
	reg := newTestRegistry(t)

	engine := NewTemplEngine()
	engine.Add("counter", nil)
	err := reg.Check(engine, nil)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("Check() error = %v, want ErrTemplateNotFound", err)
	}

	engine.Add("signup-form", nil)
	if err := reg.Check(engine, nil); err != nil {
		t.Errorf("Check() error = %v, want nil", err)
	}
}
