package meld

import (
	"context"
)

// Mounter is implemented by components that initialize state when a new
// instance is created.
//
// Mount runs once, for instances whose id was generated on the server (the
// initial render, or a message without an id). Instances reconstructed from
// a client snapshot are never mounted again; their state is the snapshot.
//
// Example:
//
//	func (c *TodoList) Mount(ctx context.Context) error {
//	    c.Items = c.store.Defaults(ctx)
//	    return nil
//	}
type Mounter interface {
	Mount(ctx context.Context) error
}

// Updater is implemented by every component through Base. Override Updated
// to react to input syncs.
//
// Updated receives the form field name when the synced attribute belongs to
// the bound form, and the attribute name otherwise.
type Updater interface {
	Updated(name string)
}

// FormProvider is implemented by components that bind a form.
//
// NewForm returns a pointer to a fresh form struct. Its fields are matched to
// component attributes by the `form:"name"` tag or the snake_case field name,
// and validated with `validate` tags:
//
//	type SignupForm struct {
//	    Email    string `validate:"required,email"`
//	    Password string `validate:"required,min=8"`
//	}
//
//	func (c *Signup) NewForm() any { return &SignupForm{} }
//
// The form is rebuilt from the component's attributes on every message.
type FormProvider interface {
	NewForm() any
}

// TemplateLister is implemented by engines that can enumerate their
// templates. Registry.Check uses it to find components without a template.
type TemplateLister interface {
	Templates() []string
}
