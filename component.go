package meld

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/google/uuid"
)

// Component is implemented by every type that embeds Base.
type Component interface {
	base() *Base
}

// Base is embedded by user components to gain an identity, an error map,
// an optional bound form and the reflection-backed attribute and action
// tables.
//
// Exported fields of the embedding struct are the component's attributes.
// Exported methods declared on the pointer type are its actions:
//
//	type Counter struct {
//	    meld.Base
//	    Count int
//	}
//
//	func (c *Counter) Add(n int) { c.Count += n }
//
// Attribute names come from the `meld:"name"` tag or the snake_case field
// name; action names are the snake_case method name. Names starting with
// an underscore and the reserved names (id, render, view, updated, validate,
// mount, new_form, errors) are never exposed. A `meld:"-"` tag hides a field.
//
// Components are reconstructed from the client snapshot on every message.
// Only attributes survive between messages.
type Base struct {
	id     string
	errors FieldErrors
	data   map[string]any
	form   *Form
	desc   *description
	self   reflect.Value
}

func (b *Base) base() *Base { return b }

// ID returns the instance id.
func (b *Base) ID() string { return b.id }

// Errors returns the live error map. Entries are keyed by form field.
func (b *Base) Errors() FieldErrors { return b.errors }

// Form returns the bound form, or nil when the component has none.
func (b *Base) Form() *Form { return b.form }

// SetData exposes an extra template variable for the next render. Data
// values shadow attributes and actions with the same name and are not part
// of the snapshot.
func (b *Base) SetData(key string, value any) {
	if b.data == nil {
		b.data = make(map[string]any)
	}
	b.data[key] = value
}

// Data returns the extra template variables set with SetData.
func (b *Base) Data() map[string]any { return b.data }

// Has reports whether name is a public attribute.
func (b *Base) Has(name string) bool {
	if name == errorsAttr {
		return true
	}
	if b.desc == nil {
		return false
	}
	_, ok := b.desc.field(name)
	return ok
}

// Get returns the current value of the named attribute.
func (b *Base) Get(name string) (any, bool) {
	if name == errorsAttr {
		return b.errors, true
	}
	if b.desc == nil {
		return nil, false
	}
	f, ok := b.desc.field(name)
	if !ok {
		return nil, false
	}
	return b.self.Elem().FieldByIndex(f.index).Interface(), true
}

// Set assigns a client value to the named attribute, converting it to the
// field's type.
func (b *Base) Set(name string, value any) error {
	if name == errorsAttr {
		rv, err := coerce(value, reflect.TypeOf(FieldErrors{}))
		if err != nil {
			return fmt.Errorf("errors: %w", err)
		}
		b.errors = rv.Interface().(FieldErrors)
		if b.errors == nil {
			b.errors = FieldErrors{}
		}
		return nil
	}
	if b.desc == nil {
		return fmt.Errorf("%w: component not mounted", ErrInvalidComponent)
	}
	f, ok := b.desc.field(name)
	if !ok {
		return fmt.Errorf("unknown attribute %q", name)
	}
	rv, err := coerce(value, f.typ)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	b.self.Elem().FieldByIndex(f.index).Set(rv)
	return nil
}

// Attributes returns the ordered snapshot of public values: "errors" first,
// then fields in declaration order.
func (b *Base) Attributes() Attributes {
	n := 1
	if b.desc != nil {
		n += len(b.desc.fields)
	}
	attrs := make(Attributes, 0, n)
	attrs = append(attrs, Attribute{Name: errorsAttr, Value: b.errors})
	if b.desc == nil {
		return attrs
	}
	elem := b.self.Elem()
	for _, f := range b.desc.fields {
		attrs = append(attrs, Attribute{Name: f.name, Value: elem.FieldByIndex(f.index).Interface()})
	}
	return attrs
}

// Functions returns the public actions as bound method values, keyed by
// action name.
func (b *Base) Functions() map[string]any {
	if b.desc == nil {
		return map[string]any{}
	}
	fns := make(map[string]any, len(b.desc.actions))
	for _, a := range b.desc.actions {
		fns[a.name] = b.self.Method(a.index).Interface()
	}
	return fns
}

// Actions returns the public action names in method set order.
func (b *Base) Actions() []string {
	if b.desc == nil {
		return nil
	}
	names := make([]string, len(b.desc.actions))
	for i, a := range b.desc.actions {
		names[i] = a.name
	}
	return names
}

// Updated is called after an input sync changed an attribute. Components
// override it to react, typically by validating the field:
//
//	func (c *Signup) Updated(field string) { c.Validate(field) }
func (b *Base) Updated(string) {}

// Validate runs the bound form's validators and records the resulting
// messages in the error map. With no field names the whole form is checked.
// It reports true when the checked fields are valid or no form is bound.
func (b *Base) Validate(fields ...string) bool {
	if b.form == nil {
		return true
	}
	valid := b.form.Validate(fields...)
	if len(fields) == 0 {
		fields = b.form.Fields()
	}
	for _, name := range fields {
		if b.form.Has(name) {
			b.errors.Set(name, b.form.FieldErrors(name))
		}
	}
	return valid
}

// Mount prepares a component outside a registry: the type is described, the
// snapshot is applied and an id is assigned. It is mostly useful in tests.
func Mount[T Component](ctx context.Context, c T, id string, data map[string]any) (T, error) {
	err := mount(ctx, c, id, data, slog.Default())
	return c, err
}

// mount applies the construction protocol: attributes are restored from
// data (unknown keys are ignored), the form is bound, and the id is assigned
// last. A generated id marks a fresh instance and triggers the Mounter hook.
func mount(ctx context.Context, c Component, id string, data map[string]any, logger *slog.Logger) error {
	d, err := describe(c)
	if err != nil {
		return err
	}
	b := c.base()
	b.desc = d
	b.self = reflect.ValueOf(c)
	b.errors = FieldErrors{}
	b.data = nil

	if fp, ok := c.(FormProvider); ok {
		form, err := NewForm(fp.NewForm())
		if err != nil {
			return fmt.Errorf("%w: %v: %w", ErrInvalidComponent, d.typ, err)
		}
		b.form = form
	}

	for key, value := range data {
		if key != errorsAttr && !b.Has(key) {
			continue
		}
		if err := b.Set(key, value); err != nil {
			logger.Warn("snapshot value skipped", "attribute", key, "error", err)
		}
	}
	b.bindForm(logger)

	fresh := id == ""
	if fresh {
		id = uuid.NewString()
	}
	b.id = id

	if m, ok := c.(Mounter); ok && fresh {
		if err := m.Mount(ctx); err != nil {
			return fmt.Errorf("mount %v: %w", d.typ, err)
		}
		b.bindForm(logger)
	}
	return nil
}

func (b *Base) bindForm(logger *slog.Logger) {
	if b.form == nil {
		return
	}
	if err := b.form.Bind(b.Attributes()); err != nil {
		logger.Warn("form binding incomplete", "error", err)
	}
}

var errArguments = errors.New("argument mismatch")

// invoke calls the action with parsed call arguments. A leading
// context.Context parameter receives ctx. Argument problems wrap
// errArguments; a returned error or a panic wraps ErrActionFailed.
func (b *Base) invoke(ctx context.Context, a actionDef, args []any) (err error) {
	fn := b.self.Method(a.index)
	in, err := callArgs(ctx, fn.Type(), args)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errArguments, a.name, err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrActionFailed, a.name, r)
		}
	}()

	out := fn.Call(in)
	if n := len(out); n > 0 && out[n-1].Type().Implements(errorType) {
		if e, _ := out[n-1].Interface().(error); e != nil {
			return fmt.Errorf("%w: %s: %w", ErrActionFailed, a.name, e)
		}
	}
	return nil
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

func callArgs(ctx context.Context, ft reflect.Type, args []any) ([]reflect.Value, error) {
	var in []reflect.Value
	first := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
		first = 1
	}

	params := ft.NumIn() - first
	fixed := params
	if ft.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("want at least %d arguments, got %d", fixed, len(args))
		}
	} else if len(args) != params {
		return nil, fmt.Errorf("want %d arguments, got %d", params, len(args))
	}

	for i, arg := range args {
		var t reflect.Type
		if i < fixed {
			t = ft.In(first + i)
		} else {
			t = ft.In(ft.NumIn() - 1).Elem()
		}
		v, err := coerce(arg, t)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in = append(in, v)
	}
	return in, nil
}
