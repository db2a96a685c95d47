package meld

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, skip := fieldName(f, "form")
		if skip {
			return ""
		}
		return name
	})
	return v
}

// RegisterValidation adds a custom validation tag usable by every form.
// Register validations at startup, before any message is processed.
func RegisterValidation(tag string, fn validator.Func) error {
	return validate.RegisterValidation(tag, fn)
}

type formField struct {
	name   string
	goName string
	index  []int
	typ    reflect.Type
}

// Form binds a validated struct to component attributes of the same name.
type Form struct {
	target reflect.Value
	fields []formField
	byName map[string]int
	byGo   map[string]int
	errs   FieldErrors
}

// NewForm wraps a pointer to a form struct.
func NewForm(v any) (*Form, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("form must be a non-nil pointer to a struct, got %T", v)
	}

	f := &Form{
		target: rv,
		byName: make(map[string]int),
		byGo:   make(map[string]int),
		errs:   FieldErrors{},
	}
	st := rv.Elem().Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if sf.Anonymous || !sf.IsExported() {
			continue
		}
		name, skip := fieldName(sf, "form")
		if skip {
			continue
		}
		f.byName[name] = len(f.fields)
		f.byGo[sf.Name] = len(f.fields)
		f.fields = append(f.fields, formField{name: name, goName: sf.Name, index: sf.Index, typ: sf.Type})
	}
	return f, nil
}

// Struct returns the bound form struct pointer.
func (f *Form) Struct() any { return f.target.Interface() }

// Fields returns the form field names in declaration order.
func (f *Form) Fields() []string {
	names := make([]string, len(f.fields))
	for i, field := range f.fields {
		names[i] = field.name
	}
	return names
}

// Has reports whether the form declares the named field.
func (f *Form) Has(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Value returns the current value of the named field.
func (f *Form) Value(name string) (any, bool) {
	i, ok := f.byName[name]
	if !ok {
		return nil, false
	}
	return f.target.Elem().FieldByIndex(f.fields[i].index).Interface(), true
}

// Set updates the named field, converting value to the field's type.
func (f *Form) Set(name string, value any) error {
	i, ok := f.byName[name]
	if !ok {
		return fmt.Errorf("form has no field %q", name)
	}
	field := f.fields[i]
	rv, err := coerce(value, field.typ)
	if err != nil {
		return fmt.Errorf("form field %q: %w", name, err)
	}
	f.target.Elem().FieldByIndex(field.index).Set(rv)
	return nil
}

// Bind copies every attribute that names a form field into the form.
func (f *Form) Bind(attrs Attributes) error {
	var errs []error
	for _, attr := range attrs {
		if !f.Has(attr.Name) {
			continue
		}
		if err := f.Set(attr.Name, attr.Value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks the named fields, or the whole form when none are given,
// and records their messages. It reports whether the checked fields are
// valid.
func (f *Form) Validate(fields ...string) bool {
	found := FieldErrors{}
	if err := validate.Struct(f.target.Interface()); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			for _, field := range f.fields {
				found[field.name] = []string{err.Error()}
			}
		}
		for _, fe := range verrs {
			name := f.nameOf(fe.StructField())
			found[name] = append(found[name], f.message(fe))
		}
	}

	if len(fields) == 0 {
		fields = f.Fields()
	}
	valid := true
	for _, name := range fields {
		if !f.Has(name) {
			continue
		}
		f.errs[name] = found[name]
		if len(found[name]) > 0 {
			valid = false
		}
	}
	return valid
}

// Errors returns a copy of the recorded messages for every validated field.
func (f *Form) Errors() FieldErrors {
	out := make(FieldErrors, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

// FieldErrors returns the recorded messages for one field.
func (f *Form) FieldErrors(name string) []string {
	return f.errs[name]
}

// Invalid returns the names of fields with messages, sorted.
func (f *Form) Invalid() []string {
	var names []string
	for name, msgs := range f.errs {
		if len(msgs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (f *Form) nameOf(goName string) string {
	if i, ok := f.byGo[goName]; ok {
		return f.fields[i].name
	}
	return snakeCase(goName)
}

func (f *Form) message(fe validator.FieldError) string {
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "url", "http_url":
		return "Invalid URL."
	case "eqfield":
		return fmt.Sprintf("Field must be equal to %s.", f.nameOf(fe.Param()))
	case "oneof":
		return "Not a valid choice."
	case "min", "gte":
		if text {
			return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
		}
		return fmt.Sprintf("Number must be at least %s.", fe.Param())
	case "max", "lte":
		if text {
			return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Number must be at most %s.", fe.Param())
	case "len":
		return fmt.Sprintf("Field must be exactly %s characters long.", fe.Param())
	case "numeric", "number":
		return "Not a valid number."
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}
