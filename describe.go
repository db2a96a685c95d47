package meld

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// reservedNames are never exposed as attributes or actions. They cover the
// identity, the render entry points, lifecycle hooks and the error map.
var reservedNames = map[string]bool{
	"id":       true,
	"render":   true,
	"view":     true,
	"updated":  true,
	"validate": true,
	"mount":    true,
	"new_form": true,
	errorsAttr: true,
}

// IsPublicName reports whether name may be exposed to templates and clients.
func IsPublicName(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_") && !reservedNames[name]
}

var baseType = reflect.TypeOf(Base{})

type fieldDef struct {
	name  string
	index []int
	typ   reflect.Type
}

type actionDef struct {
	name   string
	goName string
	index  int
}

// description is the static declaration of a component type: its public
// fields and actions, computed once and shared by every instance.
type description struct {
	typ         reflect.Type
	fields      []fieldDef
	fieldIndex  map[string]int
	actions     []actionDef
	actionIndex map[string]int
}

func (d *description) field(name string) (fieldDef, bool) {
	i, ok := d.fieldIndex[name]
	if !ok {
		return fieldDef{}, false
	}
	return d.fields[i], true
}

func (d *description) action(name string) (actionDef, bool) {
	i, ok := d.actionIndex[name]
	if !ok {
		i, ok = d.actionIndex[snakeCase(name)]
	}
	if !ok {
		return actionDef{}, false
	}
	return d.actions[i], true
}

// descriptions caches one description per component pointer type.
var descriptions sync.Map

func describe(c Component) (*description, error) {
	t := reflect.TypeOf(c)
	if d, ok := descriptions.Load(t); ok {
		return d.(*description), nil
	}
	d, err := buildDescription(t)
	if err != nil {
		return nil, err
	}
	actual, _ := descriptions.LoadOrStore(t, d)
	return actual.(*description), nil
}

func buildDescription(t reflect.Type) (*description, error) {
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v is not a pointer to a struct", ErrInvalidComponent, t)
	}
	st := t.Elem()
	if !embedsBase(st) {
		return nil, fmt.Errorf("%w: %v does not embed meld.Base", ErrInvalidComponent, t)
	}

	d := &description{
		typ:         t,
		fieldIndex:  make(map[string]int),
		actionIndex: make(map[string]int),
	}

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous || !f.IsExported() || f.Type.Kind() == reflect.Func {
			continue
		}
		name, skip := fieldName(f, "meld")
		if skip || !IsPublicName(name) {
			continue
		}
		if _, dup := d.fieldIndex[name]; dup {
			return nil, fmt.Errorf("%w: %v declares attribute %q twice", ErrInvalidComponent, t, name)
		}
		d.fieldIndex[name] = len(d.fields)
		d.fields = append(d.fields, fieldDef{name: name, index: f.Index, typ: f.Type})
	}

	basePtr := reflect.PointerTo(baseType)
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if _, promoted := basePtr.MethodByName(m.Name); promoted {
			continue
		}
		name := snakeCase(m.Name)
		if !IsPublicName(name) {
			continue
		}
		if _, clash := d.fieldIndex[name]; clash {
			return nil, fmt.Errorf("%w: %v uses %q for both an attribute and an action", ErrReservedName, t, name)
		}
		d.actionIndex[name] = len(d.actions)
		d.actions = append(d.actions, actionDef{name: name, goName: m.Name, index: m.Index})
	}

	return d, nil
}

func embedsBase(st reflect.Type) bool {
	for i := 0; i < st.NumField(); i++ {
		if f := st.Field(i); f.Anonymous && f.Type == baseType {
			return true
		}
	}
	return false
}

// fieldName resolves the public name of a struct field from the given tag,
// falling back to the snake_case field name. A "-" tag skips the field.
func fieldName(f reflect.StructField, tag string) (string, bool) {
	if v, ok := f.Tag.Lookup(tag); ok {
		name, _, _ := strings.Cut(v, ",")
		if name == "-" {
			return "", true
		}
		if name != "" {
			return name, false
		}
	}
	return snakeCase(f.Name), false
}

// snakeCase converts Go identifiers and dashed names to snake_case:
// "AddItem" -> "add_item", "HTMLBody" -> "html_body", "todo-list" -> "todo_list".
func snakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		switch {
		case r == '-' || r == ' ' || r == '.':
			sb.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 && boundary(runes, i) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func boundary(runes []rune, i int) bool {
	prev := runes[i-1]
	if prev == '_' || prev == '-' || prev == ' ' || prev == '.' {
		return false
	}
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
