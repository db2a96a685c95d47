package meld

import (
	"reflect"
	"testing"
)

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type level int

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		typ     reflect.Type
		want    any
		wantErr bool
	}{
		{"nil to int", nil, reflect.TypeOf(0), 0, false},
		{"float to int", 3.0, reflect.TypeOf(0), 3, false},
		{"string to int", "42", reflect.TypeOf(0), 42, false},
		{"fraction to int", 3.5, reflect.TypeOf(0), nil, true},
		{"int64 to int8 overflow", int64(300), reflect.TypeOf(int8(0)), nil, true},
		{"negative to uint", int64(-1), reflect.TypeOf(uint(0)), nil, true},
		{"int to string", int64(7), reflect.TypeOf(""), "7", false},
		{"float to string", 2.5, reflect.TypeOf(""), "2.5", false},
		{"bool to string", true, reflect.TypeOf(""), "true", false},
		{"string to bool", "true", reflect.TypeOf(false), true, false},
		{"bad bool", "yes please", reflect.TypeOf(false), nil, true},
		{"string to float", "1.25", reflect.TypeOf(0.0), 1.25, false},
		{"int to float32", int64(2), reflect.TypeOf(float32(0)), float32(2), false},
		{"named int", int64(2), reflect.TypeOf(level(0)), level(2), false},
		{"any passthrough", "x", reflect.TypeOf((*any)(nil)).Elem(), "x", false},
		{"list to strings", []any{"a", "b"}, reflect.TypeOf([]string{}), []string{"a", "b"}, false},
		{"map to struct", map[string]any{"x": 1.0, "y": 2.0}, reflect.TypeOf(point{}), point{X: 1, Y: 2}, false},
		{"map to int", map[string]any{}, reflect.TypeOf(0), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerce(tt.in, tt.typ)
			if tt.wantErr {
				if err == nil {
					t.Errorf("coerce(%v, %s) should fail, got %v", tt.in, tt.typ, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("coerce(%v, %s) error = %v", tt.in, tt.typ, err)
			}
			if !reflect.DeepEqual(got.Interface(), tt.want) {
				t.Errorf("coerce(%v, %s) = %#v, want %#v", tt.in, tt.typ, got.Interface(), tt.want)
			}
		})
	}
}
