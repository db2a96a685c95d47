package meld

import (
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestNewFormRejectsNonStructPointers(t *testing.T) {
	tests := []struct {
		name string
		v    any
	}{
		{"nil", nil},
		{"struct value", signupForm{}},
		{"nil pointer", (*signupForm)(nil)},
		{"pointer to int", new(int)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewForm(tt.v); err == nil {
				t.Errorf("NewForm(%T) should fail", tt.v)
			}
		})
	}
}

func TestFormFields(t *testing.T) {
	f, err := NewForm(&signupForm{})
	if err != nil {
		t.Fatalf("NewForm() error = %v", err)
	}

	want := []string{"email", "password", "password_confirm"}
	if got := f.Fields(); !reflect.DeepEqual(got, want) {
		t.Errorf("Fields() = %v, want %v", got, want)
	}
	if !f.Has("password_confirm") {
		t.Error("Has(password_confirm) = false, want true")
	}
	if f.Has("confirm") {
		t.Error("Has(confirm) = true, want false")
	}
}

func TestFormBind(t *testing.T) {
	f, _ := NewForm(&signupForm{})
	attrs := Attributes{
		{Name: "errors", Value: FieldErrors{}},
		{Name: "email", Value: "a@example.com"},
		{Name: "password_confirm", Value: "secret"},
		{Name: "submitted", Value: true},
	}
	if err := f.Bind(attrs); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	form := f.Struct().(*signupForm)
	if form.Email != "a@example.com" {
		t.Errorf("Email = %q, want %q", form.Email, "a@example.com")
	}
	if form.Confirm != "secret" {
		t.Errorf("Confirm = %q, want %q", form.Confirm, "secret")
	}
	if v, ok := f.Value("email"); !ok || v != "a@example.com" {
		t.Errorf("Value(email) = %v, %v", v, ok)
	}
}

func TestFormValidateMessages(t *testing.T) {
	tests := []struct {
		name   string
		form   signupForm
		field  string
		expect []string
	}{
		{"required", signupForm{}, "email", []string{"This field is required."}},
		{"email", signupForm{Email: "nope"}, "email", []string{"Invalid email address."}},
		{"min length", signupForm{Password: "short"}, "password", []string{"Field must be at least 8 characters long."}},
		{"eqfield", signupForm{Password: "longenough", Confirm: "other"}, "password_confirm", []string{"Field must be equal to password."}},
		{"valid", signupForm{Email: "a@example.com"}, "email", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := tt.form
			f, _ := NewForm(&form)
			valid := f.Validate(tt.field)
			if valid != (tt.expect == nil) {
				t.Errorf("Validate(%s) = %v, want %v", tt.field, valid, tt.expect == nil)
			}
			if got := f.FieldErrors(tt.field); !reflect.DeepEqual(got, tt.expect) {
				t.Errorf("FieldErrors(%s) = %v, want %v", tt.field, got, tt.expect)
			}
		})
	}
}

func TestFormValidateAll(t *testing.T) {
	f, _ := NewForm(&signupForm{Email: "a@example.com"})
	if f.Validate() {
		t.Fatal("Validate() = true, want false")
	}

	if got := f.Invalid(); !reflect.DeepEqual(got, []string{"password"}) {
		t.Errorf("Invalid() = %v, want [password]", got)
	}
	errs := f.Errors()
	if _, ok := errs["email"]; !ok {
		t.Error("Errors() should record valid fields too")
	}
	if errs.Has("email") {
		t.Errorf("Errors()[email] = %v, want none", errs["email"])
	}
}

type pinForm struct {
	Pin string `validate:"pin"`
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) == 4
	})
	if err != nil {
		t.Fatalf("RegisterValidation() error = %v", err)
	}

	f, _ := NewForm(&pinForm{Pin: "12"})
	if f.Validate() {
		t.Error("Validate() = true, want false")
	}
	if got := f.FieldErrors("pin"); !reflect.DeepEqual(got, []string{"Invalid value (pin)."}) {
		t.Errorf("FieldErrors(pin) = %v", got)
	}

	if err := f.Set("pin", 1234); err != nil {
		t.Fatalf("Set(pin) error = %v", err)
	}
	if !f.Validate() {
		t.Errorf("Validate() after Set = false, errors = %v", f.Errors())
	}
}
