package components

import "github.com/pthm/meld"

// SignupForm holds the validated fields of the signup component.
type SignupForm struct {
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=8"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}

// Signup is a registration form validated as the user types.
//
//meld:name signup
type Signup struct {
	meld.Base
	Email           string `meld:"email"`
	Password        string `meld:"password"`
	PasswordConfirm string `meld:"password_confirm"`
	Done            bool   `meld:"done"`
}

// NewForm binds the component to SignupForm.
func (c *Signup) NewForm() any {
	return &SignupForm{}
}

// Updated validates the field the user just changed.
func (c *Signup) Updated(field string) {
	c.Validate(field)
}

// Submit validates every field and marks the form done when valid.
func (c *Signup) Submit() {
	c.Done = c.Validate()
}
