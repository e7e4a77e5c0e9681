// Package auth validates login and signup form input before submission
package auth

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MsgName     = "Please enter your first and last name"
	MsgEmail    = "Please enter a valid email address"
	MsgPassword = "Password must be at least 8 characters long"
	MsgTerms    = "You must agree to the Terms & Conditions"
	MsgNoPass   = "Please enter your password"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Signup is the signup form. Field order is the order rules are checked in.
type Signup struct {
	FirstName     string `validate:"required"`
	LastName      string `validate:"required"`
	Email         string `validate:"email_loose"`
	Password      string `validate:"min=8"`
	AcceptedTerms bool   `validate:"required"`
}

type Login struct {
	Email    string `validate:"email_loose"`
	Password string `validate:"required"`
}

// FormError is the first rule a form broke
type FormError struct {
	Field   string
	Message string
}

func (e *FormError) Error() string { return e.Message }

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	// registering a fixed tag with a valid func cannot fail
	_ = v.RegisterValidation("email_loose", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Signup checks the form after trimming names and email. The password is
// taken as typed.
func (v *Validator) Signup(f Signup) error {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	return v.check(f, map[string]string{
		"FirstName":     MsgName,
		"LastName":      MsgName,
		"Email":         MsgEmail,
		"Password":      MsgPassword,
		"AcceptedTerms": MsgTerms,
	})
}

func (v *Validator) Login(f Login) error {
	f.Email = strings.TrimSpace(f.Email)
	return v.check(f, map[string]string{
		"Email":    MsgEmail,
		"Password": MsgNoPass,
	})
}

func (v *Validator) check(form interface{}, messages map[string]string) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	return &FormError{Field: first.Field(), Message: messages[first.Field()]}
}
