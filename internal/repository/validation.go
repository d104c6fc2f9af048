package repository

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field constraints for new accounts
const (
	MaxNameLength     = 50
	MinPasswordLength = 8
	MaxPasswordBytes  = 72 // bcrypt ignores input past this length
)

// ValidationError aggregates every violated field constraint
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

type newUserInput struct {
	Name     string `validate:"required,max=50"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// messages keyed by field and failed tag
var violationMessages = map[string]string{
	"Name.required":     "Please add a name",
	"Name.max":          "Name cannot be more than 50 characters",
	"Email.required":    "Please add an email",
	"Email.email":       "Please provide a valid email",
	"Password.required": "Please add a password",
	"Password.min":      "Password must be at least 8 characters",
}

// NormalizeEmail trims and lowercases an email address for comparison and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName trims surrounding whitespace from a display name
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateNewUser checks the constraints of a new account. Name and email are
// expected to be normalized already. It returns a *ValidationError or nil.
func ValidateNewUser(name, email, password string) error {
	var messages []string

	err := validate.Struct(newUserInput{Name: name, Email: email, Password: password})
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			msg, ok := violationMessages[fe.Field()+"."+fe.Tag()]
			if !ok {
				msg = fe.Field() + " is invalid"
			}
			messages = append(messages, msg)
		}
	} else if err != nil {
		return err
	}

	if len(password) > MaxPasswordBytes {
		messages = append(messages, "Password cannot be more than 72 bytes")
	}

	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}
