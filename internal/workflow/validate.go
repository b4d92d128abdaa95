package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/evcraddock/ticketboard/internal/ticket"
)

// phonePattern accepts North American style numbers with optional
// separators, e.g. "(555) 123-4567", "+555.123.4567", "5551234567".
var phonePattern = regexp.MustCompile(`^[+]?[(]?[0-9]{3}[)]?[-\s.]?[0-9]{3}[-\s.]?[0-9]{4,6}$`)

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire name so errors line up with form inputs.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("registering phone validation: %v", err))
	}

	return v
}

// ValidationErrors maps a form field's wire name to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + v[f]
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// ValidateForm checks a ticket form the way the submission form does before
// anything is sent. It returns ValidationErrors when a field is rejected.
func ValidateForm(f ticket.Form) error {
	err := formValidator.Struct(f)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating form: %w", err)
	}

	out := ValidationErrors{}
	for _, fe := range fieldErrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = fieldMessage(fe)
		}
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.Field() == "terms":
		return "Terms must be accepted"
	case fe.Tag() == "phone":
		return "Phone number is not valid"
	case fe.Tag() == "eqfield":
		return "Emails must match."
	case fe.Tag() == "email":
		return fe.Field() + " must be a valid email"
	case fe.Tag() == "required":
		return fe.Field() + " is a required field"
	default:
		return fe.Field() + " is invalid"
	}
}
