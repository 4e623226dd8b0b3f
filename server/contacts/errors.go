package contacts

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// ValidationError reports missing or malformed contact fields. The caller
// keeps its input so the user can correct it.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, ", ")
}

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("contact with id=%v not found", e.ID)
}

func newValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Problems: []string{err.Error()}}
	}

	problems := []string{}
	for _, fieldErr := range validationErrs {
		switch fieldErr.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fieldErr.Field()))
		default:
			problems = append(problems, fmt.Sprintf("%s failed '%s' validation", fieldErr.Field(), fieldErr.Tag()))
		}
	}

	return &ValidationError{Problems: problems}
}
