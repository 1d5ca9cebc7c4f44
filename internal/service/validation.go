// Package service holds the user-facing lifecycle operations for recurring
// events and one-off reminders.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hilalcal/hilal/internal/repository"
	"github.com/hilalcal/hilal/internal/tz"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("iana_tz", func(fl validator.FieldLevel) bool {
		return tz.Valid(fl.Field().String())
	})
	return v
}

// validationError flattens validator failures into "field:tag" pairs.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fe.Field()+":"+fe.Tag())
	}
	sort.Strings(fields)
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
}

func notFound(err error, what, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}

func normalizeEmail(v *validator.Validate, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := v.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("%w: email", ErrValidation)
	}
	return email, nil
}
