package domain

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
)

var ErrValidation = errors.New("validation failed")

// ValidationError reports the first rule a value broke. Only one is ever
// reported per request.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Err.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

type check struct {
	field string
	value interface{}
	rules []validation.Rule
}

func field(name string, value interface{}, rules ...validation.Rule) check {
	return check{field: name, value: value, rules: rules}
}

// firstViolation runs the checks in order and stops at the first failure.
func firstViolation(checks ...check) error {
	for _, c := range checks {
		if err := validation.Validate(c.value, c.rules...); err != nil {
			return invalid(c.field, err)
		}
	}
	return nil
}

func (c check) validate() error {
	return firstViolation(c)
}
