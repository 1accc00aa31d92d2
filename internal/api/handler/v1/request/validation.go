package request

import (
	"errors"
	"fmt"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/campus-portal/event-portal-api/internal/domain"
)

var (
	emailPattern = regexp2.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,})+$`, regexp2.None)
	phonePattern = regexp2.MustCompile(`^\+?[\d\s\-()]+$`, regexp2.None)

	errInvalidEmail = errors.New("please provide a valid email")
	errInvalidPhone = errors.New("please provide a valid phone number")
)

// matches adapts a regexp2 pattern to an ozzo rule. Empty values pass.
func matches(re *regexp2.Regexp, msg error) validation.Rule {
	return validation.By(func(value interface{}) error {
		value, isNil := validation.Indirect(value)
		if isNil || validation.IsEmpty(value) {
			return nil
		}
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("must be a string")
		}
		ok, err := re.MatchString(s)
		if err != nil || !ok {
			return msg
		}
		return nil
	})
}

type check struct {
	field string
	value interface{}
	rules []validation.Rule
}

func field(name string, value interface{}, rules ...validation.Rule) check {
	return check{field: name, value: value, rules: rules}
}

// firstError runs the checks in declaration order and reports only the first
// failure.
func firstError(checks ...check) error {
	for _, c := range checks {
		if err := validation.Validate(c.value, c.rules...); err != nil {
			return &domain.ValidationError{Field: c.field, Err: err}
		}
	}
	return nil
}
