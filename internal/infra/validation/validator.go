package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput wraps every rejection so transports can map it to a
// client error.
var ErrInvalidInput = errors.New("validation: invalid input")

// Validator checks struct tags first, then the message's own Validate
// method when it has one.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	return &Validator{v: v}
}

func (val *Validator) Validate(_ context.Context, message any) error {
	if message == nil {
		return fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	if isStruct(message) {
		if err := val.v.Struct(message); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidInput, describe(err))
		}
	}
	if self, ok := message.(interface{ Validate() error }); ok {
		if err := self.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func isStruct(message any) bool {
	t := reflect.TypeOf(message)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
