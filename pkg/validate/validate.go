package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	// Report fields by their json name so error messages match the wire format
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// Struct runs the declarative validation rules on the given request struct
// and returns the first rule violation as a readable error, or nil when all
// rules pass.
func Struct(i interface{}) error {
	err := v.Struct(i)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err
	}

	return fmt.Errorf("%s", message(errs[0]))
}

// message renders a single field error into the message returned to clients
func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		if fe.Param() == "0" {
			return fmt.Sprintf("%s must be a positive number", field)
		}
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// EchoValidator adapts the rule-checker to Echo's Validator interface
type EchoValidator struct{}

// Validate implements echo.Validator
func (EchoValidator) Validate(i interface{}) error {
	return Struct(i)
}
