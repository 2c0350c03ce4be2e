package main

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report the json field name instead of the go one.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateBookPayload checks the struct rules of a create or edit payload.
// The first failing field is reported as a *ValidationError.
func ValidateBookPayload(payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: "invalid payload", Err: err}
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return &ValidationError{Reason: missingFieldError(fe.Field()).Error()}
	case "min":
		return &ValidationError{Reason: fe.Field() + " must not be empty"}
	case "max":
		return &ValidationError{Reason: fe.Field() + " must not exceed " + fe.Param()}
	default:
		return &ValidationError{Reason: fe.Field() + " is invalid"}
	}
}
