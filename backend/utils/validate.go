package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs struct-tag validation on a request body and returns a
// field -> message map suitable for the error envelope's details.
func ValidateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			out[field] = "this field is required"
		case "email":
			out[field] = "must be a valid email address"
		case "min":
			out[field] = fmt.Sprintf("must be at least %s", fe.Param())
		case "oneof":
			out[field] = fmt.Sprintf("must be one of: %s", fe.Param())
		default:
			out[field] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
	}
	return out
}
