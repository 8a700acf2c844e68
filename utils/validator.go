package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct validates a request struct and flattens the errors into
// one human-readable message.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs []string
	for _, err := range err.(validator.ValidationErrors) {
		field := strings.ToLower(err.Field())
		switch err.Tag() {
		case "required":
			errs = append(errs, field+" is required")
		case "min":
			errs = append(errs, field+" must be at least "+err.Param())
		case "max":
			errs = append(errs, field+" must be at most "+err.Param())
		case "gt":
			errs = append(errs, field+" must be greater than "+err.Param())
		default:
			errs = append(errs, field+" is invalid")
		}
	}

	return fmt.Errorf("%s", strings.Join(errs, ", "))
}
