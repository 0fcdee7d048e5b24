package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// getFieldFlag extracts the flag name from struct tags for the field at the
// given validator namespace, e.g. "Local.Bucket.Name".
func getFieldFlag(structType reflect.Type, namespace string) string {
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}

	parts := strings.Split(namespace, ".")
	field := reflect.StructField{Type: structType}
	for _, name := range parts[1:] {
		if field.Type.Kind() != reflect.Struct {
			break
		}
		f, found := field.Type.FieldByName(name)
		if !found {
			break
		}
		field = f
	}

	if flagTag := field.Tag.Get("flag"); flagTag != "" {
		return "--" + flagTag
	}
	return "--" + strings.ToLower(parts[len(parts)-1])
}

func formatValidationError(structType reflect.Type, errs validator.ValidationErrors) error {
	var messages []string

	for _, err := range errs {
		field := strings.TrimPrefix(err.Namespace(), "Local.")
		hint := fmt.Sprintf(" (see %s flag for help)", getFieldFlag(structType, err.Namespace()))

		switch err.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required but not provided%s", field, hint))
		case "url":
			messages = append(messages, fmt.Sprintf("%s must be a valid URL%s", field, hint))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s%s", field, err.Param(), hint))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s%s", field, err.Param(), hint))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s%s", field, err.Param(), hint))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation: %s%s", field, err.Tag(), hint))
		}
	}

	if len(messages) == 1 {
		return fmt.Errorf("config validation error: %s", messages[0])
	}
	return fmt.Errorf("config validation errors:\n  - %s", strings.Join(messages, "\n  - "))
}

func validateConfig(cfg any) error {
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationError(reflect.TypeOf(cfg), validationErrors)
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
