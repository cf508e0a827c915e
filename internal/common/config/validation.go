package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LogValidationErrors logs one line per field that failed validation. Errors that did not come from the validator
// are logged as they are.
func LogValidationErrors(log *logrus.Entry, err error) {
	if err == nil {
		return
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		log.Errorf("ConfigError: %s", err)
		return
	}
	for _, err := range validationErrors {
		fieldName := stripPrefix(err.Namespace())
		tag := err.Tag()
		switch tag {
		case "required":
			log.Errorf("ConfigError: Field %s is required but was not found", fieldName)
		default:
			log.Errorf("ConfigError: Field %s has invalid value %v: %s %s", fieldName, err.Value(), tag, err.Param())
		}
	}
}

func stripPrefix(s string) string {
	if idx := strings.Index(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}
