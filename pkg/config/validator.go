package config

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// queueNamePattern accepts Redis key names without whitespace or glob characters.
var queueNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_:.-]*$`)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("queue_name", validateQueueName)
}

func validateQueueName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if len(name) > 128 {
		return false
	}
	return queueNamePattern.MatchString(name)
}
