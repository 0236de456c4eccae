package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a Config for internal consistency using struct tags plus
// the cross-field rules validator tags can't express directly (telemetry
// enabled without an endpoint).
//
// Validate does not normalize values -- ApplyDefaults is responsible for
// that -- so a log level of "info" and "INFO" are both accepted here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if cfg.Telemetry.Enabled && strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}

	if cfg.Telemetry.Profiling.Enabled && strings.TrimSpace(cfg.Telemetry.Profiling.Endpoint) == "" {
		return fmt.Errorf("telemetry.profiling.endpoint is required when profiling is enabled")
	}

	return nil
}

// formatValidationError turns validator's field-level errors into a single
// message naming every offending field and the rule it broke.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fmt.Sprintf(
			"%s failed validation on %q: %s (value: %v)",
			fe.Namespace(), fe.Tag(), describeTag(fe), fe.Value(),
		))
	}

	return fmt.Errorf("%s", strings.Join(messages, "; "))
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fe.Tag()
	}
}
