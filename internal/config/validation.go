// Package config provides configuration management for the Sharpline analysis core.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("markets", validateMarkets)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	env := fl.Field().String()
	switch env {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateMarkets validates market configuration
func validateMarkets(fl validator.FieldLevel) bool {
	markets, ok := fl.Field().Interface().([]string)
	if !ok || len(markets) == 0 {
		return false
	}

	validMarkets := map[string]bool{
		"moneyline": true,
		"spread":    true,
		"total":     true,
	}

	for _, m := range markets {
		if !validMarkets[m] {
			return false
		}
	}
	return true
}

// validateCrossField performs validations that span multiple fields
func validateCrossField(cfg *Config) error {
	enabled := 0
	for _, src := range cfg.Collection.Sources {
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one collection source must be enabled")
	}

	for _, src := range cfg.Collection.Sources {
		if src.Enabled && src.DailyQuota <= 0 {
			return fmt.Errorf("source %s: daily_quota must be positive when enabled", src.Name)
		}
	}

	if cfg.Tuner.DisableROI >= cfg.Tuner.DemoteROI {
		return fmt.Errorf("tuner: disable_roi must be below demote_roi")
	}
	if cfg.Tuner.DemoteROI >= cfg.Tuner.PromoteROI {
		return fmt.Errorf("tuner: demote_roi must be below promote_roi")
	}

	return nil
}

// formatValidationErrors creates a readable error message from validation errors
func formatValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, fmt.Sprintf("%s failed on %q", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("configuration validation failed: %v", messages)
}
