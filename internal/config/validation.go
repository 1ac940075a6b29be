// Package config provides configuration management for racefuse.
package config

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Provider types the datasource factory can build
const (
	ProviderTypeRacingAPI   = "racing_api"
	ProviderTypeRatingsFeed = "ratings_feed"
	ProviderTypePriceStream = "price_stream"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	v.RegisterValidation("environment", validateEnvironment)
	v.RegisterValidation("loglevel", validateLogLevel)
	v.RegisterValidation("stakemode", validateStakeMode)
	v.RegisterValidation("providertype", validateProviderType)
	v.RegisterValidation("ascending", validateAscending)

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

	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateStakeMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "win", "place":
		return true
	default:
		return false
	}
}

func validateProviderType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case ProviderTypeRacingAPI, ProviderTypeRatingsFeed, ProviderTypePriceStream:
		return true
	default:
		return false
	}
}

// validateAscending checks bucket boundaries are non-empty and strictly ascending
func validateAscending(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return false
	}
	bounds, ok := field.Interface().([]float64)
	if !ok || len(bounds) == 0 {
		return false
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return false
		}
	}
	return true
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	names := make(map[string]ProviderConfig, len(cfg.Providers.Sources))
	for _, p := range cfg.Providers.Sources {
		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("provider %q is configured twice", p.Name)
		}
		if p.Type != ProviderTypePriceStream && p.BaseURL == "" {
			return fmt.Errorf("provider %q requires base_url", p.Name)
		}
		names[p.Name] = p
	}

	backbone, ok := names[cfg.Providers.Backbone]
	if !ok || !backbone.Enabled {
		return fmt.Errorf("backbone provider %q must be a configured, enabled source", cfg.Providers.Backbone)
	}
	if backbone.Type != ProviderTypeRacingAPI {
		return fmt.Errorf("backbone provider %q must be of type %s", backbone.Name, ProviderTypeRacingAPI)
	}

	for _, name := range cfg.Providers.Precedence {
		if _, ok := names[name]; !ok {
			return fmt.Errorf("precedence lists unknown provider %q", name)
		}
	}

	if cfg.Weather.SignificantN > 0 && cfg.Weather.SignificantN < cfg.Weather.MinSampleSize {
		return fmt.Errorf("weather significant_n cannot be below min_sample_size")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "stakemode":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: win, place\n", field)
		case "providertype":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: %s, %s, %s\n", field,
				ProviderTypeRacingAPI, ProviderTypeRatingsFeed, ProviderTypePriceStream)
		case "ascending":
			errMsg += fmt.Sprintf("- Field '%s' must list strictly ascending boundaries, got '%v'\n", field, value)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires database SSL mode to be 'require' or 'verify-full'")
		}
		for _, p := range cfg.Providers.Sources {
			if p.Enabled && isTestCredential(p.APIKey) {
				return fmt.Errorf("production environment should not use test credentials for provider %q", p.Name)
			}
		}
	}

	return nil
}

// EnabledProviders returns the names of enabled providers in name order
func EnabledProviders(cfg *Config) []string {
	var names []string
	for _, p := range cfg.Providers.Sources {
		if p.Enabled {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	testPatterns := []string{
		"test", "demo", "example", "placeholder", "YOUR_",
	}

	for _, pattern := range testPatterns {
		if match, _ := regexp.MatchString("(?i)"+pattern, credential); match {
			return true
		}
	}

	return false
}
