package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/macross/pkg/backtest"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// Validate performs comprehensive configuration validation
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateApp()...)
	errors = append(errors, c.validateSearch()...)
	errors = append(errors, c.validateBounds()...)
	errors = append(errors, c.validateStrategy()...)
	errors = append(errors, c.validateData()...)
	errors = append(errors, c.validateMonitoring()...)

	if len(errors) > 0 {
		return errors
	}

	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errors ValidationErrors

	if c.App.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "app.name",
			Message: "Application name is required",
		})
	}

	validEnvs := []string{"development", "staging", "production"}
	if !contains(validEnvs, c.App.Environment) {
		errors = append(errors, ValidationError{
			Field:   "app.environment",
			Message: fmt.Sprintf("Invalid environment '%s'. Must be one of: %v", c.App.Environment, validEnvs),
		})
	}

	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !contains(validLevels, strings.ToLower(c.App.LogLevel)) {
		errors = append(errors, ValidationError{
			Field:   "app.log_level",
			Message: fmt.Sprintf("Invalid log level '%s'. Must be one of: %v", c.App.LogLevel, validLevels),
		})
	}

	if c.App.LogFormat != "json" && c.App.LogFormat != "console" {
		errors = append(errors, ValidationError{
			Field:   "app.log_format",
			Message: fmt.Sprintf("Invalid log format '%s'. Must be 'json' or 'console'", c.App.LogFormat),
		})
	}

	return errors
}

func (c *Config) validateSearch() ValidationErrors {
	var errors ValidationErrors

	if c.Search.PopulationSize < 2 {
		errors = append(errors, ValidationError{
			Field:   "search.population_size",
			Message: fmt.Sprintf("Population size must be at least 2, got %d", c.Search.PopulationSize),
		})
	}

	if c.Search.Generations < 0 {
		errors = append(errors, ValidationError{
			Field:   "search.generations",
			Message: fmt.Sprintf("Generations must not be negative, got %d", c.Search.Generations),
		})
	}

	if math.IsNaN(c.Search.MutationRate) || c.Search.MutationRate < 0 || c.Search.MutationRate > 1 {
		errors = append(errors, ValidationError{
			Field:   "search.mutation_rate",
			Message: fmt.Sprintf("Mutation rate must be between 0 and 1, got %v", c.Search.MutationRate),
		})
	}

	if c.Search.Parallelism < 0 {
		errors = append(errors, ValidationError{
			Field:   "search.parallelism",
			Message: "Parallelism must be non-negative (0 uses one worker per CPU)",
		})
	}

	if c.Search.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "search.timeout",
			Message: "Timeout must be non-negative (0 disables the timeout)",
		})
	}

	return errors
}

// validateBounds reuses the search's own bounds checks
func (c *Config) validateBounds() ValidationErrors {
	err := c.Bounds.GetBounds().Validate()
	if err == nil {
		return nil
	}

	var boundErrs backtest.ValidationErrors
	if !errors.As(err, &boundErrs) {
		return ValidationErrors{{Field: "bounds", Message: err.Error()}}
	}

	result := make(ValidationErrors, 0, len(boundErrs))
	for _, e := range boundErrs {
		result = append(result, ValidationError{
			Field:   "bounds." + e.Field,
			Message: e.Message,
		})
	}

	return result
}

func (c *Config) validateStrategy() ValidationErrors {
	var errors ValidationErrors

	capital := c.Strategy.InitialCapital
	if math.IsNaN(capital) || math.IsInf(capital, 0) || capital < 0 {
		errors = append(errors, ValidationError{
			Field:   "strategy.initial_capital",
			Message: fmt.Sprintf("Initial capital must be a finite non-negative number, got %v", capital),
		})
	}

	if !contains([]string{"", "sma", "ema"}, strings.ToLower(c.Strategy.Average)) {
		errors = append(errors, ValidationError{
			Field:   "strategy.average",
			Message: fmt.Sprintf("Invalid moving average '%s'. Must be 'sma' or 'ema'", c.Strategy.Average),
		})
	}

	return errors
}

func (c *Config) validateData() ValidationErrors {
	var errors ValidationErrors

	format := strings.ToLower(c.Data.Format)
	if format == "" && c.Data.Path != "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(c.Data.Path)), ".")
	}

	if format != "" && !contains([]string{"csv", "json", "yaml", "yml"}, format) {
		errors = append(errors, ValidationError{
			Field:   "data.format",
			Message: fmt.Sprintf("Unsupported data format '%s'. Must be csv, json or yaml", format),
		})
	}

	return errors
}

func (c *Config) validateMonitoring() ValidationErrors {
	var errors ValidationErrors

	if c.Monitoring.EnableMetrics && (c.Monitoring.PrometheusPort < 1 || c.Monitoring.PrometheusPort > 65535) {
		errors = append(errors, ValidationError{
			Field:   "monitoring.prometheus_port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Monitoring.PrometheusPort),
		})
	}

	return errors
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
