package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if c.Environment == "" {
		errors = append(errors, ValidationError{
			Field:   "environment",
			Message: "environment is required",
		})
	}

	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateObjects()...)
	errors = append(errors, c.validateFixtures()...)
	errors = append(errors, c.validateGlobals()...)
	errors = append(errors, c.validateReset()...)
	errors = append(errors, c.validateUpsert()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateStore() ValidationErrors {
	var errors ValidationErrors

	switch c.Store.Driver {
	case DriverMySQL:
		errors = append(errors, validateDatabase("store.database", &c.Store.Database)...)
	case DriverMemory:
	default:
		errors = append(errors, ValidationError{
			Field:   "store.driver",
			Message: "driver must be 'mysql' or 'memory'",
		})
	}

	return errors
}

func validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateObjects() ValidationErrors {
	var errors ValidationErrors

	if c.Objects.Bucket == "" {
		errors = append(errors, ValidationError{
			Field:   "objects.bucket",
			Message: "bucket is required",
		})
	}

	if c.Objects.Root == "" {
		errors = append(errors, ValidationError{
			Field:   "objects.root",
			Message: "root is required",
		})
	}

	return errors
}

func (c *Config) validateFixtures() ValidationErrors {
	var errors ValidationErrors

	if c.Fixtures.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "fixtures.dir",
			Message: "dir is required",
		})
	}

	return errors
}

func (c *Config) validateGlobals() ValidationErrors {
	var errors ValidationErrors

	seen := make(map[string]bool)
	for i, slug := range c.Globals {
		if slug == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("globals[%d]", i),
				Message: "slug cannot be empty",
			})
			continue
		}
		if seen[slug] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("globals[%d]", i),
				Message: fmt.Sprintf("duplicate slug %q", slug),
			})
		}
		seen[slug] = true
	}

	return errors
}

func (c *Config) validateReset() ValidationErrors {
	var errors ValidationErrors

	if c.Reset.FetchLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "reset.fetch_limit",
			Message: "fetch_limit must be positive",
		})
	}

	if c.Reset.Concurrency <= 0 {
		errors = append(errors, ValidationError{
			Field:   "reset.concurrency",
			Message: "concurrency must be positive",
		})
	}

	return errors
}

func (c *Config) validateUpsert() ValidationErrors {
	var errors ValidationErrors

	if c.Upsert.MaxAttempts <= 0 {
		errors = append(errors, ValidationError{
			Field:   "upsert.max_attempts",
			Message: "max_attempts must be positive",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
