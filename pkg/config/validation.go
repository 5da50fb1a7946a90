package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ValidationErrors collects every invalid setting of a configuration.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

// ValidateConfig validates the entire configuration structure.
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errors ValidationErrors
	validateRun(config, &errors)
	validateLogging(config, &errors)
	validateCounters(config.Counters, &errors)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validateRun(config *Config, errors *ValidationErrors) {
	if config.Parallel < 1 || config.Parallel > 64 {
		*errors = append(*errors, ValidationError{
			Field:   "Parallel",
			Value:   config.Parallel,
			Message: fmt.Sprintf("parallel must be between 1 and 64, got %d", config.Parallel),
			Code:    "range",
		})
	}
	if config.FileTimeout < 0 || config.FileTimeout > 24*time.Hour {
		*errors = append(*errors, ValidationError{
			Field:   "FileTimeout",
			Value:   config.FileTimeout,
			Message: fmt.Sprintf("file timeout must be between 0 and 24h, got %s", config.FileTimeout),
			Code:    "range",
		})
	}
	if !oneOf(config.OutputFormat, OutputText, OutputJSON) {
		*errors = append(*errors, ValidationError{
			Field:   "OutputFormat",
			Value:   config.OutputFormat,
			Message: fmt.Sprintf("output format must be text or json, got %q", config.OutputFormat),
			Code:    "oneof",
		})
	}
	if !oneOf(config.RunMode, RunModeNormal, RunModeDebug) {
		*errors = append(*errors, ValidationError{
			Field:   "RunMode",
			Value:   config.RunMode,
			Message: fmt.Sprintf("run mode must be normal or debug, got %q", config.RunMode),
			Code:    "oneof",
		})
	}
}

func validateLogging(config *Config, errors *ValidationErrors) {
	if !oneOf(strings.ToLower(config.LogLevel), "debug", "info", "warn", "error") {
		*errors = append(*errors, ValidationError{
			Field:   "LogLevel",
			Value:   config.LogLevel,
			Message: fmt.Sprintf("log level must be debug, info, warn or error, got %q", config.LogLevel),
			Code:    "oneof",
		})
	}
	if len(config.LogSuffixes) == 0 {
		*errors = append(*errors, ValidationError{
			Field:   "LogSuffixes",
			Message: "at least one log suffix is required",
			Code:    "required",
		})
	}

	types := make([]string, 0, len(config.LogPatterns))
	for t := range config.LogPatterns {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		if _, err := regexp.Compile(config.LogPatterns[t]); err != nil {
			*errors = append(*errors, ValidationError{
				Field:   "LogPatterns." + t,
				Value:   config.LogPatterns[t],
				Message: fmt.Sprintf("invalid log pattern for %s: %v", t, err),
				Code:    "regexp",
			})
		}
	}
}

func validateCounters(counters CountersConfig, errors *ValidationErrors) {
	names := make([]string, 0, len(counters.Databases))
	for name := range counters.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		db := counters.Databases[name]
		if !oneOf(db.Driver, DriverMySQL, DriverSQLite) {
			*errors = append(*errors, ValidationError{
				Field:   "Counters.Databases." + name + ".Driver",
				Value:   db.Driver,
				Message: fmt.Sprintf("database %s: driver must be mysql or sqlite, got %q", name, db.Driver),
				Code:    "oneof",
			})
		}
		if db.DSN == "" {
			*errors = append(*errors, ValidationError{
				Field:   "Counters.Databases." + name + ".DSN",
				Message: fmt.Sprintf("database %s: dsn is required", name),
				Code:    "required",
			})
		}
	}

	elements := make([]string, 0, len(counters.Elements))
	for el := range counters.Elements {
		elements = append(elements, el)
	}
	sort.Strings(elements)
	for _, el := range elements {
		if _, ok := counters.Databases[counters.Elements[el]]; !ok {
			*errors = append(*errors, ValidationError{
				Field:   "Counters.Elements." + el,
				Value:   counters.Elements[el],
				Message: fmt.Sprintf("element %s references unknown database %q", el, counters.Elements[el]),
				Code:    "reference",
			})
		}
	}
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
