package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "SMARTCHECKER"

// ConfigLoader handles loading configuration from multiple sources.
type ConfigLoader struct {
	options LoadOptions
}

// NewConfigLoader creates a new configuration loader with the specified options.
func NewConfigLoader(options LoadOptions) *ConfigLoader {
	return &ConfigLoader{
		options: options,
	}
}

// LoadConfig loads configuration from all available sources in priority order:
// 1. Environment variables
// 2. Configuration file
// 3. Default values
func LoadConfig(configFile string) (*Config, error) {
	return NewConfigLoader(LoadOptions{
		ConfigFile:     configFile,
		ValidateConfig: true,
	}).Load()
}

// Load loads the configuration using the configured options.
func (l *ConfigLoader) Load() (*Config, error) {
	config := GetDefaultConfig()

	if !l.options.IgnoreConfigFile {
		if err := l.loadFromFile(config); err != nil {
			return nil, fmt.Errorf("failed to load configuration file: %w", err)
		}
	}

	if !l.options.IgnoreEnvVars {
		if err := l.loadEnvVarsIntoStruct(EnvPrefix, reflect.ValueOf(config).Elem()); err != nil {
			return nil, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	if l.options.ValidateConfig {
		if err := ValidateConfig(config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return config, nil
}

// loadFromFile decodes the configuration file over config. A missing file at
// a standard location is not an error; a missing explicit file is.
func (l *ConfigLoader) loadFromFile(config *Config) error {
	configPath, explicit := l.getConfigFilePath()
	if configPath == "" {
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config file %s: %w", configPath, err)
		}
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config file %s: %w", configPath, err)
		}
	}
	return nil
}

// getConfigFilePath returns the configuration file to use and whether it was
// asked for explicitly. Checks in order: option, environment variable,
// standard locations.
func (l *ConfigLoader) getConfigFilePath() (string, bool) {
	if l.options.ConfigFile != "" {
		return l.options.ConfigFile, true
	}
	if envPath := os.Getenv(EnvPrefix + "_CONFIG"); envPath != "" {
		return envPath, true
	}

	standardPaths := []string{
		"./checker.yaml",
		"./checker.yml",
		"~/.smartchecker.yaml",
		"~/.smartchecker.yml",
	}
	for _, path := range standardPaths {
		if strings.HasPrefix(path, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				continue
			}
			path = filepath.Join(home, path[2:])
		}
		if _, err := os.Stat(path); err == nil {
			return path, false
		}
	}
	return "", false
}

// loadEnvVarsIntoStruct recursively loads environment variables into a struct.
func (l *ConfigLoader) loadEnvVarsIntoStruct(prefix string, v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		envName := getEnvVarName(prefix, fieldType)
		if field.Kind() == reflect.Struct {
			if err := l.loadEnvVarsIntoStruct(envName, field); err != nil {
				return err
			}
			continue
		}
		if err := setFieldFromEnv(field, envName); err != nil {
			return fmt.Errorf("failed to set field %s from environment: %w", fieldType.Name, err)
		}
	}
	return nil
}

// getEnvVarName generates the environment variable name for a field.
func getEnvVarName(prefix string, field reflect.StructField) string {
	if yamlTag := field.Tag.Get("yaml"); yamlTag != "" && yamlTag != "-" {
		if name := strings.Split(yamlTag, ",")[0]; name != "" {
			return prefix + "_" + strings.ToUpper(name)
		}
	}
	return prefix + "_" + strings.ToUpper(field.Name)
}

// setFieldFromEnv sets a field value from an environment variable.
func setFieldFromEnv(field reflect.Value, envName string) error {
	envValue := os.Getenv(envName)
	if envValue == "" {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(envValue)
		if err != nil {
			return fmt.Errorf("invalid boolean value %s for %s: %w", envValue, envName, err)
		}
		field.SetBool(boolValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(envValue)
			if err != nil {
				return fmt.Errorf("invalid duration value %s for %s: %w", envValue, envName, err)
			}
			field.SetInt(int64(duration))
			return nil
		}
		intValue, err := strconv.ParseInt(envValue, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value %s for %s: %w", envValue, envName, err)
		}
		field.SetInt(intValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(envValue, ",")
			for i, v := range values {
				values[i] = strings.TrimSpace(v)
			}
			field.Set(reflect.ValueOf(values))
		}
	case reflect.Map:
		if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.String {
			m := make(map[string]string)
			for _, pair := range strings.Split(envValue, ",") {
				kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
				if len(kv) == 2 {
					m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
				}
			}
			field.Set(reflect.ValueOf(m))
		}
	}
	return nil
}
