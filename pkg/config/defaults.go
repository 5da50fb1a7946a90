package config

import (
	"maps"
	"time"

	"github.com/containifyci/smartchecker/pkg/logfile"
)

// GetDefaultConfig returns the configuration used when nothing overrides it.
func GetDefaultConfig() *Config {
	return &Config{
		ChecklistPath: "checklists",
		TemplatePath:  "templates",
		ReportsPath:   "reports",
		OutputFormat:  OutputText,
		RunMode:       RunModeNormal,
		LogFile:       "smartchecker.log",
		LogLevel:      "info",
		FileTimeout:   5 * time.Minute,
		Parallel:      1,
		LogSuffixes:   append([]string(nil), logfile.DefaultSuffixes...),
		LogPatterns:   maps.Clone(logfile.DefaultPatterns),
		Counters: CountersConfig{
			EnvFile:   ".env",
			Databases: map[string]DatabaseConfig{},
			Elements:  map[string]string{},
			Tables:    map[string][]string{},
		},
	}
}
