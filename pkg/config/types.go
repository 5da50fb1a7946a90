package config

import "time"

// Config is the checker configuration. Values come from defaults, a
// configuration file and SMARTCHECKER_* environment variables, in that order.
type Config struct {
	// ChecklistPath is the directory relative checklist names are looked up in.
	ChecklistPath string `yaml:"checklist_path" json:"checklist_path"`
	// TemplatePath is the directory user templates are looked up in before
	// the builtin ones.
	TemplatePath string `yaml:"template_path" json:"template_path"`
	// ReportsPath is used when neither --saveto nor the checklist name one.
	ReportsPath  string `yaml:"reports_path" json:"reports_path"`
	OutputFormat string `yaml:"output_format" json:"output_format"`
	RunMode      string `yaml:"run_mode" json:"run_mode"`
	LogFile      string `yaml:"log_file" json:"log_file"`
	LogLevel     string `yaml:"log_level" json:"log_level"`

	FileTimeout time.Duration `yaml:"file_timeout" json:"file_timeout"`
	Parallel    int           `yaml:"parallel" json:"parallel"`

	LogSuffixes []string          `yaml:"log_suffixes" json:"log_suffixes"`
	LogPatterns map[string]string `yaml:"log_patterns" json:"log_patterns"`

	Counters CountersConfig `yaml:"counters" json:"counters"`
}

// CountersConfig describes where the counter query tool finds statistics.
type CountersConfig struct {
	// EnvFile is loaded before DSNs are expanded.
	EnvFile   string                    `yaml:"env_file" json:"env_file"`
	Databases map[string]DatabaseConfig `yaml:"databases" json:"databases"`
	// Elements maps an element name to the database holding its counters.
	Elements map[string]string `yaml:"elements" json:"elements"`
	// Tables maps a statistics table to the counter columns it holds.
	Tables map[string][]string `yaml:"tables" json:"tables"`
}

// DatabaseConfig is one counter database. DSN may reference environment
// variables as ${NAME}.
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

const (
	OutputText = "text"
	OutputJSON = "json"

	RunModeNormal = "normal"
	RunModeDebug  = "debug"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// LoadOptions control which sources the loader reads.
type LoadOptions struct {
	ConfigFile       string
	IgnoreEnvVars    bool
	IgnoreConfigFile bool
	ValidateConfig   bool
}

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Code    string
}
