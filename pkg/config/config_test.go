package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "reports", config.ReportsPath)
	assert.Equal(t, OutputText, config.OutputFormat)
	assert.Equal(t, 1, config.Parallel)
	assert.Equal(t, 5*time.Minute, config.FileTimeout)
	assert.Equal(t, []string{".log"}, config.LogSuffixes)
	assert.Equal(t, "fsclish", config.LogPatterns["FlexiNG"])
	assert.NoError(t, ValidateConfig(config))
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checker.yaml")
	content := `reports_path: /var/smartchecker/reports
parallel: 4
file_timeout: 90s
log_patterns:
  FlexiNS: "MML COMMAND"
counters:
  databases:
    oss:
      driver: mysql
      dsn: "omc:${OSS_PASSWORD}@tcp(10.0.0.1:3306)/oss"
  elements:
    SHMME03BNK: oss
  tables:
    NS_MME_STA:
      - EPS_ATTACH_FAIL
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := NewConfigLoader(LoadOptions{ConfigFile: path, IgnoreEnvVars: true, ValidateConfig: true}).Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/smartchecker/reports", config.ReportsPath)
	assert.Equal(t, 4, config.Parallel)
	assert.Equal(t, 90*time.Second, config.FileTimeout)
	assert.Equal(t, "MML COMMAND", config.LogPatterns["FlexiNS"])
	assert.Equal(t, "fsclish", config.LogPatterns["FlexiNG"], "file entries merge over default patterns")
	assert.Equal(t, OutputText, config.OutputFormat, "unset keys keep their defaults")
	assert.Equal(t, DriverMySQL, config.Counters.Databases["oss"].Driver)
	assert.Equal(t, []string{"EPS_ATTACH_FAIL"}, config.Counters.Tables["NS_MME_STA"])
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SMARTCHECKER_PARALLEL", "8")
	t.Setenv("SMARTCHECKER_FILE_TIMEOUT", "2m")
	t.Setenv("SMARTCHECKER_LOG_SUFFIXES", ".log, .txt")
	t.Setenv("SMARTCHECKER_OUTPUT_FORMAT", "json")
	t.Setenv("SMARTCHECKER_COUNTERS_ENV_FILE", "/etc/smartchecker/.env")

	config, err := NewConfigLoader(LoadOptions{IgnoreConfigFile: true, ValidateConfig: true}).Load()
	require.NoError(t, err)
	assert.Equal(t, 8, config.Parallel)
	assert.Equal(t, 2*time.Minute, config.FileTimeout)
	assert.Equal(t, []string{".log", ".txt"}, config.LogSuffixes)
	assert.Equal(t, OutputJSON, config.OutputFormat)
	assert.Equal(t, "/etc/smartchecker/.env", config.Counters.EnvFile)

	t.Setenv("SMARTCHECKER_PARALLEL", "many")
	_, err = NewConfigLoader(LoadOptions{IgnoreConfigFile: true}).Load()
	assert.ErrorContains(t, err, "invalid integer value")
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("parallel: [\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "failed to parse YAML")

	invalid := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"parallel": 0}`), 0o644))
	_, err = LoadConfig(invalid)
	assert.ErrorContains(t, err, "parallel must be between 1 and 64")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		fields []string
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name: "run settings",
			modify: func(c *Config) {
				c.Parallel = 100
				c.FileTimeout = -time.Second
				c.OutputFormat = "xml"
				c.RunMode = "fast"
			},
			fields: []string{"Parallel", "FileTimeout", "OutputFormat", "RunMode"},
		},
		{
			name: "logging",
			modify: func(c *Config) {
				c.LogLevel = "trace"
				c.LogSuffixes = nil
				c.LogPatterns["Broken"] = "(unclosed"
			},
			fields: []string{"LogLevel", "LogSuffixes", "LogPatterns.Broken"},
		},
		{
			name: "counters",
			modify: func(c *Config) {
				c.Counters.Databases["oss"] = DatabaseConfig{Driver: "oracle"}
				c.Counters.Elements["SHMME03BNK"] = "missing"
			},
			fields: []string{"Counters.Databases.oss.Driver", "Counters.Databases.oss.DSN", "Counters.Elements.SHMME03BNK"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaultConfig()
			tt.modify(config)
			err := ValidateConfig(config)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			var fields []string
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}

	assert.Error(t, ValidateConfig(nil))
}
