package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	// SEED_ENV wins over APP_ENV, both win over the file.
	if err := v.BindEnv("environment", "SEED_ENV", "APP_ENV"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := substituteEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) error {
	cfg.Environment = expandEnvVar(cfg.Environment)

	db := &cfg.Store.Database
	db.Host = expandEnvVar(db.Host)
	db.User = expandEnvVar(db.User)
	db.Password = expandEnvVar(db.Password)
	db.Database = expandEnvVar(db.Database)

	cfg.Objects.Bucket = expandEnvVar(cfg.Objects.Bucket)
	cfg.Objects.Root = expandEnvVar(cfg.Objects.Root)

	cfg.Fixtures.Dir = expandEnvVar(cfg.Fixtures.Dir)
	cfg.Fixtures.MediaDir = expandEnvVar(cfg.Fixtures.MediaDir)

	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-empty values are applied. A production environment is never
// overridden.
func (c *Config) ApplyOverrides(logLevel, logFormat, environment, fixturesDir, storeDriver string) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if environment != "" && !c.IsProduction() {
		c.Environment = environment
	}
	if fixturesDir != "" {
		c.Fixtures.Dir = fixturesDir
	}
	if storeDriver != "" {
		c.Store.Driver = storeDriver
	}
}
