// Package config provides configuration structures and loading for GoSeed.
package config

import "os"

// Config represents the complete application configuration.
type Config struct {
	Environment string         `yaml:"environment" mapstructure:"environment"`
	Store       StoreConfig    `yaml:"store" mapstructure:"store"`
	Objects     ObjectsConfig  `yaml:"objects" mapstructure:"objects"`
	Fixtures    FixturesConfig `yaml:"fixtures" mapstructure:"fixtures"`
	Globals     []string       `yaml:"globals" mapstructure:"globals"`
	Reset       ResetConfig    `yaml:"reset" mapstructure:"reset"`
	Upsert      UpsertConfig   `yaml:"upsert" mapstructure:"upsert"`
	Logging     LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// Supported store drivers.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// EnvironmentProduction is the environment value that disables resets.
const EnvironmentProduction = "production"

// StoreConfig represents the document store connection.
type StoreConfig struct {
	Driver   string         `yaml:"driver" mapstructure:"driver"` // mysql or memory
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// DatabaseConfig represents a MySQL database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// ObjectsConfig represents the blob store that holds uploaded files.
type ObjectsConfig struct {
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	Root   string `yaml:"root" mapstructure:"root"` // directory backing the bucket
}

// FixturesConfig locates the seed fixture files.
type FixturesConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`             // <dir>/<kind>/<name>.json
	MediaDir string `yaml:"media_dir" mapstructure:"media_dir"` // upload sources
}

// ResetConfig controls collection teardown.
type ResetConfig struct {
	FetchLimit  int `yaml:"fetch_limit" mapstructure:"fetch_limit"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// UpsertConfig controls the update recovery path.
type UpsertConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Store: StoreConfig{
			Driver: DriverMySQL,
			Database: DatabaseConfig{
				Port:               3306,
				TLS:                "preferred",
				MaxConnections:     10,
				MaxIdleConnections: 5,
			},
		},
		Objects: ObjectsConfig{
			Bucket: "media",
			Root:   "var/objects",
		},
		Fixtures: FixturesConfig{
			Dir:      "seed",
			MediaDir: "seed/media",
		},
		Reset: ResetConfig{
			FetchLimit:  1000,
			Concurrency: 5,
		},
		Upsert: UpsertConfig{
			MaxAttempts: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// IsProduction reports whether the configured environment or the process
// environment (SEED_ENV, then APP_ENV) is production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction || ProcessEnvironment() == EnvironmentProduction
}

// ProcessEnvironment returns SEED_ENV when set, otherwise APP_ENV.
func ProcessEnvironment() string {
	if env := os.Getenv("SEED_ENV"); env != "" {
		return env
	}
	return os.Getenv("APP_ENV")
}

// IsGlobalRegistered reports whether slug is a registered global.
func (c *Config) IsGlobalRegistered(slug string) bool {
	for _, s := range c.Globals {
		if s == slug {
			return true
		}
	}
	return false
}
