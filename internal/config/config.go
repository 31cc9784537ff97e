// Package config loads tracker settings from an optional YAML file,
// TRACKER_* environment variables and built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TRACKER_SERVER_PORT.
const EnvPrefix = "TRACKER"

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Store     StoreConfig     `mapstructure:"store"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Identity  IdentityConfig  `mapstructure:"identity"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr is host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the SQL backend. Path is used by sqlite, DSN by postgres.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	Audience  string        `mapstructure:"audience"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file, both
	File   string `mapstructure:"file"`
}

// SweepConfig controls when the delayed sweep runs besides explicit calls.
type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"` // 0 disables the scheduler
	OnList   bool          `mapstructure:"on_list"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // sql, sheets
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	SheetName       string `mapstructure:"sheet_name"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"` // 0 disables limiting
	Burst int     `mapstructure:"burst"`
}

type IdentityConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Load reads configPath when given, otherwise an optional config.yaml from
// the working directory or ./config. Environment variables win over both.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		// a missing file just means defaults
		_ = v.ReadInConfig()
	}

	return decode(v)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, _ := decode(newViper())
	return cfg
}

// Validate checks the settings that have no usable fallback.
func (c *Config) Validate() error {
	var problems []string
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q must be sqlite or postgres", c.Database.Driver))
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		problems = append(problems, "database.dsn is required for postgres")
	}
	switch c.Store.Backend {
	case "sql":
	case "sheets":
		if c.Sheets.SpreadsheetID == "" || c.Sheets.CredentialsFile == "" {
			problems = append(problems, "sheets.spreadsheet_id and sheets.credentials_file are required for the sheets store")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.backend %q must be sql or sheets", c.Store.Backend))
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret must not be empty")
	}
	if c.Sweep.Interval < 0 {
		problems = append(problems, "sweep.interval must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8008)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "tasks-tracker.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.debug", false)

	v.SetDefault("auth.jwt_secret", "development-insecure-secret-change-me")
	v.SetDefault("auth.issuer", "task-tracker-api")
	v.SetDefault("auth.audience", "task-tracker-clients")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/task-tracker.log")

	v.SetDefault("sweep.interval", time.Hour)
	v.SetDefault("sweep.on_list", true)

	v.SetDefault("store.backend", "sql")

	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.sheet_name", "Tasks")
	v.SetDefault("sheets.credentials_file", "")

	v.SetDefault("rate_limit.rps", 50.0)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("identity.cache_ttl", 5*time.Minute)
}
