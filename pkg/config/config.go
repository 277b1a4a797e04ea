package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Required fields
	JWTSecretKey string `mapstructure:"jwt_secret_key"`

	// Optional API settings
	APIHost string `mapstructure:"api_host"`
	APIPort int    `mapstructure:"api_port"`

	// Optional SSL settings
	SSLCert string `mapstructure:"ssl_cert"`
	SSLKey  string `mapstructure:"ssl_key"`

	// Optional CORS settings
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Optional logging settings
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`

	// Storage
	DBDriver string `mapstructure:"db_driver"` // "sqlite" or "postgres"
	DBDSN    string `mapstructure:"db_dsn"`

	// Credentials
	JWTAlgorithm  string        `mapstructure:"jwt_algorithm"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`

	// Users may create their own player accounts via POST /users
	SelfRegistration bool `mapstructure:"self_registration"`

	// Cron spec for rebuilding the challenge schedule from storage
	RegistryResyncSchedule string `mapstructure:"registry_resync_schedule"`

	// Static paths
	ConfigPath string
}

const (
	DefaultConfigPath             = "/etc/hunt/config.yml"
	DefaultAPIHost                = "0.0.0.0"
	DefaultAPIPort                = 8335
	DefaultLogLevel               = "info"
	DefaultDBDriver               = "sqlite"
	DefaultDBDSN                  = "/var/lib/hunt/hunt.sqlite3"
	DefaultJWTAlgorithm           = "HS256"
	DefaultTokenLifetime          = time.Hour
	DefaultBcryptCost             = 10
	DefaultRegistryResyncSchedule = "*/5 * * * *"
	EnvPrefix                     = "HUNT"
)

var (
	validDrivers    = map[string]bool{"sqlite": true, "postgres": true}
	validAlgorithms = map[string]bool{"HS256": true, "HS384": true, "HS512": true}
	validLogLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
)

// Load reads the YAML config at configPath (or the default path), applies
// HUNT_* environment overrides and validates the result. A missing file is
// accepted when the environment supplies everything required.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	v.SetDefault("api_host", DefaultAPIHost)
	v.SetDefault("api_port", DefaultAPIPort)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("db_driver", DefaultDBDriver)
	v.SetDefault("db_dsn", DefaultDBDSN)
	v.SetDefault("jwt_algorithm", DefaultJWTAlgorithm)
	v.SetDefault("token_lifetime", DefaultTokenLifetime)
	v.SetDefault("bcrypt_cost", DefaultBcryptCost)
	v.SetDefault("self_registration", true)
	v.SetDefault("registry_resync_schedule", DefaultRegistryResyncSchedule)

	// Allow environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Keys without a default must be bound for env-only configuration.
	for _, key := range []string{"jwt_secret_key", "ssl_cert", "ssl_key", "log_file", "cors_origins"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ConfigPath = configPath

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecretKey == "" {
		return fmt.Errorf("jwt_secret_key is required")
	}

	if !validDrivers[c.DBDriver] {
		return fmt.Errorf("db_driver must be 'sqlite' or 'postgres'")
	}

	if c.DBDSN == "" {
		return fmt.Errorf("db_dsn is required")
	}

	if !validAlgorithms[c.JWTAlgorithm] {
		return fmt.Errorf("jwt_algorithm must be one of HS256, HS384, HS512")
	}

	if c.TokenLifetime <= 0 {
		return fmt.Errorf("token_lifetime must be positive")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost must be between 4 and 31")
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be one of trace, debug, info, warn, error")
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("api_port out of range: %d", c.APIPort)
	}

	// Validate SSL config if provided
	if c.SSLCert != "" || c.SSLKey != "" {
		if c.SSLCert == "" || c.SSLKey == "" {
			return fmt.Errorf("both ssl_cert and ssl_key must be provided")
		}
		if _, err := os.Stat(c.SSLCert); os.IsNotExist(err) {
			return fmt.Errorf("ssl_cert file does not exist: %s", c.SSLCert)
		}
		if _, err := os.Stat(c.SSLKey); os.IsNotExist(err) {
			return fmt.Errorf("ssl_key file does not exist: %s", c.SSLKey)
		}
	}

	return nil
}

func (c *Config) IsDevMode() bool {
	return os.Getenv("HUNT_DEV_MODE") == "1"
}
