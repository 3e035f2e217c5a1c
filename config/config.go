package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultAWSRegion is used when AWS_REGION is not configured
const DefaultAWSRegion = "us-east-1"

// Config holds the service configuration. It is built once by Load and
// treated as read-only afterwards.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Logging  LoggingConfig
	NewRelic NewRelicConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // debug, release, test
}

// DatabaseConfig holds the discrete connection fields, the optional
// pre-built URL and the pool settings.
type DatabaseConfig struct {
	URL      string
	User     string
	Password string
	Host     string
	Port     int
	Name     string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool
}

// HasDiscreteFields reports whether every discrete connection field is set.
func (d DatabaseConfig) HasDiscreteFields() bool {
	return len(d.MissingDiscreteFields()) == 0
}

// MissingDiscreteFields returns the environment names of the discrete fields
// that are not set.
func (d DatabaseConfig) MissingDiscreteFields() []string {
	var missing []string
	if d.User == "" {
		missing = append(missing, "DB_USER")
	}
	if d.Password == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if d.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if d.Port == 0 {
		missing = append(missing, "DB_PORT")
	}
	if d.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	return missing
}

// AWSConfig holds the Secrets Manager settings
type AWSConfig struct {
	Region        string
	SecretARN     string
	SecretTimeout time.Duration
}

// LoggingConfig holds the log settings read from the environment
type LoggingConfig struct {
	Level  string
	Format string
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// Options controls where Load looks for configuration
type Options struct {
	// ConfigFile is an optional YAML file. Empty means search ./ and ./config for config.yaml.
	ConfigFile string
	// EnvFile is an optional dotenv file. A missing file is not an error.
	EnvFile string
}

// envBindings maps viper keys to the environment variable names they are read from.
var envBindings = map[string]string{
	"server.port":                "PORT",
	"server.mode":                "GIN_MODE",
	"database.url":               "DATABASE_URL",
	"database.user":              "DB_USER",
	"database.password":          "DB_PASSWORD",
	"database.host":              "DB_HOST",
	"database.port":              "DB_PORT",
	"database.name":              "DB_NAME",
	"database.max_open_conns":    "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DB_MAX_IDLE_CONNS",
	"database.conn_max_lifetime": "DB_CONN_MAX_LIFETIME",
	"database.log_sql":           "DB_LOG_SQL",
	"aws.region":                 "AWS_REGION",
	"aws.secret_arn":             "DB_CREDENTIALS_SECRET_ARN",
	"aws.secret_timeout":         "AWS_SECRET_TIMEOUT",
	"logging.level":              "LOG_LEVEL",
	"logging.format":             "LOG_FORMAT",
	"newrelic.enabled":           "NEW_RELIC_ENABLED",
	"newrelic.app_name":          "NEW_RELIC_APP_NAME",
	"newrelic.license_key":       "NEW_RELIC_LICENSE_KEY",
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")

	// Pool defaults
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.log_sql", false)

	// AWS defaults
	v.SetDefault("aws.region", DefaultAWSRegion)
	v.SetDefault("aws.secret_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// New Relic defaults
	v.SetDefault("newrelic.enabled", false)
	v.SetDefault("newrelic.app_name", "Interaction Service")
}

// Load reads the configuration. Precedence, highest first: process
// environment, dotenv file, config file, defaults.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	fileEnv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return nil, err
	}

	for key, envName := range envBindings {
		if err := v.BindEnv(key, envName); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", envName, err)
		}
		// The dotenv file only fills gaps left by the real environment.
		if _, ok := os.LookupEnv(envName); ok {
			continue
		}
		if value, ok := fileEnv[envName]; ok {
			v.Set(key, value)
		}
	}

	return build(v)
}

func readConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading env file %s: %w", path, err)
	}
	return values, nil
}

func build(v *viper.Viper) (*Config, error) {
	serverPort, err := intValue(v, "server.port")
	if err != nil {
		return nil, err
	}
	dbPort, err := intValue(v, "database.port")
	if err != nil {
		return nil, err
	}
	maxOpen, err := intValue(v, "database.max_open_conns")
	if err != nil {
		return nil, err
	}
	maxIdle, err := intValue(v, "database.max_idle_conns")
	if err != nil {
		return nil, err
	}
	lifetime, err := durationValue(v, "database.conn_max_lifetime")
	if err != nil {
		return nil, err
	}
	secretTimeout, err := durationValue(v, "aws.secret_timeout")
	if err != nil {
		return nil, err
	}

	region := strings.TrimSpace(v.GetString("aws.region"))
	if region == "" {
		region = DefaultAWSRegion
	}

	return &Config{
		Server: ServerConfig{
			Port: serverPort,
			Mode: v.GetString("server.mode"),
		},
		Database: DatabaseConfig{
			URL:             strings.TrimSpace(v.GetString("database.url")),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Host:            strings.TrimSpace(v.GetString("database.host")),
			Port:            dbPort,
			Name:            strings.TrimSpace(v.GetString("database.name")),
			MaxOpenConns:    maxOpen,
			MaxIdleConns:    maxIdle,
			ConnMaxLifetime: lifetime,
			LogSQL:          v.GetBool("database.log_sql"),
		},
		AWS: AWSConfig{
			Region:        region,
			SecretARN:     strings.TrimSpace(v.GetString("aws.secret_arn")),
			SecretTimeout: secretTimeout,
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		NewRelic: NewRelicConfig{
			AppName:    v.GetString("newrelic.app_name"),
			LicenseKey: v.GetString("newrelic.license_key"),
			Enabled:    v.GetBool("newrelic.enabled"),
		},
	}, nil
}

// intValue parses an integer setting. viper.GetInt silently yields 0 for
// garbage, which would turn a typo in DB_PORT into "unset".
func intValue(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s: must be an integer", raw, envBindings[key])
	}
	return n, nil
}

func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s: %w", raw, envBindings[key], err)
	}
	return d, nil
}
