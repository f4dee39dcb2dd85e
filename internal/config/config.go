// Package config loads shove's runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for a shove server process.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig holds listener and lifecycle tunables.
type ServerConfig struct {
	Port                    int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadHeaderTimeout       time.Duration `mapstructure:"read_header_timeout" validate:"required"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout" validate:"required"`
	ReloadInterval          time.Duration `mapstructure:"reload_interval" validate:"required"`
}

// StoreConfig holds the object store connection used for every catalog and
// for serving page content.
type StoreConfig struct {
	BucketName      string `mapstructure:"bucket_name" validate:"required"`
	AccessKeyID     string `mapstructure:"access_key_id" validate:"required"`
	SecretAccessKey string `mapstructure:"secret_access_key" validate:"required"`
	EndpointURL     string `mapstructure:"endpoint_url" validate:"required,url"`

	// TigrisToken, when set, switches the reload coordinator from the
	// interval loop to webhook-driven reload via POST /reload.
	TigrisToken string `mapstructure:"tigris_token"`
}

// AuthConfig holds the secret used to derive the access-policy encryption key.
type AuthConfig struct {
	EncryptionKey string `mapstructure:"encryption_key" validate:"required,min=16"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// SentryDSN is read independently of Config since it is optional and has no
// bearing on the correctness of the serving pipeline -- only whether an
// ErrorReporter actually reports anywhere. See internal/reporter.
func SentryDSN() string {
	return viper.GetString("sentry_dsn")
}

// LoadConfigFromEnv builds a Config purely from environment variables,
// mapping the flat names spec.md names (PORT, BUCKET_NAME, ...) onto the
// nested struct above.
func LoadConfigFromEnv() (*Config, error) {
	v := viper.New()
	setDefaultsOn(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bind := map[string]string{
		"server.port":             "PORT",
		"store.bucket_name":       "BUCKET_NAME",
		"store.access_key_id":     "AWS_ACCESS_KEY_ID",
		"store.secret_access_key": "AWS_SECRET_ACCESS_KEY",
		"store.endpoint_url":      "AWS_ENDPOINT_URL_S3",
		"store.tigris_token":      "TIGRIS_TOKEN",
		"auth.encryption_key":     "AUTH_ENCRYPTION_KEY",
		"sentry_dsn":              "SENTRY_DSN",
	}
	for key, env := range bind {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Keep the package-level viper instance in sync so SentryDSN() sees it.
	viper.Set("sentry_dsn", v.GetString("sentry_dsn"))

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaultsOn(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.graceful_shutdown_timeout", 10*time.Second)
	v.SetDefault("server.reload_interval", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

var validate = validator.New()

// Validate runs struct-tag validation over a Config. Kept as a standalone
// function, rather than a method, so callers constructing a Config by hand
// (tests, the CLI's other subcommands) can reuse it.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsWebhookDriven reports whether reload should be coordinated via the
// webhook endpoint instead of the interval loop.
func (c *Config) IsWebhookDriven() bool {
	return c.Store.TigrisToken != ""
}
