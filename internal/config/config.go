package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
	// PollInterval paces change detection when the deployment has no change streams.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// UniqueDaySessions adds a unique (dayId, date) index. Leave off while
	// stored data still contains duplicate sessions.
	UniqueDaySessions bool `mapstructure:"unique_day_sessions"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	ExportPrefix    string `mapstructure:"export_prefix"`
}

// Enabled reports whether export archiving is configured.
func (c S3Config) Enabled() bool {
	return c.BucketName != ""
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// AuthConfig names the one account allowed to use the tracker.
type AuthConfig struct {
	AllowedEmail string `mapstructure:"allowed_email"`
	PasswordHash string `mapstructure:"password_hash"` // bcrypt
}

type SyncConfig struct {
	DebounceDelay    time.Duration `mapstructure:"debounce_delay"`
	CompletionGrace  time.Duration `mapstructure:"completion_grace"`
	MaxWriteAttempts int           `mapstructure:"max_write_attempts"`
	Timezone         string        `mapstructure:"timezone"`
}

// Location resolves the configured timezone; "Local" and "" mean the host zone.
func (c SyncConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	File     string `mapstructure:"file"`
	ToStdout bool   `mapstructure:"to_stdout"`
	JSON     bool   `mapstructure:"json"`
}

// LoadConfig reads configuration from config.yaml in path and from
// environment variables (server.address -> SERVER_ADDRESS).
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// --- Defaults ---
	// Every key needs a default so AutomaticEnv can override it during Unmarshal.
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "strength_tracker")
	v.SetDefault("database.poll_interval", "2s")
	v.SetDefault("database.unique_day_sessions", false)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.export_prefix", "exports/")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("auth.allowed_email", "")
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("sync.debounce_delay", "400ms")
	v.SetDefault("sync.completion_grace", "600ms")
	v.SetDefault("sync.max_write_attempts", 3)
	v.SetDefault("sync.timezone", "Local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.to_stdout", true)
	v.SetDefault("log.json", false)

	// --- Read Config File ---
	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// no file; defaults and env vars only
		err = nil
	} else if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("unmarshal config: %w", err)
	}
	return config, nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Sync.DebounceDelay <= 0 || c.Sync.DebounceDelay > 5*time.Second {
		return fmt.Errorf("sync.debounce_delay must be within (0, 5s], got %s", c.Sync.DebounceDelay)
	}
	if c.Sync.CompletionGrace < 0 {
		return errors.New("sync.completion_grace cannot be negative")
	}
	if c.Sync.MaxWriteAttempts <= 0 {
		return errors.New("sync.max_write_attempts must be positive")
	}
	if _, err := c.Sync.Location(); err != nil {
		return fmt.Errorf("sync.timezone: %w", err)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if strings.TrimSpace(c.Auth.AllowedEmail) == "" {
		return errors.New("auth.allowed_email is required")
	}
	return nil
}
