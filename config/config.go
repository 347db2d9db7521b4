package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Search   SearchConfig   `mapstructure:"search"`
	Upload   UploadConfig   `mapstructure:"upload"`
}

type AppConfig struct {
	Mode    string `mapstructure:"mode"`
	Debug   bool   `mapstructure:"debug"`
	LogFile string `mapstructure:"log_file"`
}

type StorageConfig struct {
	Type       string `mapstructure:"type"` // local, s3
	BasePath   string `mapstructure:"base_path"`
	Bucket     string `mapstructure:"bucket"`
	Region     string `mapstructure:"region"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	Prefix     string `mapstructure:"prefix"`
	MaxRetries int    `mapstructure:"max_retries"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type SearchConfig struct {
	Threshold     float64       `mapstructure:"threshold"`
	Workers       int           `mapstructure:"workers"`
	MaxCandidates int           `mapstructure:"max_candidates"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type UploadConfig struct {
	MaxSize int64 `mapstructure:"max_size"`
}

const envPrefix = "LOSTFOUND"

// Load reads configuration from a YAML file, falling back to defaults
// when the file does not exist. Environment variables override both.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would make the search misbehave
func (c *Config) Validate() error {
	if c.Search.Threshold < 0 || c.Search.Threshold > 100 {
		return fmt.Errorf("search.threshold must be within 0-100, got %.2f", c.Search.Threshold)
	}
	if c.Search.Workers < 0 {
		return fmt.Errorf("search.workers must not be negative, got %d", c.Search.Workers)
	}
	switch c.Storage.Type {
	case "local":
		if c.Storage.BasePath == "" {
			return fmt.Errorf("storage.base_path is required for local storage")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.mode", "debug")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_file", "")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_path", "./Inventory")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.prefix", "inventory")
	v.SetDefault("storage.max_retries", 3)

	v.SetDefault("database.path", "items.db")

	v.SetDefault("search.threshold", 50.0)
	v.SetDefault("search.workers", 0)
	v.SetDefault("search.max_candidates", 0)
	v.SetDefault("search.timeout", 2*time.Minute)

	v.SetDefault("upload.max_size", 10*1024*1024)
}
