package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	EODHD      EODHDConfig      `mapstructure:"eodhd"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// EODHDConfig configures the provider REST client.
type EODHDConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	APIToken    string        `mapstructure:"api_token" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Interval    string        `mapstructure:"interval" validate:"oneof=1m 5m 1h"`
	Window      time.Duration `mapstructure:"window" validate:"gt=0"`
	LowerBound  string        `mapstructure:"lower_bound" validate:"required,datetime=2006-01-02"` // oldest day requested when no bound is given
	MaxRetries  int           `mapstructure:"max_retries" validate:"gte=0"`                       // retries after a 429 before giving up
	BackoffUnit time.Duration `mapstructure:"backoff_unit" validate:"gt=0"`                       // sleep = attempt * unit
}

// LowerBoundTime returns LowerBound as a UTC midnight.
func (c EODHDConfig) LowerBoundTime() (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", c.LowerBound, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse lower_bound: %w", err)
	}
	return t, nil
}

type PipelineConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=256"`
}

// CheckpointConfig locates the resume ledger files.
type CheckpointConfig struct {
	Dir            string `mapstructure:"dir" validate:"required"`
	CompletedFile  string `mapstructure:"completed_file" validate:"required"`
	FailedFile     string `mapstructure:"failed_file" validate:"required"`
	QuarantineFile string `mapstructure:"quarantine_file" validate:"required"`
}

// Path joins name onto the checkpoint directory.
func (c CheckpointConfig) Path(name string) string {
	return filepath.Join(c.Dir, name)
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"` // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format" validate:"oneof=json console"`         // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"`                                  // file path to store logs (optional)
	Environment string `mapstructure:"environment" validate:"oneof=dev prod"`        // environment: "dev" or "prod"
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the /metrics listener
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("eodhd.base_url", "https://eodhd.com/api")
	v.SetDefault("eodhd.api_token", "")
	v.SetDefault("eodhd.timeout", 30*time.Second)
	v.SetDefault("eodhd.interval", "5m")
	v.SetDefault("eodhd.window", 120*24*time.Hour)
	v.SetDefault("eodhd.lower_bound", "2020-10-01")
	v.SetDefault("eodhd.max_retries", 10)
	v.SetDefault("eodhd.backoff_unit", 2*time.Second)

	v.SetDefault("pipeline.concurrency", 8)

	v.SetDefault("checkpoint.dir", ".")
	v.SetDefault("checkpoint.completed_file", "completed.json")
	v.SetDefault("checkpoint.failed_file", "failed.json")
	v.SetDefault("checkpoint.quarantine_file", "quarantined_failures.json")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "eodsync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.ssm.host_param", "EODSYNC_DB_HOST")
	v.SetDefault("database.ssm.user_param", "EODSYNC_DB_USER")
	v.SetDefault("database.ssm.password_param", "EODSYNC_DB_PASSWORD")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("metrics.addr", "")
}

// Load loads application configuration using Viper.
// It reads from config.yaml (or the file at path, when given) and overrides
// with environment variables. A missing config.yaml is not an error when no
// explicit path was requested; defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")

		ex, _ := os.Executable()
		if strings.Contains(ex, "go-build") {
			pwd, _ := os.Getwd()
			v.AddConfigPath(filepath.Join(pwd, "../../config"))
		} else {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// Support environment variables with dot notation (e.g., EODHD_API_TOKEN)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
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

// Validate checks struct constraints on the loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
