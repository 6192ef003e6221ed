package config

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-sql-driver/mysql"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DatabaseConfig defines the connection to the relational store.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=postgres mysql"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`

	SSM SSMConfig `mapstructure:"ssm"`
}

// SSMConfig names the Parameter Store entries holding prod credentials.
type SSMConfig struct {
	HostParam     string `mapstructure:"host_param"`
	UserParam     string `mapstructure:"user_param"`
	PasswordParam string `mapstructure:"password_param"`
}

// Resolve returns a copy of cfg with host and credentials taken from AWS SSM
// when env is "prod". Other environments use the configured values as is.
func (cfg DatabaseConfig) Resolve(ctx context.Context, env string) (DatabaseConfig, error) {
	if env != "prod" {
		return cfg, nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	awsCfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return cfg, fmt.Errorf("load aws config: %w", err)
	}
	client := ssm.NewFromConfig(awsCfg)

	resolved := cfg
	for _, p := range []struct {
		name string
		dst  *string
	}{
		{cfg.SSM.HostParam, &resolved.Host},
		{cfg.SSM.UserParam, &resolved.User},
		{cfg.SSM.PasswordParam, &resolved.Password},
	} {
		if p.name == "" {
			continue
		}
		value, err := getParameterStoreValue(ctxWithTimeout, client, p.name, true)
		if err != nil {
			return cfg, err
		}
		*p.dst = value
	}
	return resolved, nil
}

// DSN renders the driver specific connection string.
func (cfg DatabaseConfig) DSN() string {
	return cfg.dsn(cfg.DBName)
}

// ServerDSN connects to the server without selecting the application
// database, for bootstrapping it.
func (cfg DatabaseConfig) ServerDSN() string {
	if cfg.Driver == DriverMySQL {
		return cfg.dsn("")
	}
	return cfg.dsn("postgres")
}

func (cfg DatabaseConfig) dsn(dbName string) string {
	if cfg.Driver == DriverMySQL {
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = dbName
		mc.ParseTime = true
		if loc, err := time.LoadLocation(cfg.TimeZone); err == nil && cfg.TimeZone != "" {
			mc.Loc = loc
		}
		return mc.FormatDSN()
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, dbName, cfg.SSLMode,
	)
	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}
	return dsn
}

func getParameterStoreValue(ctx context.Context, client *ssm.Client, parameterName string, decrypt bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("get ssm parameter %s: %w", parameterName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %s has no value", parameterName)
	}

	return *result.Parameter.Value, nil
}
