package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

const (
	StorageDriverPostgres = "postgres"
	StorageDriverLocal    = "local"

	ModeDevelopment = "development"

	// PlaceholderSecretKey ships in the embedded config.yml and is only
	// accepted in development mode.
	PlaceholderSecretKey = "change-me-in-env"
)

type JWTConfig struct {
	SecretKey      string        `mapstructure:"secretKey"`
	AccessTokenTTL time.Duration `mapstructure:"accessTokenTTL"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
}

type StorageConfig struct {
	// Driver selects the Credential/Book store: "postgres" or "local".
	Driver string `mapstructure:"driver"`
	// LocalPath is the snapshot file of the local blob store. Empty keeps it in memory.
	LocalPath string `mapstructure:"localPath"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	DB       string `mapstructure:"db"`
	SSLMODE  string `mapstructure:"sslmode"`
}

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	JWT          JWTConfig     `mapstructure:"jwt"`
	Storage      StorageConfig `mapstructure:"storage"`
	Repositories struct {
		Postgres PostgresConfig `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Observability struct {
		MetricsPort string `mapstructure:"metricsPort"`
		ServiceName string `mapstructure:"serviceName"`
	} `mapstructure:"observability"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// BOOKS_JWT_SECRETKEY overrides jwt.secretKey, and so on.
	v.SetEnvPrefix("BOOKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Validate checks the values the auth and storage layers cannot run without.
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("jwt.secretKey must not be empty")
	}
	if c.JWT.SecretKey == PlaceholderSecretKey && c.Mode != ModeDevelopment {
		return fmt.Errorf("jwt.secretKey is the placeholder value; set BOOKS_JWT_SECRETKEY when mode is %q", c.Mode)
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return errors.New("jwt.accessTokenTTL must be positive")
	}
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Repositories.Postgres.Host == "" {
			return errors.New("repositories.postgres.host is required for the postgres driver")
		}
	case StorageDriverLocal:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}
