package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Storage  StorageConfig  `mapstructure:"Storage"`
	Security SecurityConfig `mapstructure:"Security"`
}

type ServerConfig struct {
	Port        string `mapstructure:"Port"`
	TokenHeader string `mapstructure:"TokenHeader"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type StorageConfig struct {
	Driver   string `mapstructure:"Driver"`
	RootPath string `mapstructure:"RootPath"`
}

type SecurityConfig struct {
	JWTSecret       string `mapstructure:"JWTSecret"`
	TokenValidHours int    `mapstructure:"TokenValidHours"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	// Привязываем переменные окружения
	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Server.TokenHeader", "TOKEN_HEADER")
	v.BindEnv("Storage.Driver", "STORAGE_DRIVER")
	v.BindEnv("Storage.RootPath", "STORAGE_ROOT")
	v.BindEnv("Security.JWTSecret", "JWT_SECRET")
	v.BindEnv("Security.TokenValidHours", "JWT_VALID_HOURS")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.Host == "" ||
		cfg.Database.Port == "" ||
		cfg.Database.User == "" ||
		cfg.Database.Password == "" ||
		cfg.Database.Name == "" {
		return nil, fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Name)
	}

	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}

	// Значения по умолчанию
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.TokenHeader == "" {
		cfg.Server.TokenHeader = "Authorization"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "fs"
	}
	if cfg.Storage.RootPath == "" {
		cfg.Storage.RootPath = "/var/lib/cloudvault/files"
	}
	if cfg.Security.TokenValidHours == 0 {
		cfg.Security.TokenValidHours = 24
	}

	return &cfg, nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}
