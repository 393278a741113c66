package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rowanharker/tabgrid/internal/models"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	General     GeneralConfig           `mapstructure:"general"`
	Fetch       FetchConfig             `mapstructure:"fetch"`
	Storage     StorageConfig           `mapstructure:"storage"`
	Performance PerformanceConfig       `mapstructure:"performance"`
	Connection  models.ConnectionConfig `mapstructure:"connection"`
}

type GeneralConfig struct {
	ConfirmDestructiveOps bool `mapstructure:"confirm_destructive_ops"`
	RestoreSessions       bool `mapstructure:"restore_sessions"`
}

type FetchConfig struct {
	ChunkSize           int `mapstructure:"chunk_size"`
	MaxCellDisplayWidth int `mapstructure:"max_cell_display_width"`
}

type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

type PerformanceConfig struct {
	ConnectionPoolSize int `mapstructure:"connection_pool_size"`
	QueryTimeout       int `mapstructure:"query_timeout"`
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	return &Config{
		General: GeneralConfig{
			ConfirmDestructiveOps: true,
			RestoreSessions:       true,
		},
		Fetch: FetchConfig{
			ChunkSize:           100,
			MaxCellDisplayWidth: 100,
		},
		Storage: StorageConfig{
			Dir: "",
		},
		Performance: PerformanceConfig{
			ConnectionPoolSize: 5,
			QueryTimeout:       30000,
		},
		Connection: models.ConnectionConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "postgres",
			User:     "postgres",
			SSLMode:  "prefer",
		},
	}
}

// Load loads configuration from files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config paths in priority order
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "tabgrid"))
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("general.confirm_destructive_ops", true)
	v.SetDefault("general.restore_sessions", true)
	v.SetDefault("fetch.chunk_size", 100)
	v.SetDefault("fetch.max_cell_display_width", 100)
	v.SetDefault("storage.dir", "")
	v.SetDefault("performance.connection_pool_size", 5)
	v.SetDefault("performance.query_timeout", 30000)
	v.SetDefault("connection.host", "localhost")
	v.SetDefault("connection.port", 5432)
	v.SetDefault("connection.database", "postgres")
	v.SetDefault("connection.user", "postgres")
	v.SetDefault("connection.ssl_mode", "prefer")

	// Read config (it's okay if file doesn't exist, we have defaults)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// GetConfigPath returns the user config directory path
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "tabgrid"), nil
}

// StorageDir resolves where durable state (session store, saved queries)
// lives, creating the directory if needed
func (c *Config) StorageDir() (string, error) {
	dir := c.Storage.Dir
	if dir == "" {
		configDir, err := GetConfigPath()
		if err != nil {
			return "", err
		}
		dir = configDir
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	return dir, nil
}
