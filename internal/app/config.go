package app

import (
	"fmt"
	"path/filepath"
	"strings"

	coreconfig "github.com/m3rciful/dmbot/core/config"
	coredatabase "github.com/m3rciful/dmbot/core/database"
)

// Storage drivers accepted by storage.driver.
const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	defaultStoragePath  = "data/bot_data.db"
	defaultSettingsPath = "config/settings.yaml"
)

// StorageConfig selects the user registry backend.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	// Path is the bolt database file.
	Path string `yaml:"path" envconfig:"STORAGE_PATH"`
}

// Config is the bot configuration document.
type Config struct {
	Core         coreconfig.Config   `yaml:",inline"`
	Storage      StorageConfig       `yaml:"storage"`
	Database     coredatabase.Config `yaml:"database"`
	SettingsPath string              `yaml:"settings_path" envconfig:"SETTINGS_PATH"`

	// Settings is read from SettingsPath.
	Settings coreconfig.Settings `yaml:"-" ignored:"true"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// Load reads the bot config at path and the settings document it points to.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}

	settings, err := coreconfig.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	cfg.Settings = *settings
	return &cfg, nil
}

func normalize(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" {
		driver = DriverBolt
	}
	switch driver {
	case DriverBolt:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			cfg.Storage.Path = defaultStoragePath
		}
		cfg.Storage.Path = filepath.Clean(cfg.Storage.Path)
	case DriverPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres storage driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: bolt, postgres, memory", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver

	if strings.TrimSpace(cfg.SettingsPath) == "" {
		cfg.SettingsPath = defaultSettingsPath
	}
	return nil
}
