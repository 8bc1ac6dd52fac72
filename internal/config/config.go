package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	"mediastore/internal/storage"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	// Disks lists every configured storage backend. The first entry is
	// used when an upload names no disk and no default is set.
	Disks []storage.Config `yaml:"disks"`

	Upload struct {
		DefaultDisk        string `yaml:"default_disk"`
		DefaultFolder      string `yaml:"default_folder"`
		DefaultVisibility  string `yaml:"default_visibility"` // public or private
		GenerateThumbnails *bool  `yaml:"generate_thumbnails"`
		MaxSize            int64  `yaml:"max_size"`          // bytes
		MaxOwnerStorage    int64  `yaml:"max_owner_storage"` // bytes, 0 disables the quota
		ImageQuality       int    `yaml:"image_quality"`     // JPEG quality (1-100)
		ImageMaxWidth      int    `yaml:"image_max_width"`
		ImageMaxHeight     int    `yaml:"image_max_height"`
	} `yaml:"upload"`
}

var AppConfig *Config

// LoadConfig reads config.yaml, or falls back to environment variables
// when DATABASE_URL is set (the mode CI runs in).
func LoadConfig() error {
	var cfg Config

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.DSN = dbURL
		cfg.Server.Env = os.Getenv("SERVER_ENV")
		cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
		if cfg.Server.Port == 0 {
			cfg.Server.Port = 4000
		}

		cfg.Disks = []storage.Config{
			{
				Name:     "public",
				Type:     "local",
				BasePath: "./uploads/public",
				BaseURL:  "/static",
			},
			{
				Name:     "local",
				Type:     "local",
				BasePath: "./uploads/private",
			},
		}

		cfg.Upload.DefaultDisk = "public"
		cfg.Upload.DefaultFolder = "uploads"
		cfg.Upload.DefaultVisibility = "public"
		cfg.Upload.MaxSize = 10 << 20
		cfg.Upload.MaxOwnerStorage = 100 << 20
		cfg.Upload.ImageQuality = 90

		AppConfig = &cfg
		return nil
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file at %s: %w", configPath, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to parse config file at %s: %w", configPath, err)
	}

	if len(cfg.Disks) == 0 {
		return fmt.Errorf("config %s declares no storage disks", configPath)
	}
	if cfg.Upload.DefaultDisk == "" {
		cfg.Upload.DefaultDisk = cfg.Disks[0].Name
	}

	AppConfig = &cfg
	return nil
}

func GetConfig() *Config {
	if AppConfig == nil {
		if err := LoadConfig(); err != nil {
			panic(err)
		}
	}
	return AppConfig
}
