package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kiliankoe/insignia/internal/dataset"
)

// Config holds application configuration loaded from .env, an optional config file and the environment.
type Config struct {
	Env         string      `mapstructure:"env"`  // local, production
	Port        string      `mapstructure:"port"` // HTTP listen port
	Log         Log         `mapstructure:"log"`
	Dataset     Dataset     `mapstructure:"dataset"`
	Detect      Detect      `mapstructure:"detect"`
	Quiz        Quiz        `mapstructure:"quiz"`
	Leaderboard Leaderboard `mapstructure:"leaderboard"`
	CORS        CORS        `mapstructure:"cors"`
}

type Log struct {
	Level  string `mapstructure:"level"`  // zerolog level name
	Format string `mapstructure:"format"` // console or json
}

// Dataset locates the YOLO dataset on disk.
type Dataset struct {
	Root       string `mapstructure:"root"`
	Split      string `mapstructure:"split"`
	PublicPath string `mapstructure:"public_path"` // URL prefix the root is served under
	MaxSamples int    `mapstructure:"max_samples"`
	CacheSize  int    `mapstructure:"cache_size"` // 0 disables the lookup cache
}

// Detect points at the external Python detection server.
type Detect struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type Quiz struct {
	ExportEnabled bool   `mapstructure:"export_enabled"`
	ExportFile    string `mapstructure:"export_file"`
}

type Leaderboard struct {
	DBPath string `mapstructure:"db_path"` // local SQLite file of the terminal client
}

type CORS struct {
	AllowOrigin string `mapstructure:"allow_origin"`
}

// Load reads configuration. A missing .env or config file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	v.SetDefault("env", "local")
	v.SetDefault("port", "5000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("dataset.root", "./dataset")
	v.SetDefault("dataset.split", "valid")
	v.SetDefault("dataset.public_path", "/dataset")
	v.SetDefault("dataset.max_samples", 20)
	v.SetDefault("dataset.cache_size", 0)
	v.SetDefault("detect.url", "http://localhost:8003")
	v.SetDefault("detect.timeout", "5s")
	v.SetDefault("detect.poll_interval", "1s")
	v.SetDefault("quiz.export_enabled", false)
	v.SetDefault("quiz.export_file", "./insignia-results.txt")
	v.SetDefault("leaderboard.db_path", DefaultDBPath())
	v.SetDefault("cors.allow_origin", "*")

	// dataset.root <- DATASET_ROOT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("detect.url", "DETECT_API_URL", "DETECT_URL")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.Dataset.Root == "" || c.Dataset.Split == "" {
		return errors.New("dataset root and split must be set")
	}
	if c.Dataset.MaxSamples <= 0 || c.Dataset.MaxSamples > dataset.DefaultMaxSamples {
		return fmt.Errorf("dataset.max_samples must be between 1 and %d, got %d", dataset.DefaultMaxSamples, c.Dataset.MaxSamples)
	}
	if c.Dataset.CacheSize < 0 {
		return fmt.Errorf("dataset.cache_size must not be negative, got %d", c.Dataset.CacheSize)
	}
	return nil
}
