package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "5000" {
		t.Fatalf("expected default port 5000, got %s", cfg.Port)
	}
	if cfg.Dataset.Split != "valid" || cfg.Dataset.MaxSamples != 20 || cfg.Dataset.PublicPath != "/dataset" {
		t.Fatalf("unexpected dataset defaults: %+v", cfg.Dataset)
	}
	if cfg.Detect.PollInterval != time.Second || cfg.Detect.Timeout != 5*time.Second {
		t.Fatalf("unexpected detect defaults: %+v", cfg.Detect)
	}
	if cfg.Leaderboard.DBPath != filepath.Join("/tmp/xdg", "insignia", "local.db") {
		t.Fatalf("unexpected db path %s", cfg.Leaderboard.DBPath)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DATASET_ROOT", "/srv/dataset")
	t.Setenv("DATASET_CACHE_SIZE", "64")
	t.Setenv("DETECT_API_URL", "http://detector:8003")
	t.Setenv("APP_ENV", "production")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8081" || cfg.Dataset.Root != "/srv/dataset" || cfg.Dataset.CacheSize != 64 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Detect.URL != "http://detector:8003" {
		t.Fatalf("expected detector url, got %s", cfg.Detect.URL)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %s", cfg.Env)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{Port: "5000", Dataset: Dataset{Root: "d", Split: "valid", MaxSamples: 0}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero max samples should be rejected")
	}
	cfg.Dataset.MaxSamples = 21
	if err := cfg.Validate(); err == nil {
		t.Fatal("max samples above the fixed cap should be rejected")
	}
	cfg.Dataset.MaxSamples = 20
	cfg.Dataset.CacheSize = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative cache size should be rejected")
	}
}
