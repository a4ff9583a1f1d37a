package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Transform.MaxAttempts != 3 {
		t.Errorf("max_attempts = %d, want 3", cfg.Transform.MaxAttempts)
	}
	if cfg.Transform.FirstBackoffCap != 300*time.Second {
		t.Errorf("first_backoff_cap = %v, want 300s", cfg.Transform.FirstBackoffCap)
	}
	if cfg.Transform.SecondBackoff != 180*time.Second {
		t.Errorf("second_backoff = %v, want 180s", cfg.Transform.SecondBackoff)
	}
	if cfg.Transform.ByteBudget != 900*1024 {
		t.Errorf("byte_budget = %d, want %d", cfg.Transform.ByteBudget, 900*1024)
	}
	if len(cfg.Transform.Qualities) != 4 || cfg.Transform.Qualities[0] != 80 {
		t.Errorf("qualities = %v, want [80 70 60 50]", cfg.Transform.Qualities)
	}
	if cfg.Gemini.Enabled() {
		t.Error("gemini should be disabled without an api key")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image")

	cfg, err := Load(writeConfig(t, "transform:\n  second_backoff: 90s\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.Gemini.Enabled() {
		t.Fatal("gemini should be enabled")
	}
	if cfg.Gemini.ImageModel != "gemini-2.5-flash-image" {
		t.Errorf("image_model = %q", cfg.Gemini.ImageModel)
	}
	if cfg.Transform.SecondBackoff != 90*time.Second {
		t.Errorf("second_backoff = %v, want 90s", cfg.Transform.SecondBackoff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "postgres without url", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: true},
		{name: "postgres disabled", mutate: func(c *Config) {
			c.Database.Driver = "postgres"
			c.Database.Enabled = false
		}},
		{name: "no qualities", mutate: func(c *Config) { c.Transform.Qualities = nil }, wantErr: true},
		{name: "gemini without model", mutate: func(c *Config) {
			c.Gemini.APIKey = "k"
			c.Gemini.ImageModel = ""
		}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				Database:  DatabaseConfig{Enabled: true, Driver: "sqlite", Path: "x.db"},
				Transform: TransformConfig{MaxAttempts: 3, MaxSide: 1024, ByteBudget: 1, Qualities: []int{80}},
				Gallery:   GalleryConfig{DefaultLimit: 24, MaxLimit: 100},
				Gemini:    GeminiConfig{BaseURL: DefaultGeminiBaseURL, ImageModel: "imagen-3.0-fast"},
			}
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
