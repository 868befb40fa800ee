package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "bloodbank.sqlite3" || cfg.Addr != ":8080" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Interval() != 24*time.Hour {
		t.Errorf("expected 24h interval, got %s", cfg.Interval())
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"db_path": "/var/lib/bloodbank.db", "allowed_origins": ["https://bank.example"], "availability_interval": "6h"}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/var/lib/bloodbank.db" {
		t.Errorf("expected file db path, got %s", cfg.DBPath)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr to survive, got %s", cfg.Addr)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://bank.example" {
		t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.Interval() != 6*time.Hour {
		t.Errorf("expected 6h, got %s", cfg.Interval())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"availability_interval": 3600}`), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for numeric duration")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"BLOODBANK_ADDR":                  "127.0.0.1:9000",
		"BLOODBANK_ALLOWED_ORIGINS":       "http://a.example, http://b.example,",
		"BLOODBANK_AVAILABILITY_INTERVAL": "12h",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("expected env addr, got %s", cfg.Addr)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.example" {
		t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.Interval() != 12*time.Hour {
		t.Errorf("expected 12h, got %s", cfg.Interval())
	}

	env["BLOODBANK_AVAILABILITY_INTERVAL"] = "soon"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no db", func(c *Config) { c.DBPath = "" }, true},
		{"no addr", func(c *Config) { c.Addr = "" }, true},
		{"bad admin email", func(c *Config) { c.AdminEmail = "admin" }, true},
		{"interval too short", func(c *Config) { c.AvailabilityInterval = Duration(time.Second) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
