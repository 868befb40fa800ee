// Package config resolves the server configuration from defaults, an
// optional JSON file and BLOODBANK_* environment variables. Command-line
// flags are applied on top by the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "BLOODBANK_"

// Duration is a time.Duration that reads and writes as a Go duration string.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"24h\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds the server settings.
type Config struct {
	DBPath               string   `json:"db_path"`
	Addr                 string   `json:"addr"`
	AdminEmail           string   `json:"admin_email"`
	LogPath              string   `json:"log_path,omitempty"`
	AllowedOrigins       []string `json:"allowed_origins,omitempty"`
	AvailabilityInterval Duration `json:"availability_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:               "bloodbank.sqlite3",
		Addr:                 ":8080",
		AdminEmail:           "admin@bloodbank.local",
		AvailabilityInterval: Duration(24 * time.Hour),
	}
}

// Load returns the defaults overlaid with the JSON file at path. An empty
// path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays BLOODBANK_* variables found through lookup, normally
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "DB"); ok {
		c.DBPath = v
	}
	if v, ok := lookup(EnvPrefix + "ADDR"); ok {
		c.Addr = v
	}
	if v, ok := lookup(EnvPrefix + "ADMIN_EMAIL"); ok {
		c.AdminEmail = v
	}
	if v, ok := lookup(EnvPrefix + "LOG"); ok {
		c.LogPath = v
	}
	if v, ok := lookup(EnvPrefix + "ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "AVAILABILITY_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %sAVAILABILITY_INTERVAL: %w", EnvPrefix, err)
		}
		c.AvailabilityInterval = Duration(d)
	}
	return nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("database path is required")
	case c.Addr == "":
		return errors.New("listen address is required")
	case !strings.Contains(c.AdminEmail, "@"):
		return fmt.Errorf("invalid admin email %q", c.AdminEmail)
	case c.AvailabilityInterval < Duration(time.Minute):
		return fmt.Errorf("availability interval %s is shorter than a minute", time.Duration(c.AvailabilityInterval))
	}
	return nil
}

// Interval returns the availability job period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.AvailabilityInterval)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
