package app

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BackendURL      string `yaml:"backend_url"`
	GeoLookupURL    string `yaml:"geo_lookup_url"`
	DataDir         string `yaml:"data_dir"`
	LocationEnabled bool   `yaml:"location_enabled"`
	// LocationCommand is an external helper that prints JSON with numeric
	// latitude/longitude (e.g. termux-location). Empty means no precise
	// device capability.
	LocationCommand string `yaml:"location_command"`
	// LocationPermission is granted|prompt|denied. denied skips the device
	// request and uses the coarse network-address lookup.
	LocationPermission string `yaml:"location_permission"`
	// Device location request bounds, in seconds.
	DeviceTimeoutSeconds int `yaml:"device_timeout_seconds"`
	DeviceMaxAgeSeconds  int `yaml:"device_max_age_seconds"`
}

func DefaultConfig() Config {
	return Config{
		BackendURL:           "http://127.0.0.1:5000",
		GeoLookupURL:         "https://ipapi.co/json/",
		DataDir:              DefaultDataDir(),
		LocationEnabled:      true,
		LocationPermission:   string(PermissionDenied),
		DeviceTimeoutSeconds: 12,
		DeviceMaxAgeSeconds:  60,
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.BackendURL == "" {
		cfg.BackendURL = "http://127.0.0.1:5000"
	}
	if cfg.GeoLookupURL == "" {
		cfg.GeoLookupURL = "https://ipapi.co/json/"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if cfg.LocationPermission == "" {
		cfg.LocationPermission = string(PermissionDenied)
	}
	if cfg.DeviceTimeoutSeconds <= 0 {
		cfg.DeviceTimeoutSeconds = 12
	}
	if cfg.DeviceMaxAgeSeconds <= 0 {
		cfg.DeviceMaxAgeSeconds = 60
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		return errors.New("no path provided for config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "dolma", "config.yml")
}

// DefaultDataDir prefers the XDG data dir and falls back to ~/.local/share.
func DefaultDataDir() string {
	if base := os.Getenv("XDG_DATA_HOME"); base != "" {
		return filepath.Join(base, "dolma")
	}
	if base, err := os.UserHomeDir(); err == nil && base != "" {
		return filepath.Join(base, ".local", "share", "dolma")
	}
	return filepath.Join(os.TempDir(), "dolma")
}
