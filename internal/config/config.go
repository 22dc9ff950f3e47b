package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.promorc, $XDG_CONFIG_HOME/promo/config.toml, ~/.config/promo/config.toml
func Load() (*Config, error) {
	cfg := &Config{}

	if path := findConfigFile(); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".promorc"),
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "promo", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnvOverrides lets the deployment environment win over the file. The
// variable names match the serverless function's settings.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"PORT", &cfg.Server.Port},
		{"BASE_URL", &cfg.Server.BaseURL},
		{"SITE_DIR", &cfg.Server.SiteDir},
		{"FRAME_ANCESTORS", &cfg.Server.FrameAncestors},
		{"GHL_PRIVATE_TOKEN", &cfg.CRM.Token},
		{"GHL_LOCATION_ID", &cfg.CRM.LocationID},
		{"CRM_BASE_URL", &cfg.CRM.BaseURL},
		{"GEOIP_DB_PATH", &cfg.GeoIP.DBPath},
		{"MEDIA_BASE_URL", &cfg.Media.BaseURL},
		{"S3_ENDPOINT", &cfg.Media.S3.Endpoint},
		{"S3_PUBLIC_ENDPOINT", &cfg.Media.S3.PublicEndpoint},
		{"S3_BUCKET", &cfg.Media.S3.Bucket},
		{"S3_ACCESS_KEY", &cfg.Media.S3.AccessKey},
		{"S3_SECRET_KEY", &cfg.Media.S3.SecretKey},
		{"S3_REGION", &cfg.Media.S3.Region},
		{"S3_PREFIX", &cfg.Media.S3.Prefix},
		{"RELAY_URL", &cfg.Capture.RelayURL},
		{"PROMO_CODE", &cfg.Capture.PromoCode},
		{"REDIS_URL", &cfg.Capture.RedisURL},
		{"FLAG_FILE", &cfg.Capture.FlagFile},
		{"LOG_LEVEL", &cfg.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}
}

// SlogLevel maps the configured level onto slog, defaulting to info.
func (c *LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
