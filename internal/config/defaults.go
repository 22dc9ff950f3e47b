package config

import (
	"strings"

	"github.com/myindsound/promo/internal/crm"
	"github.com/myindsound/promo/internal/media"
	"github.com/myindsound/promo/internal/player"
)

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    "8080",
			BaseURL: "http://localhost:8080",
			SiteDir: "site",
		},
		CRM: CRMConfig{
			BaseURL: crm.DefaultBaseURL,
		},
		Media: MediaConfig{
			S3: S3Config{Region: media.DefaultRegion},
		},
		Log: LogConfig{
			Level: "info",
		},
		Tracks: player.DefaultPlaylist(),
	}
}

// ApplyDefaults fills in zero values with sensible defaults. The relay URL
// defaults to the relay path on the base URL.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	if c.Server.SiteDir == "" {
		c.Server.SiteDir = d.Server.SiteDir
	}

	if c.CRM.BaseURL == "" {
		c.CRM.BaseURL = d.CRM.BaseURL
	}

	if c.Media.S3.Region == "" {
		c.Media.S3.Region = d.Media.S3.Region
	}

	if c.Capture.RelayURL == "" {
		c.Capture.RelayURL = strings.TrimRight(c.Server.BaseURL, "/") + "/api/create-contact"
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}

	if len(c.Tracks) == 0 {
		c.Tracks = d.Tracks
	}
}

// RelayConfigured reports whether the CRM credentials needed to serve the
// relay are present.
func (c *Config) RelayConfigured() bool {
	return c.CRM.Token != "" && c.CRM.LocationID != ""
}
