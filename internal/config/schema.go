package config

import "github.com/myindsound/promo/internal/player"

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig   `toml:"server"`
	CRM     CRMConfig      `toml:"crm"`
	GeoIP   GeoIPConfig    `toml:"geoip"`
	Media   MediaConfig    `toml:"media"`
	Capture CaptureConfig  `toml:"capture"`
	Log     LogConfig      `toml:"log"`
	Tracks  []player.Track `toml:"tracks"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port           string `toml:"port"`
	BaseURL        string `toml:"base_url"`
	SiteDir        string `toml:"site_dir"`
	FrameAncestors string `toml:"frame_ancestors"`
}

// CRMConfig holds the LeadConnector credentials used by the relay.
type CRMConfig struct {
	BaseURL    string `toml:"base_url"`
	Token      string `toml:"token"`
	LocationID string `toml:"location_id"`
}

type GeoIPConfig struct {
	DBPath string `toml:"db_path"`
}

// MediaConfig selects how track locators are resolved. S3 wins when a
// bucket is set.
type MediaConfig struct {
	BaseURL string   `toml:"base_url"`
	S3      S3Config `toml:"s3"`
}

type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	PublicEndpoint string `toml:"public_endpoint"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	Region         string `toml:"region"`
	Prefix         string `toml:"prefix"`
}

// CaptureConfig holds the client-side capture settings.
type CaptureConfig struct {
	RelayURL  string `toml:"relay_url"`
	PromoCode string `toml:"promo_code"`
	RedisURL  string `toml:"redis_url"`
	FlagFile  string `toml:"flag_file"`
}

type LogConfig struct {
	Level string `toml:"level"`
}
