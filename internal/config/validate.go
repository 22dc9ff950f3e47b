package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if err := c.CRM.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("crm: %w", err))
	}
	if err := c.Capture.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("capture: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	for i, t := range c.Tracks {
		if strings.TrimSpace(t.Src) == "" {
			errs = append(errs, fmt.Errorf("tracks[%d]: src is required", i))
		}
	}

	return errors.Join(errs...)
}

func (c *ServerConfig) Validate() error {
	if c.Port != "" {
		if p, err := strconv.Atoi(c.Port); err != nil || p < 0 || p > 65535 {
			return fmt.Errorf("invalid port: %s", c.Port)
		}
	}
	return validateURL("base_url", c.BaseURL)
}

func (c *CRMConfig) Validate() error {
	if (c.Token == "") != (c.LocationID == "") {
		return errors.New("token and location_id must be set together")
	}
	return validateURL("base_url", c.BaseURL)
}

func (c *CaptureConfig) Validate() error {
	if c.RedisURL != "" && c.FlagFile != "" {
		return errors.New("set only one of redis_url and flag_file")
	}
	return validateURL("relay_url", c.RelayURL)
}

func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
}

func validateURL(name, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s: %s (must be http or https)", name, raw)
	}
	return nil
}
