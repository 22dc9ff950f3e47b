package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/myindsound/promo/internal/flagstore"
	"github.com/myindsound/promo/internal/media"
)

const redisKeyPrefix = "promo:"

// openFlagStore picks Redis when configured, otherwise the per-user file.
func openFlagStore() (flagstore.Store, func(), error) {
	if cfg.Capture.RedisURL != "" {
		store, err := flagstore.DialRedis(cfg.Capture.RedisURL, redisKeyPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis flag store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}

	store, err := flagstore.NewFile(cfg.Capture.FlagFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open flag file: %w", err)
	}
	return store, func() {}, nil
}

// newResolver returns the media resolver and the origin media is served
// from, for the content security policy.
func newResolver(ctx context.Context) (media.Resolver, string, error) {
	s3cfg := cfg.Media.S3
	if s3cfg.Bucket != "" {
		store, err := media.NewS3(ctx, media.S3Config{
			Endpoint:       s3cfg.Endpoint,
			PublicEndpoint: s3cfg.PublicEndpoint,
			Bucket:         s3cfg.Bucket,
			AccessKey:      s3cfg.AccessKey,
			SecretKey:      s3cfg.SecretKey,
			Region:         s3cfg.Region,
			Prefix:         s3cfg.Prefix,
		})
		if err != nil {
			return nil, "", err
		}
		endpoint := s3cfg.PublicEndpoint
		if endpoint == "" {
			endpoint = s3cfg.Endpoint
		}
		return store, origin(endpoint), nil
	}
	return media.NewStatic(cfg.Media.BaseURL), origin(cfg.Media.BaseURL), nil
}

func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard unsupported on this system")
	}
	return clipboard.WriteAll(strings.TrimSpace(text))
}
