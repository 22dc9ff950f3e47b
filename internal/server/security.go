package server

import (
	"fmt"
	"net/http"
	"strings"
)

type SecurityConfig struct {
	BaseURL               string
	MediaOrigin           string
	AllowedFrameAncestors string
}

func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := cfg.BaseURL != "" && hasHTTPS(cfg.BaseURL)

	mediaSuffix := ""
	if cfg.MediaOrigin != "" {
		mediaSuffix = " " + cfg.MediaOrigin
	}

	frameAncestors := "'self'"
	extraAncestors := strings.TrimSpace(cfg.AllowedFrameAncestors)
	if extraAncestors != "" {
		frameAncestors += " " + extraAncestors
	}

	csp := fmt.Sprintf(
		"default-src 'self'; img-src 'self' data:%s; media-src 'self' data: blob:%s; script-src 'self'; style-src 'self'; font-src 'self' data:; connect-src 'self'%s; frame-ancestors %s;",
		mediaSuffix, mediaSuffix, mediaSuffix, frameAncestors,
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			if extraAncestors == "" {
				w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			}
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), autoplay=(self)")
			w.Header().Set("Content-Security-Policy", csp)

			if strictTransport {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasHTTPS(baseURL string) bool {
	return strings.HasPrefix(baseURL, "https://")
}
