package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/myindsound/promo/internal/crm"
	"github.com/myindsound/promo/internal/geoip"
	"github.com/myindsound/promo/internal/media"
	"github.com/myindsound/promo/internal/relay"
	"github.com/myindsound/promo/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the release site, playlist and CRM relay",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	resolver, mediaOrigin, err := newResolver(ctx)
	if err != nil {
		return fmt.Errorf("media resolver: %w", err)
	}

	var relayHandler http.HandlerFunc
	if cfg.RelayConfigured() {
		geo, err := geoip.New(cfg.GeoIP.DBPath)
		if err != nil {
			return fmt.Errorf("geoip: %w", err)
		}
		defer func() { _ = geo.Close() }()

		client := crm.New(crm.Config{
			BaseURL:    cfg.CRM.BaseURL,
			Token:      cfg.CRM.Token,
			LocationID: cfg.CRM.LocationID,
		})
		h := relay.NewHandler(client, client.LocationID())
		h.SetCountryLookup(geo)
		relayHandler = h.CreateContact
	} else {
		slog.Warn("CRM token or location not set, relay disabled")
	}

	srv := server.New(server.Config{
		Relay:                 relayHandler,
		Playlist:              media.NewPlaylistHandler(resolver, cfg.Tracks).List,
		SiteFS:                siteFS(cfg.Server.SiteDir),
		BaseURL:               cfg.Server.BaseURL,
		MediaOrigin:           mediaOrigin,
		AllowedFrameAncestors: cfg.Server.FrameAncestors,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("promo listening", "port", cfg.Server.Port, "base_url", cfg.Server.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// siteFS returns nil when dir is missing so the server runs API-only.
func siteFS(dir string) fs.FS {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		slog.Warn("site directory not found, serving API only", "dir", dir)
		return nil
	}
	return os.DirFS(dir)
}
