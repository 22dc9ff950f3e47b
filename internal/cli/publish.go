package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/myindsound/promo/internal/media"
	"github.com/spf13/cobra"
)

var publishNoCORS bool

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the playlist's audio and cover files to the media bucket",
	Long: `Publish creates the configured bucket if needed, allows the site origin
to fetch from it, and uploads every relative track locator from the site
directory under the same key.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishNoCORS, "no-cors", false, "leave the bucket CORS rules untouched")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s3cfg := cfg.Media.S3
	if s3cfg.Bucket == "" {
		return fmt.Errorf("media.s3.bucket is not set")
	}

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
		return err
	}

	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}
	if !publishNoCORS {
		if o := origin(cfg.Server.BaseURL); o != "" {
			if err := store.AllowOrigins(ctx, []string{o}); err != nil {
				return err
			}
		}
	}

	out := cmd.OutOrStdout()
	for _, locator := range publishLocators() {
		path := filepath.Join(cfg.Server.SiteDir, filepath.FromSlash(locator))
		if err := store.Publish(ctx, locator, path); err != nil {
			return err
		}
		slog.Debug("published", "locator", locator, "path", path)
		fmt.Fprintf(out, "uploaded %s\n", locator)
	}
	return nil
}

// publishLocators lists the relative locators of the configured playlist
// without duplicates. Absolute URLs are hosted elsewhere.
func publishLocators() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range cfg.Tracks {
		for _, l := range []string{t.Src, t.Cover} {
			l = strings.TrimLeft(l, "/")
			if l == "" || strings.Contains(l, "://") || seen[l] {
				continue
			}
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
