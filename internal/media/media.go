package media

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/myindsound/promo/internal/httputil"
	"github.com/myindsound/promo/internal/player"
)

// Resolver turns a track locator into a URL the browser or the terminal
// player can fetch.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (string, error)
}

// Static serves locators relative to a base URL. With no base the locator is
// returned unchanged, which keeps it relative to the site.
type Static struct {
	base string
}

func NewStatic(baseURL string) *Static {
	return &Static{base: strings.TrimRight(baseURL, "/")}
}

func (s *Static) Resolve(_ context.Context, locator string) (string, error) {
	if locator == "" || isAbsolute(locator) || s.base == "" {
		return locator, nil
	}
	return s.base + "/" + strings.TrimLeft(locator, "/"), nil
}

func isAbsolute(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// ResolveTrack resolves both the audio source and the cover of t.
func ResolveTrack(ctx context.Context, r Resolver, t player.Track) (player.Track, error) {
	src, err := r.Resolve(ctx, t.Src)
	if err != nil {
		return player.Track{}, fmt.Errorf("resolve %s: %w", t.Src, err)
	}
	cover, err := r.Resolve(ctx, t.Cover)
	if err != nil {
		return player.Track{}, fmt.Errorf("resolve %s: %w", t.Cover, err)
	}
	t.Src, t.Cover = src, cover
	return t, nil
}

func ResolvePlaylist(ctx context.Context, r Resolver, tracks []player.Track) ([]player.Track, error) {
	out := make([]player.Track, 0, len(tracks))
	for _, t := range tracks {
		resolved, err := ResolveTrack(ctx, r, t)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

type PlaylistHandler struct {
	resolver Resolver
	tracks   []player.Track
}

func NewPlaylistHandler(r Resolver, tracks []player.Track) *PlaylistHandler {
	return &PlaylistHandler{resolver: r, tracks: append([]player.Track(nil), tracks...)}
}

type playlistResponse struct {
	Tracks []player.Track `json:"tracks"`
}

// List resolves locators per request so presigned URLs stay fresh.
func (h *PlaylistHandler) List(w http.ResponseWriter, r *http.Request) {
	tracks, err := ResolvePlaylist(r.Context(), h.resolver, h.tracks)
	if err != nil {
		httputil.WriteError(w, http.StatusBadGateway, "Failed to resolve playlist")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, playlistResponse{Tracks: tracks})
}
