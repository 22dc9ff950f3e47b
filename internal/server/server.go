package server

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RelayPaths are the paths the capture form posts to. The second keeps forms
// built against the serverless deployment working.
var RelayPaths = []string{"/api/create-contact", "/.netlify/functions/create-contact"}

type Config struct {
	// Relay answers every method itself so non-POST requests get the JSON 405.
	Relay    http.HandlerFunc
	Playlist http.HandlerFunc
	SiteFS   fs.FS

	BaseURL     string
	MediaOrigin string

	// AllowedFrameAncestors is appended to frame-ancestors for embedding the
	// player on partner sites.
	AllowedFrameAncestors string
}

type Server struct {
	router   chi.Router
	relay    http.HandlerFunc
	playlist http.HandlerFunc
	siteFS   fs.FS
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:               cfg.BaseURL,
		MediaOrigin:           cfg.MediaOrigin,
		AllowedFrameAncestors: cfg.AllowedFrameAncestors,
	}))

	s := &Server{
		router:   r,
		relay:    cfg.Relay,
		playlist: cfg.Playlist,
		siteFS:   cfg.SiteFS,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.relay != nil {
		for _, p := range RelayPaths {
			s.router.HandleFunc(p, s.relay)
		}
	}

	if s.playlist != nil {
		s.router.Get("/api/playlist", s.playlist)
	}

	if s.siteFS != nil {
		site := newSiteHandler(s.siteFS)
		s.router.NotFound(site.ServeHTTP)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.relay == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unhealthy","error":"crm relay not configured"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
