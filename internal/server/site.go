package server

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// siteHandler serves the static release site. Page routes that match no file
// get index.html; missing assets answer 404 so the player sees the failure.
type siteHandler struct {
	files http.Handler
	fsys  fs.FS
}

func newSiteHandler(fsys fs.FS) *siteHandler {
	return &siteHandler{
		files: http.FileServer(http.FS(fsys)),
		fsys:  fsys,
	}
}

func (s *siteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		s.files.ServeHTTP(w, r)
		return
	}

	if info, err := fs.Stat(s.fsys, name); err == nil && !info.IsDir() {
		s.files.ServeHTTP(w, r)
		return
	}

	if isAsset(name) {
		http.NotFound(w, r)
		return
	}

	// Rewrite a copy so request logging keeps the path that was asked for.
	index := r.Clone(r.Context())
	index.URL.Path = "/"
	index.URL.RawPath = ""
	s.files.ServeHTTP(w, index)
}

func isAsset(name string) bool {
	return path.Ext(name) != "" || strings.HasPrefix(name, "assets/")
}
