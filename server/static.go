package server

import (
	"fmt"
	"maps"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

// staticMount maps a URL prefix onto a directory or a single file.
type staticMount struct {
	Path string
	Root string
	File string
}

// staticMounts lists the built-in mounts followed by the configured paths
// in sorted order.
func (s *Server) staticMounts() []staticMount {
	cfg := s.config
	mounts := []staticMount{
		{Path: "/src/", Root: cfg.SourceDir()},
		{Path: "/assets/", Root: cfg.StaticDir()},
		{Path: "/css/", Root: cfg.CSSDir()},
		{Path: "/favicon.ico", File: filepath.Join(cfg.StaticDir(), "favicon.ico")},
	}
	for _, from := range slices.Sorted(maps.Keys(cfg.Paths)) {
		prefix := strings.TrimSuffix(from, "/") + "/"
		mounts = append(mounts, staticMount{Path: prefix, Root: cfg.ExpandPath(cfg.Paths[from])})
	}
	return mounts
}

// setupStatic registers every static mount on the mux.
func (s *Server) setupStatic() error {
	// Reserved for the page handler, live reload and socket.io
	seen := map[string]bool{"/": true, "/__livereload": true, "/socket.io/": true}
	for _, m := range s.staticMounts() {
		if seen[m.Path] {
			return fmt.Errorf("static path %s conflicts with another mount", m.Path)
		}
		seen[m.Path] = true

		if m.File != "" {
			file := m.File
			s.mux.HandleFunc(m.Path, func(w http.ResponseWriter, r *http.Request) {
				http.ServeFile(w, r, file)
			})
			continue
		}

		prefix := strings.TrimSuffix(m.Path, "/")
		s.mux.Handle(m.Path, http.StripPrefix(prefix, noDotfiles(http.FileServer(http.Dir(m.Root)))))
	}
	return nil
}

// noDotfiles hides dot-prefixed segments from a file server.
func noDotfiles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if containsDotfile(r.URL.Path) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
