package server

import (
	"net/http"
	"strings"

	"github.com/jazelkit/jazelkit/page"
)

// pageHandler serves composed pages from the routes directory. Every
// request that no static mount claims ends up here.
type pageHandler struct {
	server    *Server
	assembler *page.Assembler
}

func newPageHandler(s *Server, a *page.Assembler) *pageHandler {
	return &pageHandler{server: s, assembler: a}
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path

	// Security: reject paths with .. components (path traversal)
	if containsPathTraversal(urlPath) {
		h.server.logWarn("blocked path traversal attempt: %s", urlPath)
		http.Error(w, "400 Bad Request", http.StatusBadRequest)
		return
	}

	// Security: reject paths starting with . (dotfiles/hidden files)
	if containsDotfile(urlPath) {
		h.server.logWarn("blocked dotfile access attempt: %s", urlPath)
		http.NotFound(w, r)
		return
	}

	resp, err := h.assembler.Assemble(r.Context(), page.RequestInfoFrom(r))
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away; nothing to answer
			return
		}
		h.server.logError("%s: %v", urlPath, err)
		renderDevErrorPage(w, newDevError(err, h.server.config.Root))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(resp.Status)
	if r.Method != http.MethodHead {
		w.Write(resp.Body)
	}
}

// containsPathTraversal checks if a path contains .. components.
func containsPathTraversal(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// containsDotfile checks if any path segment starts with a dot (hidden files).
func containsDotfile(path string) bool {
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" && strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
