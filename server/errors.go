package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
)

// DevError is what the development error page shows about a failed page.
type DevError struct {
	Type    string // "filesystem", "timeout" or "composition"
	File    string // offending file, relative to the source root when possible
	Message string
}

// newDevError classifies err for display. root is used to shorten paths.
func newDevError(err error, root string) *DevError {
	devErr := &DevError{Type: "composition", Message: err.Error()}

	var pathErr *fs.PathError
	switch {
	case errors.As(err, &pathErr):
		devErr.Type = "filesystem"
		devErr.File = makeRelativePath(pathErr.Path, root)
	case errors.Is(err, context.DeadlineExceeded):
		devErr.Type = "timeout"
	}
	devErr.Message = makeMessageRelative(devErr.Message, root)
	return devErr
}

// makeRelativePath shortens an absolute path under basePath.
func makeRelativePath(path, basePath string) string {
	if basePath == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(basePath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// makeMessageRelative strips basePath from paths mentioned in message.
func makeMessageRelative(message, basePath string) string {
	if basePath == "" {
		return message
	}
	return strings.ReplaceAll(message, strings.TrimSuffix(basePath, string(filepath.Separator))+string(filepath.Separator), "")
}

const errorPageStyles = `<style>
body { font-family: system-ui, sans-serif; background: #1e1e1e; color: #ddd; margin: 0; padding: 2rem; }
.error-container { max-width: 60rem; margin: 0 auto; }
h1 { color: #f87171; font-size: 1.4rem; }
.error-type { font-weight: bold; text-transform: uppercase; margin-right: 1rem; }
.file-path { color: #93c5fd; font-family: ui-monospace, monospace; }
.error-message { background: #2a2a2a; border-left: 4px solid #f87171; padding: 1rem; margin-top: 1rem; white-space: pre-wrap; font-family: ui-monospace, monospace; }
.footer { margin-top: 2rem; color: #888; font-size: 0.9rem; }
</style>
`

// renderDevErrorPage writes a 500 page describing devErr.
func renderDevErrorPage(w http.ResponseWriter, devErr *DevError) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusInternalServerError)

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	sb.WriteString("<title>Error - JazelKit Dev</title>\n")
	sb.WriteString(errorPageStyles)
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString("<div class=\"error-container\">\n")
	sb.WriteString("<h1>Page Error</h1>\n")

	sb.WriteString("<div class=\"error-location\">\n")
	sb.WriteString(fmt.Sprintf("<span class=\"error-type\">%s error</span>\n", html.EscapeString(devErr.Type)))
	if devErr.File != "" {
		sb.WriteString("<span class=\"file-path\">")
		sb.WriteString(html.EscapeString(devErr.File))
		sb.WriteString("</span>\n")
	}
	sb.WriteString("</div>\n")

	sb.WriteString("<div class=\"error-message\">")
	sb.WriteString(html.EscapeString(devErr.Message))
	sb.WriteString("</div>\n")

	sb.WriteString("<div class=\"footer\">")
	sb.WriteString("Fix the error and save. This page reloads automatically.")
	sb.WriteString("</div>\n")

	sb.WriteString("</div>\n</body>\n</html>")

	w.Write([]byte(sb.String()))
}
