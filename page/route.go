package page

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"syscall"
)

// Route file names. These are fixed conventions of the routes directory.
const (
	IndexFile    = "+index.html"
	MarkdownFile = "+index.md"
	LayoutFile   = "+layout.html"
	NotFoundFile = "+404.html"
)

// maxLayoutDepth bounds the upward layout walk independently of path
// shortening.
const maxLayoutDepth = 64

var (
	pageScriptFiles   = []string{"+page.ts", "+page.js"}
	serverScriptFiles = []string{"+page.server.ts", "+page.server.js"}
	layoutScriptFiles = []string{"+layout.server.ts", "+layout.server.js"}
)

// DefaultScriptPrefix is the URL under which compiled route scripts are
// served.
const DefaultScriptPrefix = "/src/routes"

// Route is the resolved file set for one request path.
type Route struct {
	// Path is the cleaned URL path, always starting with "/".
	Path string
	// Dir is the route directory inside the routes FS ("." for the root).
	Dir string
	// Content is the FS path of the page content file.
	Content string
	// Markdown is set when Content is a +index.md page.
	Markdown bool
	// Layouts lists the ancestor layouts, closest first.
	Layouts []Layout
	// PageScripts and ServerScripts are script URLs found in Dir.
	PageScripts   []string
	ServerScripts []string
}

// Layout is one +layout.html in a route's ancestry.
type Layout struct {
	File          string
	ServerScripts []string
}

// Resolver maps request paths onto a routes directory.
type Resolver struct {
	fsys         fs.FS
	scriptPrefix string
}

// NewResolver returns a resolver over fsys. An empty scriptPrefix means
// DefaultScriptPrefix.
func NewResolver(fsys fs.FS, scriptPrefix string) *Resolver {
	if scriptPrefix == "" {
		scriptPrefix = DefaultScriptPrefix
	}
	return &Resolver{fsys: fsys, scriptPrefix: scriptPrefix}
}

// FS returns the routes filesystem.
func (r *Resolver) FS() fs.FS { return r.fsys }

// Resolve looks up urlPath. ok is false when the route has no content
// file; err is only set for filesystem failures other than absence.
func (r *Resolver) Resolve(urlPath string) (route *Route, ok bool, err error) {
	dir, cleaned := routeDir(urlPath)
	if !fs.ValidPath(dir) {
		return nil, false, nil
	}

	route = &Route{Path: cleaned, Dir: dir}

	content := path.Join(dir, IndexFile)
	found, err := r.exists(content)
	if err != nil {
		return nil, false, err
	}
	if !found {
		content = path.Join(dir, MarkdownFile)
		if found, err = r.exists(content); err != nil {
			return nil, false, err
		}
		route.Markdown = found
	}
	if !found {
		return nil, false, nil
	}
	route.Content = content

	if route.PageScripts, err = r.scripts(dir, pageScriptFiles); err != nil {
		return nil, false, err
	}
	if route.ServerScripts, err = r.scripts(dir, serverScriptFiles); err != nil {
		return nil, false, err
	}
	if route.Layouts, err = r.layouts(dir); err != nil {
		return nil, false, err
	}
	return route, true, nil
}

// layouts walks from dir up to and including the routes root.
func (r *Resolver) layouts(dir string) ([]Layout, error) {
	var out []Layout
	for depth := 0; depth < maxLayoutDepth; depth++ {
		file := path.Join(dir, LayoutFile)
		found, err := r.exists(file)
		if err != nil {
			return nil, err
		}
		if found {
			scripts, err := r.scripts(dir, layoutScriptFiles)
			if err != nil {
				return nil, err
			}
			out = append(out, Layout{File: file, ServerScripts: scripts})
		}

		if dir == "." {
			break
		}
		parent := path.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return out, nil
}

// scripts returns the URLs of the names present in dir, in names order.
func (r *Resolver) scripts(dir string, names []string) ([]string, error) {
	var urls []string
	for _, name := range names {
		found, err := r.exists(path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if found {
			urls = append(urls, path.Join(r.scriptPrefix, dir, name))
		}
	}
	return urls, nil
}

// exists reports whether name is a regular file. Absence is not an error.
func (r *Resolver) exists(name string) (bool, error) {
	return fileExists(r.fsys, name)
}

func fileExists(fsys fs.FS, name string) (bool, error) {
	info, err := fs.Stat(fsys, name)
	if isAbsent(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", name, err)
	}
	return !info.IsDir(), nil
}

// routeDir converts a URL path into an FS directory and the cleaned path.
// "/" maps to ".", "/blog/1/" to "blog/1".
func routeDir(urlPath string) (dir, cleaned string) {
	cleaned = path.Clean("/" + urlPath)
	dir = strings.TrimPrefix(cleaned, "/")
	if dir == "" {
		dir = "."
	}
	return dir, cleaned
}

// isAbsent reports whether err means the file is not there. A file standing
// where a directory is expected counts as absent too.
func isAbsent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
