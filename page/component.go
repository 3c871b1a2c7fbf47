package page

import (
	"fmt"
	"io/fs"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ComponentResolver turns a component name into the nodes that replace its
// <component> reference. ok is false when no such component exists.
type ComponentResolver interface {
	Resolve(name string) (nodes []*html.Node, ok bool, err error)
}

// ComponentLoader resolves components from <name>.html files. Files are
// read on every call; nothing is cached.
type ComponentLoader struct {
	fsys fs.FS
}

// NewComponentLoader returns a loader reading from fsys. A nil fsys
// resolves nothing.
func NewComponentLoader(fsys fs.FS) *ComponentLoader {
	return &ComponentLoader{fsys: fsys}
}

// Resolve implements ComponentResolver.
func (l *ComponentLoader) Resolve(name string) ([]*html.Node, bool, error) {
	if l == nil || l.fsys == nil {
		return nil, false, nil
	}
	file := name + ".html"
	if !fs.ValidPath(file) || strings.Contains(name, "\\") {
		return nil, false, nil
	}

	found, err := fileExists(l.fsys, file)
	if err != nil || !found {
		return nil, false, err
	}
	b, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		return nil, false, fmt.Errorf("reading component %s: %w", file, err)
	}

	nodes, err := parseFragment(b)
	if err != nil {
		return nil, false, fmt.Errorf("parsing component %s: %w", file, err)
	}
	return nodes, true, nil
}

// parseFragment parses b as the inner HTML of a <body> and keeps the
// transplantable top-level nodes.
func parseFragment(b []byte) ([]*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(decode(b), context)
	if err != nil {
		return nil, err
	}

	out := nodes[:0]
	for _, n := range nodes {
		if transplantable(n) {
			out = append(out, n)
		}
	}
	return out, nil
}
