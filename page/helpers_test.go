package page

import (
	"bytes"
	"io/fs"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := ParseString(s)
	if err != nil {
		t.Fatalf("ParseString(%q): %v", s, err)
	}
	return d
}

// inner renders the children of n.
func inner(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	return buf.String()
}

func titles(d *Document) []string {
	var out []string
	for _, n := range findAll(d.Head(), "title") {
		out = append(out, textContent(n))
	}
	return out
}

// moduleScripts returns the src of every <script type="module"> in order.
func moduleScripts(d *Document) []string {
	var out []string
	for _, s := range d.FindAll("script") {
		if typ, _ := getAttr(s, "type"); typ != "module" {
			continue
		}
		src, _ := getAttr(s, "src")
		out = append(out, src)
	}
	return out
}

// permFS fails every access to one path with fs.ErrPermission.
type permFS struct {
	fs.FS
	deny string
}

func (p permFS) Open(name string) (fs.File, error) {
	if name == p.deny || strings.HasPrefix(name, p.deny+"/") {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return p.FS.Open(name)
}
