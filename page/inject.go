package page

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMainScript is the site-wide script included in every page.
const DefaultMainScript = "/src/scripts/main.js"

// RequestInfo is the request metadata exposed to client scripts.
type RequestInfo struct {
	Path     string // URL path, "/" when empty
	RawQuery string // query string without the leading "?"
	Host     string
	Protocol string // "http" or "https"
}

// Origin returns "<protocol>://<host>".
func (ri RequestInfo) Origin() string {
	return ri.Protocol + "://" + ri.Host
}

// RequestInfoFrom extracts RequestInfo from r.
func RequestInfoFrom(r *http.Request) RequestInfo {
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	p := r.URL.Path
	if p == "" {
		p = "/"
	}
	return RequestInfo{
		Path:     p,
		RawQuery: r.URL.RawQuery,
		Host:     r.Host,
		Protocol: proto,
	}
}

// inject appends the viewport and charset metas to the head, then the
// metadata script, the main script and one module script per entry of
// scripts to the body.
func inject(doc *Document, ri RequestInfo, mainScript string, scripts []string) {
	head, body := doc.Head(), doc.Body()

	head.AppendChild(newElement(atom.Meta,
		html.Attribute{Key: "name", Val: "viewport"},
		html.Attribute{Key: "content", Val: "width=device-width, initial-scale=1"},
	))
	head.AppendChild(newElement(atom.Meta, html.Attribute{Key: "charset", Val: "UTF-8"}))

	meta := newElement(atom.Script)
	setText(meta, metadataScript(ri))
	body.AppendChild(meta)

	body.AppendChild(newElement(atom.Script,
		html.Attribute{Key: "src", Val: mainScript},
		html.Attribute{Key: "async", Val: ""},
	))

	for _, src := range scripts {
		body.AppendChild(newElement(atom.Script,
			html.Attribute{Key: "type", Val: "module"},
			html.Attribute{Key: "src", Val: compiledScript(src)},
		))
	}
}

// metadataScript declares the page globals read by client code.
func metadataScript(ri RequestInfo) string {
	return fmt.Sprintf(`
    const pathname = %s;
    const search = %s;
    const host = %s;
    const origin = %s;
    var pageData = {
      pathname,
      search,
      host,
      origin
    };
  `, jsString(ri.Path), jsString(ri.RawQuery), jsString(ri.Host), jsString(ri.Origin()))
}

// jsString quotes s as a JavaScript string literal that is safe inside a
// <script> element.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// compiledScript maps a route script source path to its served artifact.
func compiledScript(src string) string {
	if base, ok := strings.CutSuffix(src, ".ts"); ok {
		return base + ".js"
	}
	return src
}
