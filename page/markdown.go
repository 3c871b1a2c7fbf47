package page

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	mdhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html/atom"
	"gopkg.in/yaml.v3"
)

// frontmatter is the YAML block at the top of a markdown page.
type frontmatter struct {
	Title string `yaml:"title"`
}

// parseMarkdown renders a +index.md page into a Document. A frontmatter
// title is placed in a <template> so it wins over layout titles the same
// way a template in an HTML page does.
func parseMarkdown(src []byte) (*Document, error) {
	fm, body := splitFrontmatter(bytes.TrimPrefix(src, utf8BOM))

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(mdhtml.WithUnsafe()),
	)
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html><html><head></head><body>")
	if err := md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	buf.WriteString("</body></html>")

	doc, err := ParseBytes(buf.Bytes())
	if err != nil {
		return nil, err
	}
	if fm.Title != "" {
		tmpl := newElement(atom.Template)
		title := newElement(atom.Title)
		setText(title, fm.Title)
		tmpl.AppendChild(title)
		doc.Head().AppendChild(tmpl)
	}
	return doc, nil
}

// splitFrontmatter separates a leading "---" delimited YAML block from the
// markdown body. Missing delimiters or invalid YAML leave src untouched.
func splitFrontmatter(src []byte) (frontmatter, []byte) {
	var fm frontmatter

	first, rest, ok := cutLine(src)
	if !ok || string(bytes.TrimSpace(first)) != "---" {
		return fm, src
	}

	var block []byte
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = cutLine(rest)
		if string(bytes.TrimSpace(line)) == "---" {
			if err := yaml.Unmarshal(block, &fm); err != nil {
				return frontmatter{}, src
			}
			return fm, rest
		}
		block = append(block, line...)
		block = append(block, '\n')
	}
	return frontmatter{}, src
}

// cutLine splits b after the first newline. ok is false if b has none.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	line, rest, ok = bytes.Cut(b, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, ok
}
