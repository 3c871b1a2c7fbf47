package page

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// errNoBody is returned when a parsed tree lacks the <head>/<body> pair the
// HTML parser normally synthesizes.
var errNoBody = errors.New("document has no head or body")

// Document is a parsed HTML page. Every Document belongs to exactly one
// request; nodes move between documents only as deep clones.
type Document struct {
	root *html.Node
	head *html.Node
	body *html.Node
}

// Parse reads a complete HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(b)
}

// ParseBytes parses b as a complete HTML document. Input that is not valid
// UTF-8 is decoded using the HTML charset sniffing rules first.
func ParseBytes(b []byte) (*Document, error) {
	root, err := html.Parse(decode(b))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return newDocument(root)
}

// ParseString is ParseBytes for string input.
func ParseString(s string) (*Document, error) {
	return ParseBytes([]byte(s))
}

func newDocument(root *html.Node) (*Document, error) {
	d := &Document{root: root}
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode || n.DataAtom != atom.Html {
			continue
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type != html.ElementNode:
			case c.DataAtom == atom.Head && d.head == nil:
				d.head = c
			case c.DataAtom == atom.Body && d.body == nil:
				d.body = c
			}
		}
	}
	if d.head == nil || d.body == nil {
		return nil, errNoBody
	}
	return d, nil
}

// decode returns a reader yielding b as UTF-8.
func decode(b []byte) io.Reader {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return bytes.NewReader(b)
	}
	enc, _, _ := charset.DetermineEncoding(b, "text/html")
	return transform.NewReader(bytes.NewReader(b), enc.NewDecoder())
}

// Head returns the document's <head> element.
func (d *Document) Head() *html.Node { return d.head }

// Body returns the document's <body> element.
func (d *Document) Body() *html.Node { return d.body }

// Find returns the first element named tag in document order, or nil.
func (d *Document) Find(tag string) *html.Node {
	return findFirst(d.root, tag)
}

// FindAll returns every element named tag in document order. The result is
// a snapshot: later mutations of the tree do not change it.
func (d *Document) FindAll(tag string) []*html.Node {
	return findAll(d.root, tag)
}

// CreateElement returns a detached element node.
func (d *Document) CreateElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
		Attr:     attrs,
	}
}

// Render serializes the whole document, doctype included.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// Bytes serializes the document into a byte slice.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String is Bytes for debugging and tests; render errors yield "".
func (d *Document) String() string {
	b, err := d.Bytes()
	if err != nil {
		return ""
	}
	return string(b)
}
