package page

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultTitle is the page title used when neither the content nor the
// configuration supplies one.
const DefaultTitle = "JazelKit App"

// Composer merges content documents into layout documents.
type Composer struct {
	// Title is the fallback <title> text. Empty means DefaultTitle.
	Title string
	// Components resolves <component name="..."> references. Nil removes
	// every reference.
	Components ComponentResolver
}

func (c *Composer) title() string {
	if c.Title != "" {
		return c.Title
	}
	return DefaultTitle
}

// Compose merges content into layout, mutating layout in place. content is
// only read, except that its <template> element (if any) is removed.
//
// A nil content removes the layout's <slot> and nothing else.
func (c *Composer) Compose(layout, content *Document) error {
	if content == nil {
		if slot := layout.Find("slot"); slot != nil {
			removeNode(slot)
		}
		return nil
	}

	head := layout.Head()
	for _, t := range findAll(head, "title") {
		removeNode(t)
	}

	// A template replaces the content head entirely.
	if tmpl := content.Find("template"); tmpl != nil {
		appendNodes(head, importNodes(children(tmpl)))
		removeNode(tmpl)
	} else {
		appendNodes(head, importNodes(children(content.Head())))
	}

	titles := findAll(head, "title")
	for _, extra := range titles[min(len(titles), 1):] {
		removeNode(extra)
	}
	if len(titles) == 0 {
		t := layout.CreateElement("title")
		setText(t, c.title())
		head.AppendChild(t)
	}

	if slot := layout.Find("slot"); slot != nil {
		replaceNode(slot, importNodes(children(content.Body())))
	}

	return c.expandComponents(layout)
}

// expandComponents replaces every <component> present in doc right now.
// Components inserted by this pass are not expanded again.
func (c *Composer) expandComponents(doc *Document) error {
	for _, ref := range doc.FindAll("component") {
		name, _ := getAttr(ref, "name")
		if name == "" || c.Components == nil {
			removeNode(ref)
			continue
		}

		nodes, ok, err := c.Components.Resolve(name)
		if err != nil {
			return fmt.Errorf("component %q: %w", name, err)
		}
		if !ok {
			removeNode(ref)
			continue
		}
		replaceNode(ref, importNodes(nodes))
	}
	return nil
}

// syntheticLayout is the layout used when a route has no +layout.html in
// its ancestry.
const syntheticLayout = `<!DOCTYPE html><html><body><slot /></body></html>`

func newSyntheticLayout() *Document {
	d, err := ParseString(syntheticLayout)
	if err != nil {
		// The parser always yields head and body for this input.
		panic(err)
	}
	return d
}

// newElement is CreateElement for code that has no Document at hand.
func newElement(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}
