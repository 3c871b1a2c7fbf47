package page

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
)

// Options configures an Assembler.
type Options struct {
	// Title is the fallback page title (DefaultTitle when empty).
	Title string
	// MainScript is the site script URL (DefaultMainScript when empty).
	MainScript string
	// ScriptPrefix is the URL prefix of compiled route scripts
	// (DefaultScriptPrefix when empty).
	ScriptPrefix string
}

// Response is an assembled page ready to be written.
type Response struct {
	Status int
	Body   []byte
}

// Assembler builds complete pages from a routes tree and a components
// directory.
type Assembler struct {
	routes     fs.FS
	resolver   *Resolver
	composer   *Composer
	mainScript string
}

// NewAssembler returns an assembler over the given trees. components may be
// nil, in which case every <component> reference is dropped.
func NewAssembler(routes, components fs.FS, opts Options) *Assembler {
	mainScript := opts.MainScript
	if mainScript == "" {
		mainScript = DefaultMainScript
	}
	var resolver ComponentResolver
	if components != nil {
		resolver = NewComponentLoader(components)
	}
	return &Assembler{
		routes:   routes,
		resolver: NewResolver(routes, opts.ScriptPrefix),
		composer: &Composer{
			Title:      opts.Title,
			Components: resolver,
		},
		mainScript: mainScript,
	}
}

// Resolver returns the route resolver used by a.
func (a *Assembler) Resolver() *Resolver { return a.resolver }

// Assemble builds the response for ri. Missing routes produce a 404
// response, not an error; errors are filesystem or parse failures.
func (a *Assembler) Assemble(ctx context.Context, ri RequestInfo) (*Response, error) {
	route, ok, err := a.resolver.Resolve(ri.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return a.notFound(ri)
	}
	return a.page(ctx, route, ri)
}

func (a *Assembler) page(ctx context.Context, route *Route, ri RequestInfo) (*Response, error) {
	content, err := a.loadContent(route)
	if err != nil {
		return nil, err
	}

	var layoutScripts []string
	for _, l := range route.Layouts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layout, err := a.load(l.File)
		if err != nil {
			return nil, err
		}
		if err := a.composer.Compose(layout, content); err != nil {
			return nil, fmt.Errorf("composing %s: %w", l.File, err)
		}
		content = layout
		layoutScripts = append(layoutScripts, l.ServerScripts...)
	}

	if len(route.Layouts) == 0 {
		layout := newSyntheticLayout()
		if err := a.composer.Compose(layout, content); err != nil {
			return nil, fmt.Errorf("composing %s: %w", route.Content, err)
		}
		content = layout
	}

	scripts := make([]string, 0, len(layoutScripts)+len(route.PageScripts)+len(route.ServerScripts))
	scripts = append(scripts, layoutScripts...)
	scripts = append(scripts, route.PageScripts...)
	scripts = append(scripts, route.ServerScripts...)
	inject(content, ri, a.mainScript, scripts)

	return serialize(http.StatusOK, content)
}

// notFound composes +404.html into the top-level layout. A missing layout
// falls back to the synthetic one; a missing 404 page leaves the layout
// with its slot removed.
func (a *Assembler) notFound(ri RequestInfo) (*Response, error) {
	layout, err := a.loadOptional(LayoutFile)
	if err != nil {
		return nil, err
	}
	if layout == nil {
		layout = newSyntheticLayout()
	}
	content, err := a.loadOptional(NotFoundFile)
	if err != nil {
		return nil, err
	}

	if err := a.composer.Compose(layout, content); err != nil {
		return nil, fmt.Errorf("composing %s: %w", NotFoundFile, err)
	}
	inject(layout, ri, a.mainScript, nil)

	return serialize(http.StatusNotFound, layout)
}

func (a *Assembler) loadContent(route *Route) (*Document, error) {
	if !route.Markdown {
		return a.load(route.Content)
	}
	b, err := fs.ReadFile(a.routes, route.Content)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", route.Content, err)
	}
	doc, err := parseMarkdown(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", route.Content, err)
	}
	return doc, nil
}

// load reads and parses an HTML file from the routes tree.
func (a *Assembler) load(name string) (*Document, error) {
	b, err := fs.ReadFile(a.routes, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	doc, err := ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return doc, nil
}

// loadOptional is load returning a nil Document for absent files.
func (a *Assembler) loadOptional(name string) (*Document, error) {
	found, err := fileExists(a.routes, name)
	if err != nil || !found {
		return nil, err
	}
	return a.load(name)
}

func serialize(status int, doc *Document) (*Response, error) {
	body, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("rendering document: %w", err)
	}
	return &Response{Status: status, Body: body}, nil
}
