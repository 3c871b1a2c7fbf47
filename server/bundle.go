package server

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/evanw/esbuild/pkg/api"

	"github.com/jazelkit/jazelkit/config"
)

// routeEntryFiles are the route scripts compiled as separate entry points.
var routeEntryFiles = []string{
	"+page.ts", "+page.js",
	"+page.server.ts", "+page.server.js",
	"+layout.server.ts", "+layout.server.js",
}

// Bundler compiles the site's TypeScript and JavaScript into <assets>/src
// with esbuild. The build context is kept between builds and recreated
// only when the set of entry points changes.
type Bundler struct {
	mu        sync.Mutex
	rootDir   string
	outDir    string
	minify    bool
	sourcemap bool
	ctx       api.BuildContext
	entries   []string
	last      buildStats
}

type buildStats struct {
	files    int
	bytes    uint64
	duration time.Duration
}

// BuildError carries the messages of a failed build.
type BuildError struct {
	Messages []string
}

func (e *BuildError) Error() string {
	return strings.Join(e.Messages, "\n")
}

// NewBundler returns a bundler for the configured root and assets dirs.
func NewBundler(cfg *config.Config) *Bundler {
	return &Bundler{
		rootDir:   cfg.Root,
		outDir:    cfg.SourceDir(),
		minify:    cfg.Build.Minify,
		sourcemap: cfg.Build.Sourcemap,
	}
}

// Build rediscovers the entry points and compiles them.
func (b *Bundler) Build() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()

	entries, err := b.discoverEntries()
	if err != nil {
		return fmt.Errorf("discovering scripts: %w", err)
	}
	if len(entries) == 0 {
		b.dispose()
		b.last = buildStats{}
		return nil
	}

	if b.ctx == nil || !slices.Equal(entries, b.entries) {
		b.dispose()
		opts, err := b.options(entries)
		if err != nil {
			return err
		}
		ctx, ctxErr := api.Context(opts)
		if ctxErr != nil {
			return &BuildError{Messages: formatMessages(ctxErr.Errors)}
		}
		b.ctx = ctx
		b.entries = entries
	}

	result := b.ctx.Rebuild()
	if len(result.Errors) > 0 {
		return &BuildError{Messages: formatMessages(result.Errors)}
	}

	stats := buildStats{}
	for _, out := range result.OutputFiles {
		if err := os.MkdirAll(filepath.Dir(out.Path), 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
		if err := os.WriteFile(out.Path, out.Contents, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", out.Path, err)
		}
		stats.files++
		stats.bytes += uint64(len(out.Contents))
	}
	stats.duration = time.Since(start)
	b.last = stats

	return nil
}

// Summary describes the last successful build for the log.
func (b *Bundler) Summary() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last.files == 0 {
		return "no scripts to build"
	}
	return fmt.Sprintf("built %d files (%s) in %s",
		b.last.files, humanize.Bytes(b.last.bytes), b.last.duration.Round(time.Millisecond))
}

// Entries returns the entry points of the current build context.
func (b *Bundler) Entries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.entries)
}

// Close releases the esbuild context.
func (b *Bundler) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dispose()
}

func (b *Bundler) dispose() {
	if b.ctx != nil {
		b.ctx.Dispose()
		b.ctx = nil
	}
	b.entries = nil
}

func (b *Bundler) options(entries []string) (api.BuildOptions, error) {
	root, err := filepath.Abs(b.rootDir)
	if err != nil {
		return api.BuildOptions{}, err
	}
	out, err := filepath.Abs(b.outDir)
	if err != nil {
		return api.BuildOptions{}, err
	}

	sourcemap := api.SourceMapNone
	if b.sourcemap {
		sourcemap = api.SourceMapLinked
	}

	return api.BuildOptions{
		EntryPoints:       entries,
		Bundle:            true,
		Platform:          api.PlatformBrowser,
		Format:            api.FormatESModule,
		Outbase:           root,
		Outdir:            out,
		MinifyWhitespace:  b.minify,
		MinifyIdentifiers: b.minify,
		MinifySyntax:      b.minify,
		Sourcemap:         sourcemap,
		Write:             false,
		LogLevel:          api.LogLevelSilent,
	}, nil
}

// discoverEntries collects scripts/**/*.ts, the route scripts and
// modules/**/*.{ts,js}, each group in lexical order.
func (b *Bundler) discoverEntries() ([]string, error) {
	var entries []string

	groups := []struct {
		dir   string
		match func(name string) bool
	}{
		{
			dir:   filepath.Join(b.rootDir, "scripts"),
			match: func(name string) bool { return strings.HasSuffix(name, ".ts") && !strings.HasSuffix(name, ".d.ts") },
		},
		{
			dir:   filepath.Join(b.rootDir, "routes"),
			match: func(name string) bool { return slices.Contains(routeEntryFiles, name) },
		},
		{
			dir: filepath.Join(b.rootDir, "modules"),
			match: func(name string) bool {
				return (strings.HasSuffix(name, ".ts") && !strings.HasSuffix(name, ".d.ts")) || strings.HasSuffix(name, ".js")
			},
		},
	}

	for _, g := range groups {
		files, err := collectFiles(g.dir, g.match)
		if err != nil {
			return nil, err
		}
		entries = append(entries, files...)
	}
	return entries, nil
}

// collectFiles walks dir and returns the files whose name matches. A
// missing dir yields nothing.
func collectFiles(dir string, match func(string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && isNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if name == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if match(name) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}

// formatMessages renders esbuild messages as file:line:col: text.
func formatMessages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			out = append(out, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		out = append(out, m.Text)
	}
	return out
}
