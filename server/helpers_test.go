package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jazelkit/jazelkit/config"
)

// syncBuffer is a bytes.Buffer safe for use from the watcher goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// writeFiles creates files below root. Keys use forward slashes.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

// testConfig returns a config rooted in a fresh temp dir holding files.
// The source root is <dir>/src and the assets dir is <dir>/public.
func testConfig(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)

	cfg := config.Defaults()
	cfg.BaseDir = dir
	cfg.Root = filepath.Join(dir, "src")
	cfg.Assets = filepath.Join(dir, "public")
	cfg.Build.Compile = false
	cfg.LiveReload = false
	cfg.Logging.Quiet = true
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *syncBuffer, *syncBuffer) {
	t.Helper()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	srv, err := New(cfg, "", "test", stdout, stderr)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, stdout, stderr
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

const testLayout = `<!DOCTYPE html>
<html>
<head><meta name="description" content="site"></head>
<body><div id="root"><slot></slot></div></body>
</html>`

func siteFiles() map[string]string {
	return map[string]string{
		"src/routes/+layout.html":      testLayout,
		"src/routes/+index.html":       `<h1>Home</h1>`,
		"src/routes/+404.html":         `<h1>Not here</h1>`,
		"src/routes/about/+index.html": `<html><head><title>About</title></head><body><p>about us</p></body></html>`,
		"src/routes/about/+page.ts":    `console.log("about")`,
		"src/components/nav.html":      `<nav>menu</nav>`,
		"src/routes/nav/+index.html":   `<component name="nav"></component>`,
	}
}

func assertContains(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Errorf("expected body to contain %q, got:\n%s", want, body)
	}
}
