package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/zishang520/socket.io/v2/socket"

	"github.com/jazelkit/jazelkit/config"
	"github.com/jazelkit/jazelkit/page"
)

// maxPortAttempts is how many consecutive ports Run tries before giving up.
const maxPortAttempts = 10

// Server represents a JazelKit development server instance.
type Server struct {
	config     *config.Config
	configPath string
	version    string
	stdout     io.Writer
	stderr     io.Writer
	mux        *http.ServeMux
	server     *http.Server
	assembler  *page.Assembler
	bundler    *Bundler
	watcher    *Watcher
	io         *socket.Server
	modules    []Module
	running    bool
}

// New creates a new JazelKit server with the given configuration.
func New(cfg *config.Config, configPath, version string, stdout, stderr io.Writer) (*Server, error) {
	s := &Server{
		config:     cfg,
		configPath: configPath,
		version:    version,
		stdout:     stdout,
		stderr:     stderr,
		mux:        http.NewServeMux(),
		bundler:    NewBundler(cfg),
	}

	s.assembler = page.NewAssembler(
		os.DirFS(cfg.RoutesDir()),
		os.DirFS(cfg.ComponentsDir()),
		page.Options{Title: cfg.Title},
	)

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures the HTTP mux with static mounts and the page handler.
func (s *Server) setupRoutes() error {
	if s.config.LiveReload {
		s.mux.Handle("/__livereload", newLiveReloadHandler(s))
	}

	if err := s.setupStatic(); err != nil {
		return err
	}

	s.mux.Handle("/", newPageHandler(s, s.assembler))
	return nil
}

// Handler returns the complete handler chain: module middleware around the
// mux, then live reload injection, then request logging.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux

	// Registered first runs outermost
	for i := len(s.modules) - 1; i >= 0; i-- {
		if mw := s.modules[i].Middleware; mw != nil {
			handler = mw(handler)
		}
	}

	if s.config.LiveReload {
		handler = injectLiveReload(handler)
	}

	if s.config.Logging.Level != "error" && !s.config.Logging.Quiet {
		handler = newRequestLogger(handler, s.stdout, s.config.Logging.Format)
	}

	return handler
}

// Run builds scripts, starts the watcher and serves until the context is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.running = true
	defer s.bundler.Close()

	s.RebuildScripts()

	if s.config.LiveReload {
		watcher, err := NewWatcher(s, s.configPath, s.stdout, s.stderr)
		if err != nil {
			s.logError("failed to create watcher: %v", err)
		} else {
			s.watcher = watcher
			if err := s.watcher.Start(ctx); err != nil {
				s.logError("failed to start watcher: %v", err)
			}
			defer s.watcher.Close()
		}
	}

	ln, err := s.listen()
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	s.printBanner(ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintf(s.stdout, "\nShutting down gracefully...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if s.io != nil {
			s.io.Close(nil)
		}
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// RebuildScripts compiles the site scripts unless build.compile is off.
// Build failures are logged; the server keeps serving the last output.
func (s *Server) RebuildScripts() {
	if !s.config.Build.Compile {
		return
	}
	if err := s.bundler.Build(); err != nil {
		s.logError("script build failed: %v", err)
		return
	}
	s.logInfo("%s", s.bundler.Summary())
}

// listen binds the configured port, moving to the next one while the port
// is taken. A permission error is fatal.
func (s *Server) listen() (net.Listener, error) {
	port := s.config.Port
	for attempt := 0; attempt < maxPortAttempts; attempt++ {
		ln, err := net.Listen("tcp", s.config.Addr(port))
		switch {
		case err == nil:
			return ln, nil
		case errors.Is(err, syscall.EADDRINUSE):
			s.logWarn("port %d is already in use, trying %d", port, port+1)
			port++
		case errors.Is(err, syscall.EACCES):
			return nil, fmt.Errorf("no permission for port %d: %w", port, err)
		default:
			return nil, fmt.Errorf("listening on %s: %w", s.config.Addr(port), err)
		}
	}
	return nil, fmt.Errorf("no free port in %d-%d", s.config.Port, port-1)
}

func (s *Server) printBanner(addr net.Addr) {
	host := s.config.Host
	if host == "" {
		host = "localhost"
	}
	port := s.config.Port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}

	title := color.New(color.FgGreen, color.OpBold).Sprint("JazelKit")
	fmt.Fprintf(s.stdout, "\n  %s %s\n\n", title, color.FgGreen.Sprint(s.version))
	fmt.Fprintf(s.stdout, "  ➜  Local:   http://%s/\n\n", net.JoinHostPort(host, fmt.Sprint(port)))
}

// logInfo logs an informational message
func (s *Server) logInfo(format string, args ...any) {
	fmt.Fprintf(s.stdout, "[INFO] "+format+"\n", args...)
}

// logWarn logs a warning message
func (s *Server) logWarn(format string, args ...any) {
	fmt.Fprintf(s.stderr, "[WARN] "+format+"\n", args...)
}

// logError logs an error message
func (s *Server) logError(format string, args ...any) {
	fmt.Fprintf(s.stderr, "[ERROR] "+format+"\n", args...)
}
