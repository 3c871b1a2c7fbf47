package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zishang520/socket.io/v2/socket"
)

// Module extends the dev server with a socket.io namespace, HTTP
// middleware, or both. Modules are registered before Run.
type Module struct {
	Name string

	// SocketPath is the socket.io namespace, such as "/chat".
	SocketPath string
	Socket     func(ns socket.Namespace)

	Middleware func(http.Handler) http.Handler
}

var errServerRunning = errors.New("server is already running")

// RegisterModule adds m to the server. The first module with a socket
// handler mounts the socket.io endpoint at /socket.io/.
func (s *Server) RegisterModule(m Module) error {
	if s.running {
		return fmt.Errorf("registering module %q: %w", m.Name, errServerRunning)
	}
	if m.Socket != nil {
		if !strings.HasPrefix(m.SocketPath, "/") {
			return fmt.Errorf("module %q: socket path %q must start with /", m.Name, m.SocketPath)
		}
		if s.io == nil {
			s.io = socket.NewServer(nil, nil)
			s.mux.Handle("/socket.io/", s.io.ServeHandler(nil))
		}
		m.Socket(s.io.Of(m.SocketPath, nil))
		s.logInfo("module %s: socket namespace %s", m.Name, m.SocketPath)
	}
	s.modules = append(s.modules, m)
	return nil
}

// Modules returns the names of the registered modules in order.
func (s *Server) Modules() []string {
	names := make([]string, 0, len(s.modules))
	for _, m := range s.modules {
		names = append(names, m.Name)
	}
	return names
}
