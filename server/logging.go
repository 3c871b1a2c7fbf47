package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// RequestLogEntry is one line of the request log. The JSON format writes
// it as is; the text format keeps timestamp, method, path, status, size
// and duration.
type RequestLogEntry struct {
	Timestamp  string `json:"timestamp"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	Bytes      int64  `json:"bytes"`
	Duration   string `json:"duration"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
	UserAgent  string `json:"user_agent,omitempty"`
}

type requestLogger struct {
	next   http.Handler
	out    io.Writer
	asJSON bool
}

// newRequestLogger wraps next. Any format other than "json" logs text.
func newRequestLogger(next http.Handler, out io.Writer, format string) *requestLogger {
	return &requestLogger{next: next, out: out, asJSON: format == "json"}
}

// countingWriter records the first status and the bytes written.
type countingWriter struct {
	http.ResponseWriter
	status int
	n      int64
}

func (cw *countingWriter) WriteHeader(code int) {
	if cw.status == 0 {
		cw.status = code
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *countingWriter) Write(b []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	n, err := cw.ResponseWriter.Write(b)
	cw.n += int64(n)
	return n, err
}

func (cw *countingWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

func (rl *requestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/__livereload" || strings.HasPrefix(r.URL.Path, "/socket.io/") {
		rl.next.ServeHTTP(w, r)
		return
	}

	start := time.Now()
	cw := &countingWriter{ResponseWriter: w}
	rl.next.ServeHTTP(cw, r)
	elapsed := time.Since(start)

	status := cw.status
	if status == 0 {
		status = http.StatusOK
	}
	ip := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip = xff
	}

	rl.log(RequestLogEntry{
		Timestamp:  start.Format(time.RFC3339),
		Method:     r.Method,
		Path:       r.URL.Path,
		Status:     status,
		Bytes:      cw.n,
		Duration:   elapsed.String(),
		DurationMs: elapsed.Milliseconds(),
		ClientIP:   ip,
		UserAgent:  r.UserAgent(),
	})
}

func (rl *requestLogger) log(e RequestLogEntry) {
	if !rl.asJSON {
		fmt.Fprintf(rl.out, "%s %s %s %d %s %s\n",
			e.Timestamp, e.Method, e.Path, e.Status, humanize.Bytes(uint64(e.Bytes)), e.Duration)
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(rl.out, "%s\n", data)
}
