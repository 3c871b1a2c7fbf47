package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLoggerText(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "text")

	req := httptest.NewRequest("GET", "/test/path", nil)
	rec := httptest.NewRecorder()
	logger.ServeHTTP(rec, req)

	fields := strings.Fields(buf.String())
	// timestamp method path status size unit duration
	if len(fields) != 7 {
		t.Fatalf("unexpected log line %q", buf.String())
	}
	if fields[1] != "GET" || fields[2] != "/test/path" || fields[3] != "200" {
		t.Errorf("unexpected log line %q", buf.String())
	}
	if fields[4]+" "+fields[5] != "2 B" {
		t.Errorf("expected size 2 B, got %q", fields[4]+" "+fields[5])
	}
}

func TestRequestLoggerJSON(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("Created"))
	})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "json")

	req := httptest.NewRequest("POST", "/api/users", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	logger.ServeHTTP(rec, req)

	var entry RequestLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}

	if entry.Method != "POST" {
		t.Errorf("expected method POST, got %s", entry.Method)
	}
	if entry.Path != "/api/users" {
		t.Errorf("expected path /api/users, got %s", entry.Path)
	}
	if entry.Status != 201 {
		t.Errorf("expected status 201, got %d", entry.Status)
	}
	if entry.Bytes != 7 {
		t.Errorf("expected 7 bytes, got %d", entry.Bytes)
	}
	if entry.UserAgent != "test-agent" {
		t.Errorf("expected user-agent test-agent, got %s", entry.UserAgent)
	}
	if entry.Timestamp == "" {
		t.Error("timestamp should not be empty")
	}
	if entry.DurationMs < 0 {
		t.Error("duration_ms should be non-negative")
	}
}

func TestRequestLoggerDefaultStatus(t *testing.T) {
	// Handler writes nothing
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "")
	logger.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !strings.Contains(buf.String(), " GET / 200 0 B ") {
		t.Errorf("expected implicit 200 with 0 B, got %q", buf.String())
	}
}

func TestRequestLoggerForwardedFor(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "json")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	logger.ServeHTTP(httptest.NewRecorder(), req)

	var entry RequestLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}
	if entry.ClientIP != "10.0.0.1" {
		t.Errorf("expected client IP from X-Forwarded-For, got %s", entry.ClientIP)
	}
}

func TestRequestLoggerSkipsPolling(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "text")

	for _, path := range []string{"/__livereload", "/socket.io/?EIO=4&transport=polling"} {
		logger.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}
	if buf.Len() != 0 {
		t.Errorf("polling requests should not be logged, got %q", buf.String())
	}
}

func TestRequestLoggerFlush(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chunk"))
		if err := http.NewResponseController(w).Flush(); err != nil {
			t.Errorf("Flush() error: %v", err)
		}
	})

	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	newRequestLogger(handler, &buf, "text").ServeHTTP(rec, httptest.NewRequest("GET", "/stream", nil))

	if !rec.Flushed {
		t.Error("flush did not reach the underlying writer")
	}
	if !strings.Contains(buf.String(), " GET /stream 200 5 B ") {
		t.Errorf("unexpected log line %q", buf.String())
	}
}
