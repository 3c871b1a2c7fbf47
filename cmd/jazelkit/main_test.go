package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

func noEnv(string) string { return "" }

func TestRunVersion(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"--version"}, stdout, stderr, noEnv)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "jazelkit version dev (unknown)") {
		t.Errorf("expected version output, got %q", output)
	}
}

func TestRunHelp(t *testing.T) {
	for _, arg := range []string{"--help", "-h"} {
		t.Run(arg, func(t *testing.T) {
			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}

			err := run(context.Background(), []string{arg}, stdout, stderr, noEnv)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			output := stdout.String()
			if !strings.Contains(output, "jazelkit - A development server") {
				t.Errorf("expected help output, got %q", output)
			}
			for _, flag := range []string{"--config", "--port", "--quiet", "--init"} {
				if !strings.Contains(output, flag) {
					t.Errorf("expected %s in help, got %q", flag, output)
				}
			}
		})
	}
}

func TestRunInvalidFlag(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"--invalid-flag"}, stdout, stderr, noEnv)
	if err == nil {
		t.Error("expected error for invalid flag")
	}
	if !strings.Contains(stderr.String(), "Usage:") {
		t.Errorf("expected usage on stderr, got %q", stderr.String())
	}
}

func TestRunMissingConfig(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"--config", "/nonexistent/jazelkit.yaml"}, stdout, stderr, noEnv)
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("expected loading config error, got %q", err.Error())
	}
}

func TestRunInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jazelkit.yaml")
	if err := os.WriteFile(path, []byte("port: 70000\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	err := run(context.Background(), []string{"--config", path}, &bytes.Buffer{}, &bytes.Buffer{}, noEnv)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "invalid port: 70000") {
		t.Errorf("expected port validation error, got %q", err.Error())
	}
}

func TestRunPortOverrideValidated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jazelkit.yaml")
	if err := os.WriteFile(path, []byte("port: 5173\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	err := run(context.Background(), []string{"--config", path, "--port", "-1"}, &bytes.Buffer{}, &bytes.Buffer{}, noEnv)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "config validation") {
		t.Errorf("expected config validation error, got %q", err.Error())
	}
}

func TestRunServesUntilCanceled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to pick a port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	dir := t.TempDir()
	if err := runInitCommand(filepath.Join(dir, "site"), &bytes.Buffer{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("runInitCommand failed: %v", err)
	}
	path := filepath.Join(dir, "site", "jazelkit.yaml")
	cfg := "host: 127.0.0.1\nbuild:\n  compile: false\nlivereload: false\n"
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stdout := &bytes.Buffer{}
	args := []string{"--config", path, "--port", fmt.Sprint(port), "--quiet"}
	if err := run(ctx, args, stdout, &bytes.Buffer{}, noEnv); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if !strings.Contains(stdout.String(), "Local:") {
		t.Errorf("expected startup banner, got %q", stdout.String())
	}
}

func TestHandleRebuildSignals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	rebuilt := make(chan struct{}, 1)
	stdout := &bytes.Buffer{}

	done := make(chan struct{})
	go func() {
		handleRebuildSignals(ctx, sig, stdout, func() { rebuilt <- struct{}{} })
		close(done)
	}()

	sig <- syscall.SIGHUP
	select {
	case <-rebuilt:
	case <-time.After(5 * time.Second):
		t.Fatal("SIGHUP did not trigger a rebuild")
	}
	if !strings.Contains(stdout.String(), "rebuilding scripts") {
		t.Errorf("expected rebuild message, got %q", stdout.String())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("signal handler kept running after cancel")
	}
}
