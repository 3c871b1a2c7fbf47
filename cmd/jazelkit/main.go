package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jazelkit/jazelkit/config"
	"github.com/jazelkit/jazelkit/server"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"     // -X main.Version=$(git describe --tags --always)
	Commit  = "unknown" // -X main.Commit=$(git rev-parse --short HEAD)
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("jazelkit", flag.ContinueOnError)
	flags.SetOutput(io.Discard) // Suppress default -h output

	var (
		configPath  = flags.String("config", "", "Path to config file")
		port        = flags.Int("port", 0, "Override listen port")
		quietMode   = flags.Bool("quiet", false, "Suppress request logs (sets log level to error)")
		initFolder  = flags.String("init", "", "Create a new JazelKit project in the specified folder")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	if err := flags.Parse(args); err != nil {
		// Handle -h/--help: flag package returns ErrHelp
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		printUsage(stderr)
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}

	if *showVersion {
		fmt.Fprintf(stdout, "jazelkit version %s (%s)\n", Version, Commit)
		return nil
	}

	if *initFolder != "" {
		return runInitCommand(*initFolder, stdout, stderr)
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configFile, err := config.LoadWithPath(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Apply CLI overrides
	if *quietMode || cfg.Logging.Quiet {
		cfg.Logging.Level = "error"
	}
	if *port != 0 {
		cfg.Port = *port
	}

	// Full validation after CLI overrides applied
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	srv, err := server.New(cfg, configFile, Version, stdout, stderr)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// SIGHUP forces a script rebuild without a file change
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go handleRebuildSignals(ctx, sighup, stdout, srv.RebuildScripts)

	return srv.Run(ctx)
}

// handleRebuildSignals calls rebuild for every signal on sig until ctx is done.
func handleRebuildSignals(ctx context.Context, sig <-chan os.Signal, stdout io.Writer, rebuild func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			fmt.Fprintf(stdout, "Received SIGHUP - rebuilding scripts...\n")
			rebuild()
		}
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `jazelkit - A development server for composed HTML pages

Usage:
  jazelkit [options]

Options:
  --config PATH      Path to config file (default: auto-detect)
  --port PORT        Override listen port
  --quiet            Suppress request logs (sets log level to error)
  --init FOLDER      Create a new JazelKit project in the specified folder
  --version          Show version
  --help             Show this help

Config Resolution:
  1. --config flag
  2. JAZELKIT_CONFIG environment variable
  3. ./jazelkit.yaml
  4. built-in defaults

Signals:
  SIGHUP           Rebuild scripts
  SIGINT/SIGTERM   Graceful shutdown

Examples:
  jazelkit                       Start with auto-detected config
  jazelkit --port 3000           Serve on port 3000
  jazelkit --config site.yaml    Use specific config file
  jazelkit --init mysite         Create a new project in ./mysite

`)
}
