package config

import (
	"net"
	"path/filepath"
	"strconv"
	"strings"
)

// Config represents the complete JazelKit configuration
type Config struct {
	BaseDir    string            `yaml:"-"` // Directory containing config file, for resolving relative paths
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	Root       string            `yaml:"root"`   // Source tree: routes/, components/, scripts/, modules/, others/
	Assets     string            `yaml:"assets"` // Public tree: compiled scripts land in <assets>/src
	Title      string            `yaml:"title"`  // Fallback page title
	Build      BuildConfig       `yaml:"build"`
	Paths      map[string]string `yaml:"paths"` // Extra static mounts, URL prefix -> directory
	LiveReload bool              `yaml:"livereload"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// BuildConfig controls the script bundler
type BuildConfig struct {
	Compile   bool `yaml:"compile"`   // Bundle scripts at startup and on change
	Minify    bool `yaml:"minify"`    // Minify bundled output
	Sourcemap bool `yaml:"sourcemap"` // Write linked source maps
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Quiet  bool   `yaml:"quiet"`  // suppress request logs
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Host:   "localhost",
		Port:   5173,
		Root:   "./src",
		Assets: "./public",
		Title:  "JazelKit App",
		Build: BuildConfig{
			Compile: true,
			Minify:  true,
		},
		LiveReload: true,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Addr returns the listen address for the given port.
func (c *Config) Addr(port int) string {
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// RoutesDir holds +index.html, +layout.html and route scripts.
func (c *Config) RoutesDir() string { return filepath.Join(c.Root, "routes") }

// ComponentsDir holds <name>.html component files.
func (c *Config) ComponentsDir() string { return filepath.Join(c.Root, "components") }

// ScriptsDir holds site scripts such as main.ts.
func (c *Config) ScriptsDir() string { return filepath.Join(c.Root, "scripts") }

// ModulesDir holds module client scripts.
func (c *Config) ModulesDir() string { return filepath.Join(c.Root, "modules") }

// CSSDir is served under /css.
func (c *Config) CSSDir() string { return filepath.Join(c.Root, "others", "css") }

// SourceDir receives compiled scripts and is served under /src.
func (c *Config) SourceDir() string { return filepath.Join(c.Assets, "src") }

// StaticDir is served under /assets.
func (c *Config) StaticDir() string { return filepath.Join(c.Assets, "assets") }

// ExpandPath resolves a paths: target. The placeholders $assets, $src and
// $root expand to the configured directories; other relative paths are
// taken relative to BaseDir.
func (c *Config) ExpandPath(p string) string {
	r := strings.NewReplacer(
		"$assets", c.Assets,
		"$src", c.SourceDir(),
		"$root", c.Root,
	)
	p = r.Replace(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.BaseDir, p)
	}
	return filepath.Clean(p)
}
