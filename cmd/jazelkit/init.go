package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const initConfig = `# JazelKit configuration
# Generated by: jazelkit --init

host: localhost
port: 5173

root: ./src
assets: ./public
title: ${JAZELKIT_TITLE:-JazelKit App}

build:
  compile: true
  minify: true
  sourcemap: false

livereload: true

logging:
  level: info
  format: text
`

const initGitignore = `# Build output
public/src/

node_modules/
.DS_Store
`

const initLayout = `<!DOCTYPE html>
<html lang="en">
<head>
  <link rel="stylesheet" href="/css/site.css">
</head>
<body>
  <component name="header"></component>
  <main>
    <slot></slot>
  </main>
</body>
</html>
`

const initIndex = `<html>
<head>
  <title>Welcome</title>
</head>
<body>
  <h1>Hello from JazelKit</h1>
</body>
</html>
`

const init404 = `<h1>Page not found</h1>
<p><a href="/">Back home</a></p>
`

const initHeader = `<header><a href="/">Home</a></header>
`

const initMainScript = `console.log("JazelKit page:", pageData.pathname);

declare const pageData: { pathname: string };
`

const initCSS = `body {
  font-family: system-ui, sans-serif;
  margin: 2rem;
}
`

// runInitCommand scaffolds a new project in folder, which must not exist
// or be empty.
func runInitCommand(folder string, stdout, stderr io.Writer) error {
	absPath, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(absPath)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%s is a file, not a folder", folder)
	case err == nil:
		entries, err := os.ReadDir(absPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", folder, err)
		}
		if len(entries) > 0 {
			return fmt.Errorf("folder %s is not empty", folder)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("checking %s: %w", folder, err)
	}

	dirs := []string{
		"src/routes",
		"src/components",
		"src/scripts",
		"src/modules",
		"src/others/css",
		"public/assets",
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(absPath, filepath.FromSlash(dir)), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	files := []struct {
		name    string
		content string
	}{
		{"jazelkit.yaml", initConfig},
		{".gitignore", initGitignore},
		{"src/routes/+layout.html", initLayout},
		{"src/routes/+index.html", initIndex},
		{"src/routes/+404.html", init404},
		{"src/components/header.html", initHeader},
		{"src/scripts/main.ts", initMainScript},
		{"src/others/css/site.css", initCSS},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(absPath, filepath.FromSlash(f.name)), []byte(f.content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	fmt.Fprintf(stdout, "Created new JazelKit project in %s\n\n", folder)
	fmt.Fprintf(stdout, "To start the development server:\n")
	fmt.Fprintf(stdout, "  cd %s\n", folder)
	fmt.Fprintf(stdout, "  jazelkit\n\n")

	return nil
}
