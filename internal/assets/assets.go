// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

//go:build !dev

// Package assets provides embedded static assets with content-hashed filenames.
package assets

import (
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed esbuild-meta.json
var metaData []byte

//go:embed static
var staticFS embed.FS

var cssPath, jsPath = ParseManifest(metaData)

// CSSPath returns the path to the main CSS file.
func CSSPath() string {
	return cssPath
}

// JSPath returns the path to the bundled JS file.
func JSPath() string {
	return jsPath
}

// FileServer returns an http.Handler that serves embedded static files
// relative to the static directory.
func FileServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("failed to create sub filesystem: " + err.Error())
	}
	return http.FileServer(http.FS(sub))
}

// ParseManifest extracts the hashed CSS and JS URLs from an esbuild metafile.
// Missing entries fall back to the unhashed files.
func ParseManifest(data []byte) (css, js string) {
	css, js = DefaultCSSPath, DefaultJSPath
	if len(data) == 0 {
		return css, js
	}

	var meta struct {
		Outputs map[string]json.RawMessage `json:"outputs"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		slog.Error("failed to parse esbuild meta", "error", err)
		return css, js
	}

	// internal/assets/static/css/styles.abc12345.css → /static/css/styles.abc12345.css
	for output := range meta.Outputs {
		idx := strings.Index(output, "/static/")
		if idx < 0 {
			continue
		}
		switch url := output[idx:]; {
		case strings.HasSuffix(url, ".css"):
			css = url
		case strings.HasSuffix(url, ".js"):
			js = url
		}
	}
	return css, js
}
