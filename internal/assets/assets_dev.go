// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

//go:build dev

// Package assets serves static files from disk in development builds, so
// edits show up without recompiling.
package assets

import (
	"net/http"
)

// CSSPath returns the path to the main CSS file (unhashed in dev mode).
func CSSPath() string {
	return DefaultCSSPath
}

// JSPath returns the path to the bundled JS file (unhashed in dev mode).
func JSPath() string {
	return DefaultJSPath
}

// FileServer returns an http.Handler that serves static files from the filesystem.
func FileServer() http.Handler {
	return http.FileServer(http.Dir("internal/assets/static"))
}
