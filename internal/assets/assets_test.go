// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

//go:build !dev

package assets_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/courses/internal/assets"
	"github.com/stretchr/testify/assert"
)

func TestParseManifest(t *testing.T) {
	data := []byte(`{"outputs": {
		"internal/assets/static/css/styles.d073ff63.css": {},
		"internal/assets/static/js/app.4b1c9e2a.js": {},
		"internal/assets/static/js/app.4b1c9e2a.js.map": {}
	}}`)

	css, js := assets.ParseManifest(data)

	assert.Equal(t, "/static/css/styles.d073ff63.css", css)
	assert.Equal(t, "/static/js/app.4b1c9e2a.js", js)
}

func TestParseManifest_Fallback(t *testing.T) {
	for _, data := range [][]byte{nil, []byte(`{}`), []byte(`not json`), []byte(`{"outputs":{"elsewhere/app.js":{}}}`)} {
		css, js := assets.ParseManifest(data)

		assert.Equal(t, assets.DefaultCSSPath, css)
		assert.Equal(t, assets.DefaultJSPath, js)
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, assets.DefaultCSSPath, assets.CSSPath())
	assert.Equal(t, assets.DefaultJSPath, assets.JSPath())
}

func TestFileServer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/css/styles.css", nil)
	rec := httptest.NewRecorder()

	assets.FileServer().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".flash-error")
}
