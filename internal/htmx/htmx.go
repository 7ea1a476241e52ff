// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package htmx reads htmx request headers and writes htmx responses.
package htmx

import (
	"net/http"
)

// Request headers.
const (
	HeaderRequest        = "HX-Request"
	HeaderBoosted        = "HX-Boosted"
	HeaderCurrentURL     = "HX-Current-URL"
	HeaderHistoryRestore = "HX-History-Restore-Request"
	HeaderTarget         = "HX-Target"
)

// Response headers.
const (
	HeaderRedirect = "HX-Redirect"
)

// Request describes the htmx headers of a request.
type Request struct { //nolint:govet // fieldalignment not critical
	IsHtmx           bool
	IsBoosted        bool
	IsHistoryRestore bool
	CurrentURL       string
	Target           string
}

// ParseRequest extracts htmx information from request headers.
func ParseRequest(r *http.Request) *Request {
	return &Request{
		IsHtmx:           r.Header.Get(HeaderRequest) == "true",
		IsBoosted:        r.Header.Get(HeaderBoosted) == "true",
		IsHistoryRestore: r.Header.Get(HeaderHistoryRestore) == "true",
		CurrentURL:       r.Header.Get(HeaderCurrentURL),
		Target:           r.Header.Get(HeaderTarget),
	}
}

// WantsFragment reports whether the request should be answered with a page
// fragment. Boosted navigation and history restores need the full page.
func (r *Request) WantsFragment() bool {
	return r != nil && r.IsHtmx && !r.IsBoosted && !r.IsHistoryRestore
}

// Vary marks a response as depending on the htmx request headers, so caches
// keep fragments and full pages apart.
func Vary(w http.ResponseWriter) {
	w.Header().Add("Vary", HeaderRequest)
}

// Redirect sends the client to url. htmx requests get an HX-Redirect header
// with an empty 200 response so htmx performs a full page navigation, other
// requests a 303 See Other.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	if r.Header.Get(HeaderRequest) == "true" {
		w.Header().Set(HeaderRedirect, url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
