// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package verification

import "strings"

// SafeNextURL returns next if it is a same-origin relative path and "/"
// otherwise. Protocol-relative ("//host") and backslash ("/\host") forms are
// rejected since browsers resolve them to other hosts.
func SafeNextURL(next string) string {
	if !strings.HasPrefix(next, "/") {
		return "/"
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	return next
}
