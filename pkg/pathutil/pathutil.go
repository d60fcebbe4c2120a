// Package pathutil provides the pure string helpers used during location
// resolution: turning script URLs into local paths and computing paths
// relative to a profile root.
package pathutil

import (
	"net/url"
	"path/filepath"
	"strings"
)

// FromURL converts a file:// URL to a local filesystem path. Anything else
// (http URLs, bare paths, VM-internal names) is returned unchanged.
func FromURL(raw string) string {
	if !strings.HasPrefix(raw, "file://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	path := u.Path
	// Windows drive letters come out as /C:/..., strip the leading slash.
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	if path == "" {
		return raw
	}
	return filepath.FromSlash(path)
}

// Relative computes path relative to root. It reports false when the path
// does not live under the root or either argument is empty.
func Relative(root, path string) (string, bool) {
	if root == "" || path == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
