package utils

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"go.lsp.dev/uri"
)

const fileScheme = "file://"

// IsFileURI reports whether s is a file:// URI
func IsFileURI(s string) bool {
	return strings.HasPrefix(s, fileScheme)
}

// URIToFilePath converts a file:// URI to a file system path. Anything that
// is not a file URI is returned unchanged.
func URIToFilePath(s string) string {
	if !IsFileURI(s) {
		return s
	}

	u, err := url.Parse(s)
	if err != nil {
		return strings.TrimPrefix(s, fileScheme)
	}
	path := u.Path

	// file:///C:/path parses to /C:/path on Windows
	if runtime.GOOS == "windows" && len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path)
}

// FilePathToURI converts a file system path to a file:// URI
func FilePathToURI(path string) string {
	return string(uri.File(path))
}

// ResolveRelative returns the file system path that target names when read
// from the context of original. A file URI or absolute path stands alone; a
// bare relative reference is joined to original's directory.
func ResolveRelative(target, original string) string {
	if IsFileURI(target) {
		return URIToFilePath(target)
	}

	target = filepath.FromSlash(target)
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}

	base := ""
	if original != "" {
		base = filepath.Dir(URIToFilePath(original))
	}
	return filepath.Join(base, target)
}
