package filepattern

import (
	"path"
	"strings"

	"shader-lsp/src/utils"
)

// Match reports whether a file path or file URI matches the glob pattern.
// Supported patterns:
// - "**/*" or "*": match all
// - standard glob wildcards (*, ?, [class]) within one segment
// - "**" spanning any number of directories (e.g. "**/secret/*.wgsl")
// - directory prefix with trailing slash (e.g. "vendor/")
// A pattern without a slash is matched against the basename only.
func Match(pathOrURI, pattern string) bool {
	if pattern == "" || pattern == "**/*" || pattern == "*" {
		return true
	}

	filePath := strings.ReplaceAll(utils.URIToFilePath(pathOrURI), "\\", "/")
	pattern = strings.ReplaceAll(pattern, "\\", "/")

	if strings.HasSuffix(pattern, "/") {
		dir := strings.TrimSuffix(pattern, "/")
		return hasSegmentSequence(splitSegments(path.Dir(filePath)), splitSegments(dir))
	}

	if !strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(filePath))
		return ok
	}

	segments := splitSegments(filePath)
	patternSegments := splitSegments(pattern)

	// Relative patterns may match any suffix of an absolute path
	if !strings.HasPrefix(pattern, "/") {
		for i := range segments {
			if matchSegments(segments[i:], patternSegments) {
				return true
			}
		}
		return false
	}
	return matchSegments(segments, patternSegments)
}

// MatchAny reports whether pathOrURI matches at least one pattern
func MatchAny(pathOrURI string, patterns []string) bool {
	for _, p := range patterns {
		if Match(pathOrURI, p) {
			return true
		}
	}
	return false
}

func splitSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			out = append(out, s)
		}
	}
	return out
}

func matchSegments(name, pattern []string) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(name); i++ {
			if matchSegments(name[i:], pattern[1:]) {
				return true
			}
		}
		return false
	}
	if len(name) == 0 {
		return false
	}
	if ok, _ := path.Match(pattern[0], name[0]); !ok {
		return false
	}
	return matchSegments(name[1:], pattern[1:])
}

func hasSegmentSequence(segments, seq []string) bool {
	if len(seq) == 0 {
		return true
	}
	for i := 0; i+len(seq) <= len(segments); i++ {
		if matchSegments(segments[i:i+len(seq)], seq) {
			return true
		}
	}
	return false
}
