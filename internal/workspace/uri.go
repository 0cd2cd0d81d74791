package workspace

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

func HasFileScheme(value string) bool {
	return strings.HasPrefix(value, "file://")
}

func URIToPath(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "file" {
		return ""
	}
	path, err := url.PathUnescape(parsed.Path)
	if err != nil {
		return ""
	}
	if runtime.GOOS == "windows" {
		path = strings.TrimPrefix(path, "/")
	}
	return filepath.FromSlash(path)
}

func PathToURI(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	absPath = filepath.ToSlash(absPath)
	if !strings.HasPrefix(absPath, "/") {
		absPath = "/" + absPath
	}
	u := url.URL{
		Scheme: "file",
		Path:   absPath,
	}
	return u.String()
}

// CaseInsensitive reports whether paths on this platform compare without case.
func CaseInsensitive() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// NormalizePath returns the key identifying path on this platform.
func NormalizePath(path string) string {
	path = filepath.Clean(path)
	if CaseInsensitive() {
		path = strings.ToLower(path)
	}
	return path
}

// SamePath compares two paths the way the platform's file system does.
func SamePath(a, b string) bool {
	return NormalizePath(a) == NormalizePath(b)
}

// IsWithin reports whether path is dir or below it.
func IsWithin(dir, path string) bool {
	dir = NormalizePath(dir)
	path = NormalizePath(path)
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
