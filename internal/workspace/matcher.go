package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

var (
	DefaultInclude = []string{"**/*.dat", "**/*.asset"}
	DefaultExclude = []string{"**/.git/**"}
)

// Matcher selects files below a workspace folder with include and exclude
// globs. Patterns use forward slashes and are matched against the path
// relative to the folder with a leading slash, so "**/*.dat" also matches
// files at the top of the folder.
type Matcher struct {
	include []glob.Glob
	exclude []glob.Glob
}

func NewMatcher(include, exclude []string) (*Matcher, error) {
	m := &Matcher{}
	var err error
	if m.include, err = compileAll(include); err != nil {
		return nil, err
	}
	if m.exclude, err = compileAll(exclude); err != nil {
		return nil, err
	}
	return m, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile glob %q: %w", pattern, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

func slashed(rel string) string {
	return "/" + filepath.ToSlash(rel)
}

// Matches reports whether the relative path rel is selected.
func (m *Matcher) Matches(rel string) bool {
	p := slashed(rel)
	for _, g := range m.exclude {
		if g.Match(p) {
			return false
		}
	}
	for _, g := range m.include {
		if g.Match(p) {
			return true
		}
	}
	return false
}

// MatchesUnder reports whether path is selected relative to root.
func (m *Matcher) MatchesUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return m.Matches(rel)
}

func (m *Matcher) excludesDir(rel string) bool {
	p := slashed(rel) + "/"
	for _, g := range m.exclude {
		if g.Match(p) {
			return true
		}
	}
	return false
}

// Match returns the relative paths of every selected file below root. A root
// that can't be read is an error; unreadable subdirectories are skipped.
func (m *Matcher) Match(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if m.excludesDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if m.Matches(rel) {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
