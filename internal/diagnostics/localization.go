package diagnostics

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
	"github.com/DanielWillett/unturned-dat-language-server/internal/workspace"
)

// localizationsOf finds the localization files next to an asset. Siblings are
// read without taking their locks, so a localization file analyzing against
// this asset can't deadlock with it. A directory that can't be read has no
// localizations.
func (r *Registry) localizationsOf(assetPath string) []*FileState {
	dir := filepath.Dir(assetPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.log.Debug("localization scan failed", "dir", dir, "error", err)
		return nil
	}

	var out []*FileState
	english := -1
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".dat") {
			continue
		}
		first, _ := utf8.DecodeRuneInString(name)
		if !unicode.IsUpper(first) {
			continue
		}
		path := filepath.Join(dir, name)
		if workspace.SamePath(path, assetPath) {
			continue
		}
		info := ClassifyPath(path)
		if info.Kind != source.FileLocalization {
			continue
		}
		state := r.GetOrCreate(path)
		tree := state.peekTree(path, info)
		if tree == nil || !tree.IsLocalization() {
			continue
		}
		if english < 0 && tree.Language() == source.DefaultLanguage {
			english = len(out)
		}
		out = append(out, state)
	}

	if english > 0 {
		first := out[english]
		copy(out[1:english+1], out[:english])
		out[0] = first
	}
	return out
}
