package diagnostics

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
	"github.com/DanielWillett/unturned-dat-language-server/internal/workspace"
)

// FileTypeInfo is what a file's path says about it.
type FileTypeInfo struct {
	Kind source.FileKind
	// AssetPath is the companion asset of a localization file, if one exists.
	AssetPath string
	Language  string
}

// Options are the parser options for a file of this type.
func (i FileTypeInfo) Options(path string) source.Options {
	return source.Options{Path: path, Kind: i.Kind, Language: i.Language}
}

// ClassifyPath decides how a file is read. A .dat file named after a language
// is a localization file; any other .dat or .asset file is an asset.
func ClassifyPath(path string) FileTypeInfo {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asset":
		return FileTypeInfo{Kind: source.FileAsset}
	case ".dat":
		if lang, ok := source.LanguageOf(path); ok {
			return FileTypeInfo{
				Kind:      source.FileLocalization,
				AssetPath: companionAsset(path),
				Language:  lang,
			}
		}
		return FileTypeInfo{Kind: source.FileAsset}
	default:
		return FileTypeInfo{Kind: source.FileOther}
	}
}

// companionAsset finds the asset a localization file belongs to: the file
// named after its directory, or Asset.dat.
func companionAsset(path string) string {
	dir := filepath.Dir(path)
	name := filepath.Base(dir)
	candidates := []string{
		filepath.Join(dir, name+".dat"),
		filepath.Join(dir, "Asset.dat"),
		filepath.Join(dir, name+".asset"),
	}
	for _, candidate := range candidates {
		if workspace.SamePath(candidate, path) {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
