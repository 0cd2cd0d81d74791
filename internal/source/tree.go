package source

import (
	"path/filepath"
	"strings"
	"sync"
)

type FileKind uint8

const (
	FileOther FileKind = iota
	FileAsset
	FileLocalization
)

func (k FileKind) String() string {
	switch k {
	case FileAsset:
		return "asset"
	case FileLocalization:
		return "localization"
	default:
		return "other"
	}
}

// Options describe how a file's root is interpreted.
type Options struct {
	Path string
	Kind FileKind
	// Language is derived from Path for localization files when empty.
	Language string
}

// Tree owns the nodes of one parsed file. Readers hold Sync().RLock while
// inspecting nodes and writers hold Sync().Lock while replacing the root.
type Tree struct {
	mu       sync.RWMutex
	path     string
	kind     FileKind
	language string

	root     *Dictionary
	metadata *Dictionary
	asset    *Dictionary
}

func newTree(opts Options) *Tree {
	t := &Tree{
		path: opts.Path,
		kind: opts.Kind,
	}
	if opts.Kind == FileLocalization {
		t.language = opts.Language
		if t.language == "" {
			t.language, _ = LanguageOf(opts.Path)
		}
	}
	return t
}

func (t *Tree) Sync() *sync.RWMutex { return &t.mu }

func (t *Tree) Path() string     { return t.path }
func (t *Tree) Kind() FileKind   { return t.kind }
func (t *Tree) Language() string { return t.language }

// IsLocalization reports whether the tree parsed as a localization file
// for a known language.
func (t *Tree) IsLocalization() bool {
	return t.kind == FileLocalization && t.language != ""
}

func (t *Tree) Root() *Dictionary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Metadata is the v2 "Metadata" section of an asset file, if any.
func (t *Tree) Metadata() *Dictionary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metadata
}

// AssetData is the v2 "Asset" section of an asset file, if any.
func (t *Tree) AssetData() *Dictionary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.asset
}

// Reparse replaces the tree's content. Nodes from the previous content stay
// valid for walkers that still hold them.
func (t *Tree) Reparse(text []byte) Diagnostics {
	p := newParser(t, text)
	root := p.parse()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.setRoot(root)
	return p.diagnostics
}

// Snapshot returns a tree holding t's current content. Later calls to
// Reparse on t do not change it.
func (t *Tree) Snapshot() *Tree {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return &Tree{
		path:     t.path,
		kind:     t.kind,
		language: t.language,
		root:     t.root,
		metadata: t.metadata,
		asset:    t.asset,
	}
}

// Sections returns the dictionaries that hold top level properties: the v2
// Metadata and Asset sections when present, otherwise the root.
func (t *Tree) Sections() []*Dictionary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.metadata == nil && t.asset == nil {
		return []*Dictionary{t.root}
	}
	var out []*Dictionary
	if t.metadata != nil {
		out = append(out, t.metadata)
	}
	if t.asset != nil {
		out = append(out, t.asset)
	}
	return out
}

// AssetType reads the asset's Type property.
func (t *Tree) AssetType() string {
	for _, section := range t.Sections() {
		t.mu.RLock()
		p, ok := section.Property("Type")
		t.mu.RUnlock()
		if !ok {
			continue
		}
		if v, ok := p.StringValue(); ok {
			return v
		}
	}
	return ""
}

func (t *Tree) setRoot(root *Dictionary) {
	t.root = root
	t.metadata = nil
	t.asset = nil
	if t.kind != FileAsset {
		return
	}
	for _, child := range root.children {
		p, ok := child.(*Property)
		if !ok {
			continue
		}
		d, ok := p.Value.(*Dictionary)
		if !ok {
			continue
		}
		switch {
		case t.metadata == nil && strings.EqualFold(p.Key, "Metadata"):
			t.metadata = d
			d.section = true
		case t.asset == nil && strings.EqualFold(p.Key, "Asset"):
			t.asset = d
			d.section = true
		}
	}
}

var languages = []string{
	"Arabic", "Bulgarian", "Brazilian", "Czech", "Danish", "Dutch", "English",
	"Finnish", "French", "German", "Greek", "Hungarian", "Indonesian", "Italian",
	"Japanese", "Koreana", "Norwegian", "Polish", "Portuguese", "Romanian",
	"Russian", "Latam", "Schinese", "Spanish", "Swedish", "Tchinese", "Thai",
	"Turkish", "Ukrainian", "Vietnamese",
}

const DefaultLanguage = "English"

// LanguageOf returns the language a localization file is named after.
func LanguageOf(path string) (string, bool) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	for _, lang := range languages {
		if name == lang {
			return lang, true
		}
	}
	return "", false
}

func Languages() []string {
	return append([]string(nil), languages...)
}
