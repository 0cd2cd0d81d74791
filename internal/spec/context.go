package spec

import (
	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
)

// ResolutionContext tells how a property's key matched its declaration.
type ResolutionContext uint8

const (
	// Modern keys name the property directly.
	Modern ResolutionContext = iota
	// Legacy keys name one component of a composite, such as Pos_X.
	Legacy
)

func (c ResolutionContext) String() string {
	if c == Legacy {
		return "legacy"
	}
	return "modern"
}

// FileType is the classification a property lookup runs against.
type FileType struct {
	Kind      source.FileKind
	AssetType string
}

// FileContext is everything known about one file during a diagnostics pass.
type FileContext struct {
	Tree *source.Tree
	// Asset is the companion asset of a localization file.
	Asset *source.Tree
	// Localizations are the localization files of an asset, default language first.
	Localizations []*source.Tree
}

// FileType reads the asset type from the file, or from the companion asset
// for localization files.
func (f *FileContext) FileType() FileType {
	if f == nil || f.Tree == nil {
		return FileType{}
	}
	ft := FileType{Kind: f.Tree.Kind()}
	switch {
	case ft.Kind == source.FileLocalization && f.Asset != nil:
		ft.AssetType = f.Asset.AssetType()
	case ft.Kind == source.FileAsset:
		ft.AssetType = f.Tree.AssetType()
	}
	return ft
}

// ParseContext is handed to a Type when a resolved property's value is parsed.
type ParseContext struct {
	File       *FileContext
	FileType   FileType
	Property   *Property
	Resolution ResolutionContext
	// Node is the property as written.
	Node *source.Property
	// Value is the value node being parsed. It is Node.Value unless a list
	// element is being parsed.
	Value       source.Node
	Diagnostics source.Sink
}

func (c *ParseContext) Report(d source.Diagnostic) {
	if c.Diagnostics != nil {
		c.Diagnostics.AddDiagnostic(d)
	}
}

// Range is where diagnostics about the value go: the value if there is one,
// otherwise the key.
func (c *ParseContext) Range() source.Range {
	if c.Value != nil {
		return c.Value.Range()
	}
	if c.Node != nil {
		return c.Node.KeyRange
	}
	return source.Range{}
}

// withValue returns a copy of c parsing a different value node.
func (c *ParseContext) withValue(v source.Node) *ParseContext {
	cp := *c
	cp.Value = v
	return &cp
}
