package spec

import (
	"errors"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
)

var ErrUnknownType = errors.New("unknown property type")

// Database maps property keys to their declarations.
type Database interface {
	IsInitialized() bool
	// OnInitialize runs fn once the database is initialized. If it already
	// is, fn runs before OnInitialize returns.
	OnInitialize(fn func())
	FindProperty(ft FileType, crumbs source.Breadcrumbs, node *source.Property) (*Property, ResolutionContext, bool)
}

// Property is a declared key and the type of its value.
type Property struct {
	Key         string
	Type        Type
	Deprecated  bool
	Description string
}

// Type parses and validates the value of a property, reporting problems
// through ctx.
type Type interface {
	Name() string
	TryParseValue(ctx *ParseContext) (any, bool)
}

// LegacyComposite types may be written as several keys, one per component,
// each named by the property key plus a suffix.
type LegacyComposite interface {
	Type
	LegacySuffixes() []string
}

// Nested types have their own properties, resolved through breadcrumbs.
type Nested interface {
	Type
	Fields() []*Property
}
