package visit

import (
	"context"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
	"github.com/DanielWillett/unturned-dat-language-server/internal/spec"
)

// PropertyConsumer receives the properties a Resolver visits.
type PropertyConsumer interface {
	// ResolvedProperty is called once per property with a declaration. For
	// legacy composites it is called once per logical property.
	ResolvedProperty(ctx *spec.ParseContext, crumbs source.Breadcrumbs)
	// UnresolvedProperty is called for properties with no declaration.
	UnresolvedProperty(node *source.Property, crumbs source.Breadcrumbs)
}

type compositeKey struct {
	crumbs   string
	property *spec.Property
}

// Resolver is a Visitor that looks up each property in a database.
type Resolver struct {
	Base
	db       spec.Database
	file     *spec.FileContext
	consumer PropertyConsumer

	fileType    spec.FileType
	hasFileType bool
	seen        map[compositeKey]struct{}
}

func NewResolver(db spec.Database, file *spec.FileContext, consumer PropertyConsumer) *Resolver {
	return &Resolver{
		db:       db,
		file:     file,
		consumer: consumer,
	}
}

// Resolve walks every section of the file's tree.
func (r *Resolver) Resolve(ctx context.Context) error {
	r.seen = nil
	return WalkTree(ctx, r.file.Tree, r, IgnoreMetadata())
}

func (r *Resolver) EnterProperty(p *source.Property) {
	if !r.hasFileType {
		r.fileType = r.file.FileType()
		r.hasFileType = true
	}

	crumbs := source.BreadcrumbsOf(p)
	decl, rc, ok := r.db.FindProperty(r.fileType, crumbs, p)
	if !ok || decl == nil || decl.Type == nil {
		r.consumer.UnresolvedProperty(p, crumbs)
		return
	}

	if _, composite := decl.Type.(spec.LegacyComposite); composite && rc == spec.Legacy {
		key := compositeKey{crumbs: crumbs.String(), property: decl}
		if r.seen == nil {
			r.seen = make(map[compositeKey]struct{})
		}
		if _, dup := r.seen[key]; dup {
			return
		}
		r.seen[key] = struct{}{}
	}

	r.consumer.ResolvedProperty(&spec.ParseContext{
		File:       r.file,
		FileType:   r.fileType,
		Property:   decl,
		Resolution: rc,
		Node:       p,
		Value:      p.Value,
	}, crumbs)
}
