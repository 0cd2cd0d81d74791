package visit

import (
	"context"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
)

// Visitor receives walk events. Embed Base to implement only some of them.
type Visitor interface {
	EnterDictionary(d *source.Dictionary)
	ExitDictionary(d *source.Dictionary)
	EnterList(l *source.List)
	ExitList(l *source.List)
	EnterProperty(p *source.Property)
	ExitProperty(p *source.Property)
	Value(v *source.Value)
	Whitespace(w *source.Whitespace)
	Comment(c *source.Comment)
}

type Base struct{}

func (Base) EnterDictionary(*source.Dictionary) {}
func (Base) ExitDictionary(*source.Dictionary)  {}
func (Base) EnterList(*source.List)             {}
func (Base) ExitList(*source.List)              {}
func (Base) EnterProperty(*source.Property)     {}
func (Base) ExitProperty(*source.Property)      {}
func (Base) Value(*source.Value)                {}
func (Base) Whitespace(*source.Whitespace)      {}
func (Base) Comment(*source.Comment)            {}

type options struct {
	filter         *source.Range
	ignoreMetadata bool
}

type Option func(*options)

// WithRange limits the walk to nodes overlapping r.
func WithRange(r source.Range) Option {
	return func(o *options) { o.filter = &r }
}

// IgnoreMetadata skips whitespace and comment events.
func IgnoreMetadata() Option {
	return func(o *options) { o.ignoreMetadata = true }
}

// Walk visits every descendant of root in source order. The tree's read lock
// is held while the cursor steps and released before each callback, so
// visitors may take it themselves. Walk returns ctx.Err() if ctx ends first.
func Walk(ctx context.Context, root source.Container, v Visitor, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := NewCursor(root)
	if o.filter != nil {
		c.Filter(*o.filter)
	}

	var rw interface {
		RLock()
		RUnlock()
	}
	if t := root.Tree(); t != nil {
		rw = t.Sync()
	}
	cancellable := ctx.Done() != nil

	for {
		if cancellable {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if rw != nil {
			rw.RLock()
		}
		ev, ok := c.Next()
		if rw != nil {
			rw.RUnlock()
		}
		if !ok {
			return nil
		}
		dispatch(ev, v, o.ignoreMetadata)
	}
}

// WalkTree walks each top level section of t.
func WalkTree(ctx context.Context, t *source.Tree, v Visitor, opts ...Option) error {
	for _, section := range t.Sections() {
		if err := Walk(ctx, section, v, opts...); err != nil {
			return err
		}
	}
	return nil
}

func dispatch(ev Event, v Visitor, ignoreMetadata bool) {
	switch ev.Kind {
	case EnterDictionary:
		v.EnterDictionary(ev.Node.(*source.Dictionary))
	case ExitDictionary:
		v.ExitDictionary(ev.Node.(*source.Dictionary))
	case EnterList:
		v.EnterList(ev.Node.(*source.List))
	case ExitList:
		v.ExitList(ev.Node.(*source.List))
	case EnterProperty:
		v.EnterProperty(ev.Node.(*source.Property))
	case ExitProperty:
		v.ExitProperty(ev.Node.(*source.Property))
	case VisitValue:
		v.Value(ev.Node.(*source.Value))
	case VisitWhitespace:
		if !ignoreMetadata {
			v.Whitespace(ev.Node.(*source.Whitespace))
		}
	case VisitComment:
		if !ignoreMetadata {
			v.Comment(ev.Node.(*source.Comment))
		}
	}
}
