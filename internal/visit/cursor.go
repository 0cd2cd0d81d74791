package visit

import (
	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
)

type EventKind uint8

const (
	EnterDictionary EventKind = iota
	ExitDictionary
	EnterList
	ExitList
	EnterProperty
	ExitProperty
	VisitValue
	VisitWhitespace
	VisitComment
)

func (k EventKind) String() string {
	switch k {
	case EnterDictionary:
		return "enter dictionary"
	case ExitDictionary:
		return "exit dictionary"
	case EnterList:
		return "enter list"
	case ExitList:
		return "exit list"
	case EnterProperty:
		return "enter property"
	case ExitProperty:
		return "exit property"
	case VisitValue:
		return "value"
	case VisitWhitespace:
		return "whitespace"
	case VisitComment:
		return "comment"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind EventKind
	Node source.Node
}

// Cursor walks the descendants of a container in source order without
// recursion. Its whole state is the current node and whether the walk is
// stepping back up out of it.
type Cursor struct {
	root      source.Container
	current   source.Node
	ascending bool
	done      bool
	filter    *source.Range
}

func NewCursor(root source.Container) *Cursor {
	return &Cursor{root: root}
}

// Filter limits the walk to nodes overlapping r. Subtrees outside r are
// skipped without events.
func (c *Cursor) Filter(r source.Range) {
	c.filter = &r
}

// Next returns the next event, or false once the root is exhausted.
func (c *Cursor) Next() (Event, bool) {
	if c.done {
		return Event{}, false
	}
	if c.current == nil {
		children := c.root.Children()
		if len(children) == 0 {
			c.done = true
			return Event{}, false
		}
		if ev, ok := c.enter(children[0]); ok {
			return ev, true
		}
	}

	for {
		if !c.ascending {
			switch n := c.current.(type) {
			case *source.Property:
				if n.Value != nil {
					if ev, ok := c.enter(n.Value); ok {
						return ev, true
					}
					continue
				}
				c.ascending = true
				return Event{Kind: ExitProperty, Node: n}, true
			case source.Container:
				children := n.Children()
				if len(children) > 0 {
					if ev, ok := c.enter(children[0]); ok {
						return ev, true
					}
					continue
				}
				c.ascending = true
				return exitEvent(n), true
			default:
				c.ascending = true
			}
		}

		// the current node and everything under it has been visited
		parent := c.current.Parent()
		switch p := parent.(type) {
		case *source.Property:
			c.current = p
			return Event{Kind: ExitProperty, Node: p}, true
		case source.Container:
			siblings := p.Children()
			if next := c.current.ChildIndex() + 1; next < len(siblings) {
				if ev, ok := c.enter(siblings[next]); ok {
					return ev, true
				}
				continue
			}
			if parent == source.Node(c.root) {
				c.done = true
				return Event{}, false
			}
			c.current = p
			return exitEvent(p), true
		default:
			c.done = true
			return Event{}, false
		}
	}
}

// enter moves to n. When n is outside the filter it is skipped: the cursor
// treats it as already visited and reports false.
func (c *Cursor) enter(n source.Node) (Event, bool) {
	c.current = n
	if c.filter != nil && !n.Range().Overlaps(*c.filter) {
		c.ascending = true
		return Event{}, false
	}
	c.ascending = false
	return enterEvent(n), true
}

func enterEvent(n source.Node) Event {
	switch n.Kind() {
	case source.KindDictionary:
		return Event{Kind: EnterDictionary, Node: n}
	case source.KindList:
		return Event{Kind: EnterList, Node: n}
	case source.KindProperty:
		return Event{Kind: EnterProperty, Node: n}
	case source.KindWhitespace:
		return Event{Kind: VisitWhitespace, Node: n}
	case source.KindComment:
		return Event{Kind: VisitComment, Node: n}
	default:
		return Event{Kind: VisitValue, Node: n}
	}
}

func exitEvent(n source.Node) Event {
	if n.Kind() == source.KindList {
		return Event{Kind: ExitList, Node: n}
	}
	return Event{Kind: ExitDictionary, Node: n}
}
