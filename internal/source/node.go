package source

import "strings"

type NodeKind uint8

const (
	KindWhitespace NodeKind = iota
	KindComment
	KindProperty
	KindValue
	KindList
	KindDictionary
)

func (k NodeKind) String() string {
	switch k {
	case KindWhitespace:
		return "whitespace"
	case KindComment:
		return "comment"
	case KindProperty:
		return "property"
	case KindValue:
		return "value"
	case KindList:
		return "list"
	case KindDictionary:
		return "dictionary"
	default:
		return "unknown"
	}
}

// Node is one element of a parsed file. Nodes never change after parsing;
// a new parse produces a new set of nodes.
type Node interface {
	Kind() NodeKind
	// Parent is nil for the root dictionary.
	Parent() Node
	Tree() *Tree
	Range() Range
	// Index is the position among siblings that are not whitespace or
	// comments, or -1 for those metadata nodes and for property values.
	Index() int
	// ChildIndex is the position among all siblings, or -1 for property values.
	ChildIndex() int
	Depth() int
}

// Container is a dictionary or a list.
type Container interface {
	Node
	Children() []Node
	// Count is the number of children that are not whitespace or comments.
	Count() int
}

type base struct {
	parent     Node
	tree       *Tree
	rng        Range
	index      int
	childIndex int
	depth      int
}

func (b *base) Parent() Node    { return b.parent }
func (b *base) Tree() *Tree     { return b.tree }
func (b *base) Range() Range    { return b.rng }
func (b *base) Index() int      { return b.index }
func (b *base) ChildIndex() int { return b.childIndex }
func (b *base) Depth() int      { return b.depth }

type Dictionary struct {
	base
	children []Node
	count    int
	section  bool
}

func (d *Dictionary) Kind() NodeKind   { return KindDictionary }
func (d *Dictionary) Children() []Node { return d.children }
func (d *Dictionary) Count() int       { return d.count }

// Property finds the first property with the given key, ignoring case
// the same way the game does.
func (d *Dictionary) Property(key string) (*Property, bool) {
	for _, child := range d.children {
		p, ok := child.(*Property)
		if ok && strings.EqualFold(p.Key, key) {
			return p, true
		}
	}
	return nil, false
}

func (d *Dictionary) Properties() []*Property {
	props := make([]*Property, 0, d.count)
	for _, child := range d.children {
		if p, ok := child.(*Property); ok {
			props = append(props, p)
		}
	}
	return props
}

// IsRoot reports whether d is the root of its tree or one of the v2
// Metadata/Asset sections, both of which start a new breadcrumb path.
func (d *Dictionary) IsRoot() bool {
	return d.parent == nil || d.section
}

type List struct {
	base
	children []Node
	count    int
}

func (l *List) Kind() NodeKind   { return KindList }
func (l *List) Children() []Node { return l.children }
func (l *List) Count() int       { return l.count }

// Elements returns the children that are not whitespace or comments.
func (l *List) Elements() []Node {
	elems := make([]Node, 0, l.count)
	for _, child := range l.children {
		if !IsMetadata(child) {
			elems = append(elems, child)
		}
	}
	return elems
}

// Property is a key with an optional value. A property without a value is a flag.
type Property struct {
	base
	Key       string
	KeyQuoted bool
	KeyRange  Range
	// Value is a *Value, *List, *Dictionary or nil.
	Value Node
}

func (p *Property) Kind() NodeKind { return KindProperty }

func (p *Property) IsFlag() bool { return p.Value == nil }

// StringValue returns the text of a plain value.
func (p *Property) StringValue() (string, bool) {
	v, ok := p.Value.(*Value)
	if !ok {
		return "", false
	}
	return v.Text, true
}

type Value struct {
	base
	Text   string
	Quoted bool
}

func (v *Value) Kind() NodeKind { return KindValue }

type Comment struct {
	base
	Text string
}

func (c *Comment) Kind() NodeKind { return KindComment }

// Whitespace covers one or more consecutive blank lines.
type Whitespace struct {
	base
	Lines int
}

func (w *Whitespace) Kind() NodeKind { return KindWhitespace }

func IsMetadata(n Node) bool {
	k := n.Kind()
	return k == KindWhitespace || k == KindComment
}

// AsContainer returns n as a container when it is a dictionary or a list.
func AsContainer(n Node) (Container, bool) {
	switch c := n.(type) {
	case *Dictionary:
		return c, true
	case *List:
		return c, true
	default:
		return nil, false
	}
}
