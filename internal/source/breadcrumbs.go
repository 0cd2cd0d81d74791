package source

import (
	"strconv"
	"strings"
)

// Section is one step of a breadcrumb path. Key is the property that owns the
// container, empty for lists nested directly in lists. Index is the element
// index inside a list, or -1 for dictionaries.
type Section struct {
	Key   string
	Index int
}

func (s Section) IsList() bool { return s.Index >= 0 }

// Breadcrumbs locate a node relative to the nearest root dictionary.
type Breadcrumbs struct {
	sections []Section
}

var RootBreadcrumbs = Breadcrumbs{}

// BreadcrumbsOf returns the path of containers leading to n, not including n.
func BreadcrumbsOf(n Node) Breadcrumbs {
	var reversed []Section
	lastIndex := n.Index()
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch c := p.(type) {
		case *Dictionary:
			if c.IsRoot() {
				return newBreadcrumbs(reversed)
			}
			if prop, ok := c.Parent().(*Property); ok {
				reversed = append(reversed, Section{Key: prop.Key, Index: -1})
				lastIndex = -1
			} else {
				lastIndex = c.Index()
			}
		case *List:
			key := ""
			if prop, ok := c.Parent().(*Property); ok {
				key = prop.Key
			}
			reversed = append(reversed, Section{Key: key, Index: max(lastIndex, 0)})
			lastIndex = c.Index()
		}
	}
	return newBreadcrumbs(reversed)
}

func newBreadcrumbs(reversed []Section) Breadcrumbs {
	if len(reversed) == 0 {
		return RootBreadcrumbs
	}
	sections := make([]Section, len(reversed))
	for i, s := range reversed {
		sections[len(reversed)-1-i] = s
	}
	return Breadcrumbs{sections: sections}
}

func NewBreadcrumbs(sections ...Section) Breadcrumbs {
	if len(sections) == 0 {
		return RootBreadcrumbs
	}
	return Breadcrumbs{sections: append([]Section(nil), sections...)}
}

func (b Breadcrumbs) Len() int { return len(b.sections) }

func (b Breadcrumbs) At(i int) Section { return b.sections[i] }

func (b Breadcrumbs) IsRoot() bool { return len(b.sections) == 0 }

func (b Breadcrumbs) Sections() []Section {
	return append([]Section(nil), b.sections...)
}

// String formats the path as "/Key/List[1]/[0]/". The root is "/".
func (b Breadcrumbs) String() string {
	var sb strings.Builder
	sb.WriteByte('/')
	for _, s := range b.sections {
		sb.WriteString(s.Key)
		if s.IsList() {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(s.Index))
			sb.WriteByte(']')
		}
		sb.WriteByte('/')
	}
	return sb.String()
}
