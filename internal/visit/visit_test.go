package visit

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
	"github.com/DanielWillett/unturned-dat-language-server/internal/spec"
)

const controlTree = `GUID abc
// comment

Blades
[
	{
		Damage 10
		Flag
	}
	plain
	[
	]
]
Stats
{
	Health 5
	Empty
	{
	}
}
`

func parse(t *testing.T, text string) *source.Tree {
	t.Helper()
	tree, diags := source.Parse([]byte(text), source.Options{Path: "/a/b/b.dat", Kind: source.FileAsset})
	require.Empty(t, diags)
	return tree
}

type recorder struct {
	events []string
}

func (r *recorder) add(kind string, n source.Node) {
	r.events = append(r.events, fmt.Sprintf("%s@%s", kind, n.Range().Start))
}

func (r *recorder) EnterDictionary(d *source.Dictionary) { r.add("+dict", d) }
func (r *recorder) ExitDictionary(d *source.Dictionary)  { r.add("-dict", d) }
func (r *recorder) EnterList(l *source.List)             { r.add("+list", l) }
func (r *recorder) ExitList(l *source.List)              { r.add("-list", l) }
func (r *recorder) EnterProperty(p *source.Property)     { r.add("+prop", p) }
func (r *recorder) ExitProperty(p *source.Property)      { r.add("-prop", p) }
func (r *recorder) Value(v *source.Value)                { r.add("value", v) }
func (r *recorder) Whitespace(w *source.Whitespace)      { r.add("ws", w) }
func (r *recorder) Comment(c *source.Comment)            { r.add("comment", c) }

// recursive records the events a plain recursive walk would produce.
func recursive(v Visitor, n source.Node) {
	switch n := n.(type) {
	case *source.Dictionary:
		v.EnterDictionary(n)
		for _, c := range n.Children() {
			recursive(v, c)
		}
		v.ExitDictionary(n)
	case *source.List:
		v.EnterList(n)
		for _, c := range n.Children() {
			recursive(v, c)
		}
		v.ExitList(n)
	case *source.Property:
		v.EnterProperty(n)
		if n.Value != nil {
			recursive(v, n.Value)
		}
		v.ExitProperty(n)
	case *source.Value:
		v.Value(n)
	case *source.Whitespace:
		v.Whitespace(n)
	case *source.Comment:
		v.Comment(n)
	}
}

func TestWalkMatchesRecursiveOrder(t *testing.T) {
	tree := parse(t, controlTree)

	want := &recorder{}
	for _, c := range tree.Root().Children() {
		recursive(want, c)
	}

	got := &recorder{}
	require.NoError(t, Walk(context.Background(), tree.Root(), got))
	assert.Equal(t, want.events, got.events)
	assert.Equal(t, "+prop@1:1", got.events[0])
	assert.Equal(t, "-prop@14:1", got.events[len(got.events)-1])
}

func TestWalkIgnoreMetadata(t *testing.T) {
	tree := parse(t, controlTree)
	got := &recorder{}
	require.NoError(t, Walk(context.Background(), tree.Root(), got, IgnoreMetadata()))
	for _, ev := range got.events {
		assert.False(t, strings.HasPrefix(ev, "ws") || strings.HasPrefix(ev, "comment"), ev)
	}
}

func TestWalkRangeFilter(t *testing.T) {
	tree := parse(t, controlTree)
	got := &recorder{}
	// line 15 is "Health 5"
	r := source.NewRange(15, 0, 15, 9)
	require.NoError(t, Walk(context.Background(), tree.Root(), got, WithRange(r)))
	assert.Equal(t, []string{
		"+prop@14:1",
		"+dict@15:1",
		"+prop@16:2",
		"value@16:9",
		"-prop@16:2",
		"-dict@15:1",
		"-prop@14:1",
	}, got.events)
}

func TestCursorResumes(t *testing.T) {
	tree := parse(t, "A 1\nB\n[\n2\n]\n")
	c := NewCursor(tree.Root())
	var kinds []EventKind
	for {
		ev, ok := c.Next()
		if !ok {
			break
		}
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{
		EnterProperty, VisitValue, ExitProperty,
		EnterProperty, EnterList, VisitValue, ExitList, ExitProperty,
	}, kinds)
	_, ok := c.Next()
	assert.False(t, ok)
}

func TestWalkCancelled(t *testing.T) {
	tree := parse(t, controlTree)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Walk(ctx, tree.Root(), &recorder{})
	assert.ErrorIs(t, err, context.Canceled)
}

type lockingVisitor struct {
	Base
	tree  *source.Tree
	count int
}

func (v *lockingVisitor) EnterProperty(*source.Property) {
	v.tree.Sync().Lock()
	v.count++
	v.tree.Sync().Unlock()
}

func TestWalkReleasesLockForCallbacks(t *testing.T) {
	tree := parse(t, controlTree)
	v := &lockingVisitor{tree: tree}
	require.NoError(t, Walk(context.Background(), tree.Root(), v))
	assert.Equal(t, 7, v.count)
}

type reparsingVisitor struct {
	recorder
	tree     *source.Tree
	reparsed bool
}

func (v *reparsingVisitor) EnterProperty(p *source.Property) {
	if !v.reparsed {
		v.reparsed = true
		v.tree.Reparse([]byte("Other 1\n"))
	}
	v.recorder.EnterProperty(p)
}

func TestWalkKeepsContentAcrossReparse(t *testing.T) {
	tree := parse(t, controlTree)
	root := tree.Root()
	want := &recorder{}
	for _, c := range root.Children() {
		recursive(want, c)
	}

	v := &reparsingVisitor{tree: tree}
	require.NoError(t, Walk(context.Background(), root, v))
	require.True(t, v.reparsed)
	assert.Equal(t, want.events, v.events)
	_, ok := tree.Root().Property("Other")
	assert.True(t, ok)
}

type consumer struct {
	resolved   []string
	unresolved []string
}

func (c *consumer) ResolvedProperty(ctx *spec.ParseContext, crumbs source.Breadcrumbs) {
	c.resolved = append(c.resolved, crumbs.String()+ctx.Property.Key)
}

func (c *consumer) UnresolvedProperty(node *source.Property, crumbs source.Breadcrumbs) {
	c.unresolved = append(c.unresolved, crumbs.String()+node.Key)
}

func testDatabase() *spec.Memory {
	db := spec.NewMemory()
	db.AddAsset("",
		&spec.Property{Key: "Pos", Type: spec.Vector3Type{}},
		&spec.Property{Key: "Spawns", Type: spec.ListType{Element: spec.ObjectType{Properties: []*spec.Property{
			{Key: "Pos", Type: spec.Vector3Type{}},
		}}}},
	)
	db.Initialize()
	return db
}

func TestResolverDeduplicatesLegacyComposite(t *testing.T) {
	tree := parse(t, "Pos_X 1\nPos_Y 2\nPos_Z 3\nOther 4\n")
	c := &consumer{}
	r := NewResolver(testDatabase(), &spec.FileContext{Tree: tree}, c)
	require.NoError(t, r.Resolve(context.Background()))
	assert.Equal(t, []string{"/Pos"}, c.resolved)
	assert.Equal(t, []string{"/Other"}, c.unresolved)

	// the set is per traversal
	c.resolved = nil
	c.unresolved = nil
	require.NoError(t, r.Resolve(context.Background()))
	assert.Equal(t, []string{"/Pos"}, c.resolved)
}

func TestResolverCompositePerOccurrence(t *testing.T) {
	text := "Spawns\n[\n{\nPos_X 1\nPos_Y 1\nPos_Z 1\n}\n{\nPos (1, 2, 3)\n}\n{\nPos_X 1\nPos_Y 1\nPos_Z 1\n}\n]\n"
	tree := parse(t, text)
	c := &consumer{}
	r := NewResolver(testDatabase(), &spec.FileContext{Tree: tree}, c)
	require.NoError(t, r.Resolve(context.Background()))
	assert.Equal(t, []string{"/Spawns", "/Spawns[0]/Pos", "/Spawns[1]/Pos", "/Spawns[2]/Pos"}, c.resolved)
	assert.Empty(t, c.unresolved)
}

func TestResolverDeepTree(t *testing.T) {
	const depth = 10000
	tree := parse(t, "Deep\n"+strings.Repeat("[\n", depth)+strings.Repeat("]\n", depth))

	c := &consumer{}
	r := NewResolver(testDatabase(), &spec.FileContext{Tree: tree}, c)
	require.NoError(t, r.Resolve(context.Background()))
	assert.Equal(t, []string{"/Deep"}, c.unresolved)

	counter := &countingVisitor{}
	require.NoError(t, Walk(context.Background(), tree.Root(), counter))
	assert.Equal(t, depth, counter.enter)
	assert.Equal(t, depth, counter.exit)
	assert.Equal(t, depth, counter.maxDepth)
}

type countingVisitor struct {
	Base
	enter, exit     int
	depth, maxDepth int
}

func (v *countingVisitor) EnterList(*source.List) {
	v.enter++
	v.depth++
	v.maxDepth = max(v.maxDepth, v.depth)
}

func (v *countingVisitor) ExitList(*source.List) {
	v.exit++
	v.depth--
}
