package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAsset(t *testing.T, text string) (*Tree, Diagnostics) {
	t.Helper()
	return Parse([]byte(text), Options{Path: "/items/Gun/Gun.dat", Kind: FileAsset})
}

func codes(diags Diagnostics) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func TestParseProperties(t *testing.T) {
	tree, diags := parseAsset(t, "GUID 8f3b\nType Gun\n\nUseable\n// the name\nName \"Big \\\"Gun\\\"\"\n")
	require.Empty(t, diags)

	root := tree.Root()
	require.Equal(t, 6, len(root.Children()))
	assert.Equal(t, 4, root.Count())

	guid, ok := root.Property("guid")
	require.True(t, ok)
	v, ok := guid.StringValue()
	require.True(t, ok)
	assert.Equal(t, "8f3b", v)
	assert.Equal(t, NewRange(0, 0, 0, 9), guid.Range())
	assert.Equal(t, NewRange(0, 0, 0, 4), guid.KeyRange)

	useable, ok := root.Property("Useable")
	require.True(t, ok)
	assert.True(t, useable.IsFlag())
	assert.Equal(t, 2, useable.Index())
	assert.Equal(t, 3, useable.ChildIndex())

	ws, ok := root.Children()[2].(*Whitespace)
	require.True(t, ok)
	assert.Equal(t, -1, ws.Index())

	comment, ok := root.Children()[4].(*Comment)
	require.True(t, ok)
	assert.Equal(t, "the name", comment.Text)

	name, _ := root.Property("Name")
	text, _ := name.StringValue()
	assert.Equal(t, `Big "Gun"`, text)
	assert.True(t, name.Value.(*Value).Quoted)
}

func TestParseNestedContainers(t *testing.T) {
	src := strings.Join([]string{
		"Blades",
		"[",
		"\t{",
		"\t\tDamage 10",
		"\t}",
		"\t{",
		"\t\tDamage 20",
		"\t}",
		"]",
		"Stats {",
		"\tHealth 5",
		"}",
	}, "\n")
	tree, diags := parseAsset(t, src)
	require.Empty(t, diags)

	blades, ok := tree.Root().Property("Blades")
	require.True(t, ok)
	list, ok := blades.Value.(*List)
	require.True(t, ok)
	require.Equal(t, 2, list.Count())
	assert.Equal(t, NewRange(0, 0, 8, 1), blades.Range())

	second := list.Elements()[1].(*Dictionary)
	damage, ok := second.Property("Damage")
	require.True(t, ok)
	assert.Equal(t, "/Blades[1]/", BreadcrumbsOf(damage).String())
	assert.Equal(t, 4, damage.Depth())

	stats, _ := tree.Root().Property("Stats")
	health, ok := stats.Value.(*Dictionary).Property("Health")
	require.True(t, ok)
	assert.Equal(t, "/Stats/", BreadcrumbsOf(health).String())
	assert.Equal(t, "/", BreadcrumbsOf(stats).String())
}

func TestParseDiagnostics(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []string
	}{
		{name: "unclosed dictionary", src: "Stats\n{\nA 1\n", want: []string{"UNT2001"}},
		{name: "unclosed list", src: "Items\n[\n1\n", want: []string{"UNT2002"}},
		{name: "unterminated quote", src: "Name \"abc\n", want: []string{"UNT1002"}},
		{name: "unknown escape", src: "Name \"a\\qb\"\n", want: []string{"UNT1004"}},
		{name: "value for dictionary key", src: "Stats 4\n{\n}\n", want: []string{"UNT1001"}},
		{name: "stray closer", src: "A 1\n}\n", want: []string{"UNT2001"}},
		{name: "mismatched closer", src: "A\n{\nB\n[\n}\n", want: []string{"UNT2002"}},
		{name: "keyless dictionary", src: "{\nA 1\n}\n", want: []string{"UNT2013"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, diags := parseAsset(t, tc.src)
			assert.Equal(t, tc.want, codes(diags))
		})
	}
}

func TestParseValueForDictionaryKeyKeepsDictionary(t *testing.T) {
	tree, _ := parseAsset(t, "Stats 4\n{\nHealth 1\n}\n")
	stats, _ := tree.Root().Property("Stats")
	d, ok := stats.Value.(*Dictionary)
	require.True(t, ok)
	_, ok = d.Property("Health")
	assert.True(t, ok)
}

func TestParseV2Sections(t *testing.T) {
	src := "Metadata\n{\n\tGUID abc\n}\nAsset\n{\n\tType Gun\n\tStats\n\t{\n\t\tHealth 1\n\t}\n}\n"
	tree, diags := parseAsset(t, src)
	require.Empty(t, diags)
	require.NotNil(t, tree.Metadata())
	require.NotNil(t, tree.AssetData())
	assert.Len(t, tree.Sections(), 2)
	assert.Equal(t, "Gun", tree.AssetType())

	stats, _ := tree.AssetData().Property("Stats")
	health, _ := stats.Value.(*Dictionary).Property("Health")
	assert.Equal(t, "/Stats/", BreadcrumbsOf(health).String())
}

func TestParseLocalizationLanguage(t *testing.T) {
	tree, _ := Parse([]byte("Name Gun\n"), Options{Path: "/items/Gun/German.dat", Kind: FileLocalization})
	assert.Equal(t, "German", tree.Language())
	assert.True(t, tree.IsLocalization())

	tree, _ = Parse(nil, Options{Path: "/items/Gun/german.dat", Kind: FileLocalization})
	assert.False(t, tree.IsLocalization())
	assert.Empty(t, tree.Root().Children())
}

func TestParseDeepNesting(t *testing.T) {
	const depth = 10000
	src := "Deep\n" + strings.Repeat("[\n", depth) + strings.Repeat("]\n", depth)
	tree, diags := parseAsset(t, src)
	require.Empty(t, diags)

	deep, ok := tree.Root().Property("Deep")
	require.True(t, ok)
	n := deep.Value
	levels := 0
	for {
		l, ok := n.(*List)
		if !ok {
			break
		}
		levels++
		if len(l.Children()) == 0 {
			break
		}
		n = l.Children()[0]
	}
	assert.Equal(t, depth, levels)
}

func TestReparseReplacesRoot(t *testing.T) {
	tree, _ := parseAsset(t, "A 1\n")
	old := tree.Root()
	diags := tree.Reparse([]byte("B 2\nC\n{\n"))
	assert.Equal(t, []string{"UNT2001"}, codes(diags))
	assert.NotSame(t, old, tree.Root())
	_, ok := tree.Root().Property("B")
	assert.True(t, ok)
	_, ok = old.Property("A")
	assert.True(t, ok)
}

func TestSnapshotIgnoresReparse(t *testing.T) {
	tree, _ := parseAsset(t, "Metadata\n{\nGUID 1\n}\nAsset\n{\nType Gun\n}\n")
	snap := tree.Snapshot()
	tree.Reparse([]byte("Type Vehicle\n"))

	assert.Equal(t, "Vehicle", tree.AssetType())
	assert.Equal(t, "Gun", snap.AssetType())
	assert.Len(t, snap.Sections(), 2)
	assert.Equal(t, tree.Path(), snap.Path())
	assert.Equal(t, FileAsset, snap.Kind())
}

func TestRangeOverlaps(t *testing.T) {
	a := NewRange(1, 0, 3, 0)
	assert.True(t, a.Overlaps(NewRange(2, 4, 2, 8)))
	assert.True(t, a.Overlaps(NewRange(0, 0, 1, 1)))
	assert.False(t, a.Overlaps(NewRange(3, 0, 4, 0)))
	assert.True(t, a.Overlaps(NewRange(1, 0, 1, 0)))
	assert.False(t, NewRange(5, 0, 5, 0).Overlaps(a))
}
