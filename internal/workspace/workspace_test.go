package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
)

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

func TestURIRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Gun Folder", "Gun.dat")
	uri := PathToURI(path)
	assert.True(t, HasFileScheme(uri))
	assert.Equal(t, path, URIToPath(uri))
	assert.Equal(t, "", URIToPath("untitled:Untitled-1"))
}

func TestIsWithin(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "root")
	assert.True(t, IsWithin(root, root))
	assert.True(t, IsWithin(root, filepath.Join(root, "sub", "a.dat")))
	assert.False(t, IsWithin(root, filepath.Join(string(filepath.Separator), "work", "root2", "a.dat")))
	assert.False(t, IsWithin(root, filepath.Join(string(filepath.Separator), "work")))
}

func TestMatcherMatches(t *testing.T) {
	m, err := NewMatcher(DefaultInclude, []string{"**/.git/**", "**/Bundles/**"})
	require.NoError(t, err)
	assert.True(t, m.Matches("Gun.dat"))
	assert.True(t, m.Matches(filepath.Join("Items", "Gun", "Gun.dat")))
	assert.True(t, m.Matches(filepath.Join("Items", "Gun", "Gun.asset")))
	assert.False(t, m.Matches(filepath.Join("Items", "Gun", "Gun.txt")))
	assert.False(t, m.Matches(filepath.Join("Bundles", "Gun", "Gun.dat")))
}

func TestMatcherBadPattern(t *testing.T) {
	_, err := NewMatcher([]string{"[a"}, nil)
	assert.Error(t, err)
}

func TestMatcherMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Top.dat"), "")
	writeFile(t, filepath.Join(root, "Items", "Gun", "Gun.dat"), "")
	writeFile(t, filepath.Join(root, "Items", "Gun", "English.dat"), "")
	writeFile(t, filepath.Join(root, "Items", "Gun", "readme.md"), "")
	writeFile(t, filepath.Join(root, ".git", "x.dat"), "")

	m, err := NewMatcher(DefaultInclude, DefaultExclude)
	require.NoError(t, err)
	got, err := m.Match(root)
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, []string{
		filepath.Join("Items", "Gun", "English.dat"),
		filepath.Join("Items", "Gun", "Gun.dat"),
		"Top.dat",
	}, got)

	_, err = m.Match(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestOpenFileUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Gun.dat")
	f := NewOpenFile(PathToURI(path), 1, "A 1\n", source.Options{Kind: source.FileAsset})
	assert.Equal(t, path, f.Path())
	assert.Equal(t, int32(1), f.Version())
	tree := f.Tree()
	assert.Empty(t, f.ParseDiagnostics())

	f.Update(2, "A\n{\n")
	assert.Equal(t, int32(2), f.Version())
	assert.Same(t, tree, f.Tree())
	assert.Equal(t, "A\n{\n", f.Text())
	lock := f.EditLock()
	lock.Lock()
	require.Len(t, f.ParseDiagnostics(), 1)
	assert.Equal(t, "UNT2001", f.ParseDiagnostics()[0].Code)
	lock.Unlock()
}

func TestOpenFiles(t *testing.T) {
	files := NewOpenFiles()
	path := filepath.Join(t.TempDir(), "Gun.dat")
	uri := PathToURI(path)

	first := NewOpenFile(uri, 1, "", source.Options{})
	assert.Nil(t, files.Open(first))
	second := NewOpenFile(uri, 2, "", source.Options{})
	assert.Same(t, first, files.Open(second))

	got, ok := files.ByPath(path)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, files.Len())

	closed, ok := files.Close(uri)
	require.True(t, ok)
	assert.Same(t, second, closed)
	_, ok = files.Get(uri)
	assert.False(t, ok)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, s)
}

func (l *eventLog) has(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == s {
			return true
		}
	}
	return false
}

func (l *eventLog) NotifyFileCreated(path string)   { l.add("created " + filepath.Base(path)) }
func (l *eventLog) NotifyFileUpdated(path string)   { l.add("updated " + filepath.Base(path)) }
func (l *eventLog) NotifyFileDeleted(path string)   { l.add("deleted " + filepath.Base(path)) }
func (l *eventLog) NotifyFolderRemoved(path string) { l.add("folder removed " + filepath.Base(path)) }

func (l *eventLog) NotifyFileRenamed(oldPath, newPath string) {
	l.add("renamed " + filepath.Base(oldPath) + " " + filepath.Base(newPath))
}

func TestFoldersTracking(t *testing.T) {
	m, err := NewMatcher(DefaultInclude, DefaultExclude)
	require.NoError(t, err)
	folders, err := NewFolders(&eventLog{}, m, false, nil)
	require.NoError(t, err)

	a := t.TempDir()
	b := t.TempDir()
	_, added := folders.Add(PathToURI(a), "a")
	assert.True(t, added)
	_, added = folders.Add(PathToURI(a), "a")
	assert.False(t, added)
	folders.Add(PathToURI(b), "b")
	assert.Len(t, folders.List(), 2)

	removed, ok := folders.Remove(PathToURI(a))
	require.True(t, ok)
	assert.Equal(t, a, removed.Path)
	assert.Len(t, folders.List(), 1)
	require.NoError(t, folders.Close())
}

func TestFoldersWatchesFiles(t *testing.T) {
	m, err := NewMatcher(DefaultInclude, DefaultExclude)
	require.NoError(t, err)
	log := &eventLog{}
	folders, err := NewFolders(log, m, true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = folders.Close() })

	root := t.TempDir()
	sub := filepath.Join(root, "Items")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	folders.Add(PathToURI(root), "root")

	writeFile(t, filepath.Join(sub, "Gun.dat"), "ID 1\n")
	require.Eventually(t, func() bool { return log.has("created Gun.dat") }, 5*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(sub, "notes.txt"), "")
	require.NoError(t, os.Rename(filepath.Join(sub, "Gun.dat"), filepath.Join(sub, "Rifle.dat")))
	require.Eventually(t, func() bool { return log.has("renamed Gun.dat Rifle.dat") }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(sub, "Rifle.dat")))
	require.Eventually(t, func() bool { return log.has("deleted Rifle.dat") }, 5*time.Second, 10*time.Millisecond)

	assert.False(t, log.has("created notes.txt"))

	require.NoError(t, os.RemoveAll(sub))
	require.Eventually(t, func() bool { return log.has("folder removed Items") }, 5*time.Second, 10*time.Millisecond)
}
