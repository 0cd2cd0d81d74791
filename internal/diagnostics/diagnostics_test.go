package diagnostics

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
	"github.com/DanielWillett/unturned-dat-language-server/internal/spec"
	"github.com/DanielWillett/unturned-dat-language-server/internal/workspace"
)

type publication struct {
	uri     string
	version *int32
	codes   []string
}

type recordingPublisher struct {
	mu   sync.Mutex
	pubs []publication
}

func (p *recordingPublisher) PublishDiagnostics(uri string, version *int32, diags []source.Diagnostic) {
	codes := []string{}
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pubs = append(p.pubs, publication{uri: uri, version: version, codes: codes})
}

func (p *recordingPublisher) last(path string) (publication, bool) {
	uri := workspace.PathToURI(path)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.pubs) - 1; i >= 0; i-- {
		if p.pubs[i].uri == uri {
			return p.pubs[i], true
		}
	}
	return publication{}, false
}

func testDatabase(initialized bool) *spec.Memory {
	db := spec.NewMemory()
	db.AddAsset("",
		&spec.Property{Key: "ID", Type: spec.IntType{}},
		&spec.Property{Key: "Old", Type: spec.FlagType{}, Deprecated: true},
		&spec.Property{Key: "Tooltip", Type: spec.LocalizedStringType{}},
	)
	db.AddLocalization(&spec.Property{Key: "Name", Type: spec.StringType{}})
	if initialized {
		db.Initialize()
	}
	return db
}

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

func newTestScheduler(t *testing.T, db spec.Database, files *workspace.OpenFiles) (*Scheduler, *recordingPublisher) {
	t.Helper()
	matcher, err := workspace.NewMatcher(workspace.DefaultInclude, workspace.DefaultExclude)
	require.NoError(t, err)
	pub := &recordingPublisher{}
	env := Env{Database: db, Publisher: pub}
	if files != nil {
		env.Buffers = OpenBuffers(files)
	}
	s := NewScheduler(env, Options{
		InlineLimit:    DefaultInlineLimit,
		InlineInterval: time.Nanosecond,
		Debounce:       30 * time.Millisecond,
		Matcher:        matcher,
	})
	t.Cleanup(s.Close)
	return s, pub
}

func openFile(t *testing.T, files *workspace.OpenFiles, path string, version int32, text string) *workspace.OpenFile {
	t.Helper()
	f := workspace.NewOpenFile(workspace.PathToURI(path), version, text, ClassifyPath(path).Options(path))
	files.Open(f)
	return f
}

func TestClassifyPath(t *testing.T) {
	dir := t.TempDir()
	gun := filepath.Join(dir, "Gun")
	writeFile(t, filepath.Join(gun, "Gun.dat"), "")
	writeFile(t, filepath.Join(gun, "English.dat"), "")
	legacy := filepath.Join(dir, "Legacy")
	writeFile(t, filepath.Join(legacy, "Asset.dat"), "")
	english := filepath.Join(dir, "English")
	writeFile(t, filepath.Join(english, "English.dat"), "")

	info := ClassifyPath(filepath.Join(gun, "English.dat"))
	assert.Equal(t, source.FileLocalization, info.Kind)
	assert.Equal(t, "English", info.Language)
	assert.Equal(t, filepath.Join(gun, "Gun.dat"), info.AssetPath)

	assert.Equal(t, filepath.Join(legacy, "Asset.dat"), ClassifyPath(filepath.Join(legacy, "German.dat")).AssetPath)
	assert.Equal(t, "", ClassifyPath(filepath.Join(english, "English.dat")).AssetPath)

	assert.Equal(t, source.FileAsset, ClassifyPath(filepath.Join(gun, "Gun.dat")).Kind)
	assert.Equal(t, source.FileAsset, ClassifyPath(filepath.Join(gun, "Gun.asset")).Kind)
	assert.Equal(t, source.FileOther, ClassifyPath(filepath.Join(gun, "readme.txt")).Kind)
}

func TestRecalculateSkipsAnalyzedVersion(t *testing.T) {
	files := workspace.NewOpenFiles()
	path := filepath.Join(t.TempDir(), "Gun.dat")
	f := openFile(t, files, path, 1, "ID 5\n")
	reg := NewRegistry(Env{Database: testDatabase(true), Publisher: &recordingPublisher{}, Buffers: OpenBuffers(files)})

	state := reg.GetOrCreate(path)
	require.NoError(t, state.Recalculate(context.Background()))
	require.NoError(t, state.Recalculate(context.Background()))
	assert.Equal(t, int64(1), reg.Recalculations())

	f.Update(2, "ID x\n")
	require.NoError(t, state.Recalculate(context.Background()))
	assert.Equal(t, int64(2), reg.Recalculations())
	version, ok := state.Version()
	require.True(t, ok)
	assert.Equal(t, int32(2), version)
	require.Len(t, state.Diagnostics(), 1)
	assert.Equal(t, "UNT2004", state.Diagnostics()[0].Code)
}

type bufferMap map[string]Buffer

func (m bufferMap) Buffer(path string) (Buffer, bool) {
	b, ok := m[path]
	return b, ok
}

// editedBuffer reparses its tree to next the first time its edit lock is
// released, like an edit arriving while a pass is running.
type editedBuffer struct {
	path   string
	tree   *source.Tree
	next   string
	mu     sync.Mutex
	edited bool
}

func (b *editedBuffer) Path() string                         { return b.path }
func (b *editedBuffer) Version() int32                       { return 1 }
func (b *editedBuffer) Tree() *source.Tree                   { return b.tree }
func (b *editedBuffer) ParseDiagnostics() source.Diagnostics { return nil }
func (b *editedBuffer) EditLock() sync.Locker                { return editLock{b} }

type editLock struct{ b *editedBuffer }

func (l editLock) Lock() { l.b.mu.Lock() }

func (l editLock) Unlock() {
	l.b.mu.Unlock()
	if !l.b.edited {
		l.b.edited = true
		l.b.tree.Reparse([]byte(l.b.next))
	}
}

func TestRecalculateUsesOneBufferVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Gun.dat")
	tree, diags := source.Parse([]byte("ID 5\n"), ClassifyPath(path).Options(path))
	require.Empty(t, diags)
	buf := &editedBuffer{path: path, tree: tree, next: "ID notanumber\n"}
	pub := &recordingPublisher{}
	reg := NewRegistry(Env{Database: testDatabase(true), Publisher: pub, Buffers: bufferMap{path: buf}})

	require.NoError(t, reg.GetOrCreate(path).Recalculate(context.Background()))
	require.True(t, buf.edited)

	got, ok := pub.last(path)
	require.True(t, ok)
	require.NotNil(t, got.version)
	assert.Equal(t, int32(1), *got.version)
	assert.Empty(t, got.codes)
}

func TestRecalculateFromDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Gun")
	path := filepath.Join(dir, "Gun.dat")
	writeFile(t, path, "ID abc\nOld\nTooltip\n")
	pub := &recordingPublisher{}
	reg := NewRegistry(Env{Database: testDatabase(true), Publisher: pub})

	state := reg.GetOrCreate(path)
	require.NoError(t, state.Recalculate(context.Background()))
	got, ok := pub.last(path)
	require.True(t, ok)
	assert.Nil(t, got.version)
	assert.Equal(t, []string{"UNT2004", "UNT1018", "UNT1030"}, got.codes)

	writeFile(t, filepath.Join(dir, "English.dat"), "Name Gun\n")
	require.NoError(t, state.Recalculate(context.Background()))
	got, _ = pub.last(path)
	assert.Equal(t, []string{"UNT2004", "UNT1018"}, got.codes)
	require.Len(t, state.Localizations(), 1)

	loc := reg.GetOrCreate(filepath.Join(dir, "English.dat"))
	require.NoError(t, loc.Recalculate(context.Background()))
	got, ok = pub.last(filepath.Join(dir, "English.dat"))
	require.True(t, ok)
	assert.Empty(t, got.codes)
}

func TestRecalculateVanishedFile(t *testing.T) {
	reg := NewRegistry(Env{Database: testDatabase(true)})
	state := reg.GetOrCreate(filepath.Join(t.TempDir(), "Gone.dat"))
	assert.ErrorIs(t, state.Recalculate(context.Background()), ErrFileVanished)
}

func TestLocalizationsEnglishFirst(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Gun")
	writeFile(t, filepath.Join(dir, "Gun.dat"), "ID 1\n")
	writeFile(t, filepath.Join(dir, "Czech.dat"), "Name Puska\n")
	writeFile(t, filepath.Join(dir, "French.dat"), "Name Fusil\n")
	writeFile(t, filepath.Join(dir, "English.dat"), "Name Gun\n")
	writeFile(t, filepath.Join(dir, "German.dat"), "Name Gewehr\n")
	writeFile(t, filepath.Join(dir, "notes.dat"), "")
	writeFile(t, filepath.Join(dir, "Klingon.dat"), "")

	reg := NewRegistry(Env{Database: testDatabase(true)})
	state := reg.GetOrCreate(filepath.Join(dir, "Gun.dat"))
	require.NoError(t, state.Recalculate(context.Background()))

	var names []string
	for _, loc := range state.Localizations() {
		names = append(names, filepath.Base(loc.Path()))
	}
	assert.Equal(t, []string{"English.dat", "Czech.dat", "French.dat", "German.dat"}, names)
}

func TestConcurrentAssetAndLocalization(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Gun")
	writeFile(t, filepath.Join(dir, "Gun.dat"), "ID 1\nTooltip\n")
	writeFile(t, filepath.Join(dir, "English.dat"), "Name Gun\n")
	reg := NewRegistry(Env{Database: testDatabase(true)})
	asset := reg.GetOrCreate(filepath.Join(dir, "Gun.dat"))
	loc := reg.GetOrCreate(filepath.Join(dir, "English.dat"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = asset.Recalculate(context.Background())
			}()
			go func() {
				defer wg.Done()
				_ = loc.Recalculate(context.Background())
			}()
		}
		wg.Wait()
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("recalculations did not finish")
	}
	assert.Equal(t, int64(40), reg.Recalculations())
}

func TestRegistryMove(t *testing.T) {
	dir := t.TempDir()
	pub := &recordingPublisher{}
	reg := NewRegistry(Env{Database: testDatabase(true), Publisher: pub})
	a := filepath.Join(dir, "A.dat")
	b := filepath.Join(dir, "B.dat")
	state := reg.GetOrCreate(a)

	moved := reg.Move(a, b)
	assert.Same(t, state, moved)
	assert.Equal(t, b, moved.Path())
	assert.Nil(t, reg.Lookup(a))
	assert.Same(t, state, reg.Lookup(b))
	assert.Equal(t, 1, reg.Len())

	got, ok := pub.last(a)
	require.True(t, ok)
	assert.Empty(t, got.codes)

	other := reg.Move(filepath.Join(dir, "Missing.dat"), filepath.Join(dir, "C.dat"))
	assert.Equal(t, filepath.Join(dir, "C.dat"), other.Path())
	assert.Equal(t, 2, reg.Len())
}
