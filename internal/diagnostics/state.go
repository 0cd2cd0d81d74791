package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DanielWillett/unturned-dat-language-server/internal/observability"
	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
	"github.com/DanielWillett/unturned-dat-language-server/internal/spec"
	"github.com/DanielWillett/unturned-dat-language-server/internal/visit"
	"github.com/DanielWillett/unturned-dat-language-server/internal/workspace"
)

// ErrFileVanished is returned by Recalculate when a closed file is no longer on disk.
var ErrFileVanished = errors.New("file no longer exists")

// Buffer is a file the editor has open.
type Buffer interface {
	Path() string
	Version() int32
	Tree() *source.Tree
	// ParseDiagnostics is read with EditLock held.
	ParseDiagnostics() source.Diagnostics
	EditLock() sync.Locker
}

// BufferSource finds the open buffer for a path.
type BufferSource interface {
	Buffer(path string) (Buffer, bool)
}

// Publisher delivers a file's diagnostics to the client. An empty set clears
// what was shown before.
type Publisher interface {
	PublishDiagnostics(uri string, version *int32, diags []source.Diagnostic)
}

type openFiles struct {
	files *workspace.OpenFiles
}

// OpenBuffers exposes the editor's open files as a BufferSource.
func OpenBuffers(files *workspace.OpenFiles) BufferSource {
	return openFiles{files: files}
}

func (o openFiles) Buffer(path string) (Buffer, bool) {
	f, ok := o.files.ByPath(path)
	if !ok {
		return nil, false
	}
	return f, true
}

// FileState holds the last diagnostics computed for one file.
type FileState struct {
	reg *Registry

	mu          sync.Mutex
	path        string
	uri         string
	info        FileTypeInfo
	buffer      Buffer
	version     int32
	hasVersion  bool
	removed     bool
	diagnostics []source.Diagnostic
	// localizations of an asset file, default language first.
	localizations []*FileState

	// tree is the last tree parsed for the file. Other files read it
	// without taking mu.
	tree atomic.Pointer[source.Tree]
}

func newFileState(reg *Registry, path string) *FileState {
	return &FileState{
		reg:  reg,
		path: path,
		uri:  workspace.PathToURI(path),
		info: ClassifyPath(path),
	}
}

func (s *FileState) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *FileState) URI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uri
}

func (s *FileState) Info() FileTypeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Version is the open file version last analyzed. It is unset for files
// analyzed from disk.
func (s *FileState) Version() (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, s.hasVersion
}

func (s *FileState) Diagnostics() []source.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]source.Diagnostic(nil), s.diagnostics...)
}

func (s *FileState) Localizations() []*FileState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FileState(nil), s.localizations...)
}

// SetOpenBuffer makes the file follow an open editor buffer.
func (s *FileState) SetOpenBuffer(buf Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = buf
	s.hasVersion = false
	s.tree.Store(buf.Tree())
}

// ClearOpenBuffer detaches buf if it is still the file's buffer and reports
// whether it was.
func (s *FileState) ClearOpenBuffer(buf Buffer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer == nil || s.buffer != buf {
		return false
	}
	s.buffer = nil
	s.hasVersion = false
	s.tree.Store(nil)
	return true
}

// Recalculate analyzes the file and publishes its diagnostics. An open file
// whose version was already analyzed is skipped. A failed pass leaves the
// previous diagnostics in place.
func (s *FileState) Recalculate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return nil
	}

	buf := s.buffer
	if buf != nil && s.hasVersion && buf.Version() == s.version {
		observability.RecalculationsSkippedTotal.Inc()
		return nil
	}

	start := time.Now()
	s.info = ClassifyPath(s.path)

	var (
		tree    *source.Tree
		diags   source.Diagnostics
		version *int32
	)
	if buf != nil {
		// The tree and the parse diagnostics must come from the same version.
		lock := buf.EditLock()
		lock.Lock()
		v := buf.Version()
		live := buf.Tree()
		tree = live.Snapshot()
		diags = append(diags, buf.ParseDiagnostics()...)
		lock.Unlock()
		version = &v
		s.tree.Store(live)
	} else {
		var err error
		tree, diags, err = s.reg.parseFile(s.path, s.info)
		if err != nil {
			return err
		}
		s.tree.Store(tree)
	}

	file := &spec.FileContext{Tree: tree}
	var localizations []*FileState
	switch s.info.Kind {
	case source.FileLocalization:
		if s.info.AssetPath != "" {
			if asset := s.reg.GetOrCreate(s.info.AssetPath); asset != s {
				file.Asset = asset.dependencyTree()
			}
		}
	case source.FileAsset:
		localizations = s.reg.localizationsOf(s.path)
		for _, loc := range localizations {
			if t := loc.tree.Load(); t != nil {
				file.Localizations = append(file.Localizations, t)
			}
		}
	}

	consumer := &diagnosticConsumer{sink: &diags}
	if err := visit.NewResolver(s.reg.env.Database, file, consumer).Resolve(ctx); err != nil {
		return fmt.Errorf("resolve %s: %w", s.path, err)
	}

	s.diagnostics = diags
	s.localizations = localizations
	if version != nil {
		s.version, s.hasVersion = *version, true
	} else {
		s.version, s.hasVersion = 0, false
	}
	s.reg.recalculations.Add(1)
	observability.RecalculationsTotal.Inc()
	observability.RecalculationDuration.WithLabelValues(s.info.Kind.String()).Observe(time.Since(start).Seconds())

	s.reg.publish(s.uri, version, s.diagnostics)
	return nil
}

// dependencyTree returns the file's tree for use by a dependent file,
// parsing it when nothing has yet. Callers may hold their own entry's lock
// but never this one's.
func (s *FileState) dependencyTree() *source.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return nil
	}
	if t := s.tree.Load(); t != nil {
		return t
	}
	t, _, err := s.reg.parseFile(s.path, s.info)
	if err != nil {
		s.reg.log.Debug("dependency unreadable", "path", s.path, "error", err)
		return nil
	}
	s.tree.Store(t)
	return t
}

// peekTree returns the file's tree without taking its lock. A file nothing
// has parsed yet is parsed from disk.
func (s *FileState) peekTree(path string, info FileTypeInfo) *source.Tree {
	if t := s.tree.Load(); t != nil {
		return t
	}
	t, _, err := s.reg.parseFile(path, info)
	if err != nil {
		return nil
	}
	if s.tree.CompareAndSwap(nil, t) {
		return t
	}
	return s.tree.Load()
}

// rename points the state at newPath and clears the old URI's diagnostics.
func (s *FileState) rename(newPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldURI := s.uri
	s.path = newPath
	s.uri = workspace.PathToURI(newPath)
	s.info = ClassifyPath(newPath)
	s.hasVersion = false
	if s.buffer != nil && !workspace.SamePath(s.buffer.Path(), newPath) {
		s.buffer = nil
	}
	if s.buffer == nil {
		s.tree.Store(nil)
	}
	if oldURI != s.uri {
		s.reg.publish(oldURI, nil, nil)
	}
}

func (s *FileState) markRemoved(publish bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return
	}
	s.removed = true
	s.diagnostics = nil
	s.localizations = nil
	s.tree.Store(nil)
	if publish {
		s.reg.publish(s.uri, nil, nil)
	}
}

func readAndParse(path string, info FileTypeInfo) (*source.Tree, source.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrFileVanished
		}
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	tree, diags := source.Parse(data, info.Options(path))
	return tree, diags, nil
}
