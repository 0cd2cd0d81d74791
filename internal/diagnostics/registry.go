package diagnostics

import (
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/DanielWillett/unturned-dat-language-server/internal/observability"
	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
	"github.com/DanielWillett/unturned-dat-language-server/internal/spec"
	"github.com/DanielWillett/unturned-dat-language-server/internal/workspace"
)

// Env holds the collaborators diagnostics passes run against.
type Env struct {
	Database  spec.Database
	Publisher Publisher
	// Buffers may be nil when no files are open.
	Buffers BufferSource
	Logger  *slog.Logger
}

// Registry maps normalized file paths to their FileState. Entries are
// created on first use.
type Registry struct {
	env       Env
	log       *slog.Logger
	parseFile func(path string, info FileTypeInfo) (*source.Tree, source.Diagnostics, error)

	entries        sync.Map
	count          atomic.Int64
	recalculations atomic.Int64
}

func NewRegistry(env Env) *Registry {
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	return &Registry{
		env:       env,
		log:       env.Logger,
		parseFile: readAndParse,
	}
}

func (r *Registry) buffer(path string) (Buffer, bool) {
	if r.env.Buffers == nil {
		return nil, false
	}
	return r.env.Buffers.Buffer(path)
}

// GetOrCreate returns the state for path, creating it if needed. A new
// state starts attached to the file's open buffer, if there is one.
func (r *Registry) GetOrCreate(path string) *FileState {
	key := workspace.NormalizePath(path)
	if v, ok := r.entries.Load(key); ok {
		return v.(*FileState)
	}

	state := newFileState(r, filepath.Clean(path))
	buf, open := r.buffer(path)
	if open {
		state.buffer = buf
		state.tree.Store(buf.Tree())
	}
	v, loaded := r.entries.LoadOrStore(key, state)
	if loaded {
		return v.(*FileState)
	}
	observability.TrackedFiles.Set(float64(r.count.Add(1)))

	// The buffer may have closed between the lookup and the store.
	if open {
		if current, ok := r.buffer(path); !ok || current != buf {
			state.ClearOpenBuffer(buf)
		}
	}
	return state
}

func (r *Registry) Lookup(path string) *FileState {
	v, ok := r.entries.Load(workspace.NormalizePath(path))
	if !ok {
		return nil
	}
	return v.(*FileState)
}

// Remove forgets path and publishes an empty diagnostic set for it.
func (r *Registry) Remove(path string) bool {
	v, ok := r.entries.LoadAndDelete(workspace.NormalizePath(path))
	if !ok {
		r.publish(workspace.PathToURI(path), nil, nil)
		return false
	}
	observability.TrackedFiles.Set(float64(r.count.Add(-1)))
	v.(*FileState).markRemoved(true)
	return true
}

// RemoveUnder forgets every file at or below dir.
func (r *Registry) RemoveUnder(dir string) int {
	removed := 0
	r.entries.Range(func(k, v any) bool {
		if !workspace.IsWithin(dir, k.(string)) {
			return true
		}
		if _, ok := r.entries.LoadAndDelete(k); ok {
			observability.TrackedFiles.Set(float64(r.count.Add(-1)))
			v.(*FileState).markRemoved(true)
			removed++
		}
		return true
	})
	return removed
}

// Move rekeys the state for oldPath under newPath. The state is reanalyzed on
// its next Recalculate. If oldPath isn't tracked the state for newPath is
// returned as is.
func (r *Registry) Move(oldPath, newPath string) *FileState {
	oldKey := workspace.NormalizePath(oldPath)
	newKey := workspace.NormalizePath(newPath)
	v, ok := r.entries.LoadAndDelete(oldKey)
	if !ok {
		return r.GetOrCreate(newPath)
	}
	state := v.(*FileState)
	state.rename(filepath.Clean(newPath))

	prev, loaded := r.entries.Swap(newKey, state)
	switch {
	case !loaded:
	case prev.(*FileState) != state:
		prev.(*FileState).markRemoved(false)
		observability.TrackedFiles.Set(float64(r.count.Add(-1)))
	}
	return state
}

func (r *Registry) Len() int {
	return int(r.count.Load())
}

// Paths lists the tracked files.
func (r *Registry) Paths() []string {
	var out []string
	r.entries.Range(func(_, v any) bool {
		out = append(out, v.(*FileState).Path())
		return true
	})
	sort.Strings(out)
	return out
}

// Recalculations counts completed diagnostics passes.
func (r *Registry) Recalculations() int64 {
	return r.recalculations.Load()
}

func (r *Registry) publish(uri string, version *int32, diags []source.Diagnostic) {
	if r.env.Publisher == nil {
		return
	}
	observability.DiagnosticsPublishedTotal.Inc()
	out := diags
	if out == nil {
		out = []source.Diagnostic{}
	}
	r.env.Publisher.PublishDiagnostics(uri, version, out)
}
