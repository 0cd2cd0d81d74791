package workspace

import (
	"sync"
	"sync/atomic"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
)

// OpenFile is a document the editor has open. Its tree is reparsed in place
// on every edit.
type OpenFile struct {
	uri     string
	path    string
	version atomic.Int32

	mu               sync.Mutex
	text             string
	tree             *source.Tree
	parseDiagnostics source.Diagnostics
}

func NewOpenFile(uri string, version int32, text string, opts source.Options) *OpenFile {
	if opts.Path == "" {
		opts.Path = URIToPath(uri)
	}
	f := &OpenFile{
		uri:  uri,
		path: opts.Path,
		text: text,
	}
	f.version.Store(version)
	f.tree, f.parseDiagnostics = source.Parse([]byte(text), opts)
	return f
}

func (f *OpenFile) URI() string           { return f.uri }
func (f *OpenFile) Path() string          { return f.path }
func (f *OpenFile) Version() int32        { return f.version.Load() }
func (f *OpenFile) Tree() *source.Tree    { return f.tree }
func (f *OpenFile) EditLock() sync.Locker { return &f.mu }

// ParseDiagnostics are the parser's diagnostics for the current text.
// Callers hold EditLock.
func (f *OpenFile) ParseDiagnostics() source.Diagnostics {
	return f.parseDiagnostics
}

func (f *OpenFile) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

// Update replaces the text and reparses it.
func (f *OpenFile) Update(version int32, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	f.parseDiagnostics = f.tree.Reparse([]byte(text))
	f.version.Store(version)
}

// OpenFiles tracks open documents by path.
type OpenFiles struct {
	mu     sync.RWMutex
	byPath map[string]*OpenFile
}

func NewOpenFiles() *OpenFiles {
	return &OpenFiles{byPath: make(map[string]*OpenFile)}
}

// Open records f, returning the file it replaced, if any.
func (o *OpenFiles) Open(f *OpenFile) *OpenFile {
	key := NormalizePath(f.path)
	o.mu.Lock()
	defer o.mu.Unlock()
	prev := o.byPath[key]
	o.byPath[key] = f
	return prev
}

func (o *OpenFiles) Get(uri string) (*OpenFile, bool) {
	return o.ByPath(URIToPath(uri))
}

func (o *OpenFiles) ByPath(path string) (*OpenFile, bool) {
	if path == "" {
		return nil, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	f, ok := o.byPath[NormalizePath(path)]
	return f, ok
}

func (o *OpenFiles) Close(uri string) (*OpenFile, bool) {
	path := URIToPath(uri)
	if path == "" {
		return nil, false
	}
	key := NormalizePath(path)
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.byPath[key]
	if ok {
		delete(o.byPath, key)
	}
	return f, ok
}

func (o *OpenFiles) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.byPath)
}
