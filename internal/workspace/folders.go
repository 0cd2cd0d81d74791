package workspace

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/DanielWillett/unturned-dat-language-server/internal/observability"
)

// FileEvents receives the changes seen below watched folders.
type FileEvents interface {
	NotifyFileCreated(path string)
	NotifyFileUpdated(path string)
	NotifyFileDeleted(path string)
	NotifyFileRenamed(oldPath, newPath string)
	NotifyFolderRemoved(path string)
}

type Folder struct {
	URI  string
	Name string
	Path string
}

// renameWindow is how long a rename waits for the create event naming its
// new path before it is reported as a delete.
const renameWindow = 100 * time.Millisecond

// Folders tracks the workspace folders and, when native watching is on,
// watches them with fsnotify.
type Folders struct {
	events  FileEvents
	matcher *Matcher
	log     *slog.Logger

	mu          sync.Mutex
	folders     map[string]*Folder
	watcher     *fsnotify.Watcher
	watchedDirs map[string]string

	pendingRename string
	renameTimer   *time.Timer
}

func NewFolders(events FileEvents, matcher *Matcher, native bool, logger *slog.Logger) (*Folders, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Folders{
		events:      events,
		matcher:     matcher,
		log:         logger,
		folders:     make(map[string]*Folder),
		watchedDirs: make(map[string]string),
	}
	if !native {
		return f, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	f.watcher = w
	go f.run(w)
	return f, nil
}

// Add starts tracking a folder. It reports false if the folder was already tracked.
func (f *Folders) Add(uri, name string) (*Folder, bool) {
	path := URIToPath(uri)
	if path == "" {
		return nil, false
	}
	key := NormalizePath(path)

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.folders[key]; ok {
		return existing, false
	}
	folder := &Folder{URI: uri, Name: name, Path: filepath.Clean(path)}
	f.folders[key] = folder
	if f.watcher != nil {
		if err := f.watchRecursive(folder.Path); err != nil {
			f.log.Warn("failed to watch workspace folder", "path", folder.Path, "error", err)
		}
	}
	observability.WorkspaceFolders.Set(float64(len(f.folders)))
	return folder, true
}

func (f *Folders) Remove(uri string) (*Folder, bool) {
	path := URIToPath(uri)
	if path == "" {
		return nil, false
	}
	key := NormalizePath(path)

	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[key]
	if !ok {
		return nil, false
	}
	delete(f.folders, key)
	if f.watcher != nil {
		for dirKey, dir := range f.watchedDirs {
			if IsWithin(folder.Path, dir) && f.containingFolder(dir) == nil {
				_ = f.watcher.Remove(dir)
				delete(f.watchedDirs, dirKey)
			}
		}
	}
	observability.WorkspaceFolders.Set(float64(len(f.folders)))
	return folder, true
}

func (f *Folders) List() []Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Folder, 0, len(f.folders))
	for _, folder := range f.folders {
		out = append(out, *folder)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (f *Folders) Close() error {
	f.mu.Lock()
	if f.renameTimer != nil {
		f.renameTimer.Stop()
		f.renameTimer = nil
	}
	w := f.watcher
	f.watcher = nil
	f.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

// containingFolder returns the tracked folder path lies in. Callers hold mu.
func (f *Folders) containingFolder(path string) *Folder {
	var best *Folder
	for _, folder := range f.folders {
		if IsWithin(folder.Path, path) && (best == nil || len(folder.Path) > len(best.Path)) {
			best = folder
		}
	}
	return best
}

func (f *Folders) selected(path string) bool {
	f.mu.Lock()
	folder := f.containingFolder(path)
	f.mu.Unlock()
	return folder != nil && f.matcher.MatchesUnder(folder.Path, path)
}

// watchRecursive adds root and its subdirectories to the watcher. Callers hold mu.
func (f *Folders) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if rel, err := filepath.Rel(root, path); err == nil && f.matcher.excludesDir(rel) {
				return filepath.SkipDir
			}
		}
		key := NormalizePath(path)
		if _, ok := f.watchedDirs[key]; ok {
			return nil
		}
		if err := f.watcher.Add(path); err != nil {
			return err
		}
		f.watchedDirs[key] = path
		return nil
	})
}

func (f *Folders) run(w *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			f.handle(event)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.log.Warn("watcher error", "error", err)
		}
	}
}

func (f *Folders) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	switch {
	case event.Has(fsnotify.Create):
		f.created(path)
	case event.Has(fsnotify.Write):
		if f.selected(path) {
			f.events.NotifyFileUpdated(path)
		}
	case event.Has(fsnotify.Remove):
		f.removed(path)
	case event.Has(fsnotify.Rename):
		f.renamed(path)
	}
}

func (f *Folders) created(path string) {
	f.mu.Lock()
	oldPath := f.pendingRename
	f.pendingRename = ""
	if f.renameTimer != nil {
		f.renameTimer.Stop()
		f.renameTimer = nil
	}
	f.mu.Unlock()

	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		if oldPath != "" {
			f.removed(oldPath)
		}
		f.createdDir(path)
		return
	}

	newSelected := f.selected(path)
	if oldPath == "" {
		if newSelected {
			f.events.NotifyFileCreated(path)
		}
		return
	}
	oldSelected := f.selected(oldPath)
	switch {
	case oldSelected && newSelected:
		f.events.NotifyFileRenamed(oldPath, path)
	case oldSelected:
		f.events.NotifyFileDeleted(oldPath)
	case newSelected:
		f.events.NotifyFileCreated(path)
	}
}

func (f *Folders) createdDir(path string) {
	f.mu.Lock()
	if f.watcher == nil || f.containingFolder(path) == nil {
		f.mu.Unlock()
		return
	}
	err := f.watchRecursive(path)
	f.mu.Unlock()
	if err != nil {
		f.log.Warn("failed to watch new directory", "path", path, "error", err)
		return
	}

	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if f.selected(p) {
			f.events.NotifyFileCreated(p)
		}
		return nil
	})
}

func (f *Folders) removed(path string) {
	key := NormalizePath(path)
	f.mu.Lock()
	_, wasDir := f.watchedDirs[key]
	if wasDir {
		for dir := range f.watchedDirs {
			if IsWithin(key, dir) {
				delete(f.watchedDirs, dir)
			}
		}
	}
	f.mu.Unlock()

	if wasDir {
		f.events.NotifyFolderRemoved(path)
		return
	}
	if f.selected(path) {
		f.events.NotifyFileDeleted(path)
	}
}

func (f *Folders) renamed(path string) {
	f.mu.Lock()
	previous := f.pendingRename
	f.pendingRename = path
	if f.renameTimer != nil {
		f.renameTimer.Stop()
	}
	f.renameTimer = time.AfterFunc(renameWindow, func() {
		f.mu.Lock()
		if f.pendingRename != path {
			f.mu.Unlock()
			return
		}
		f.pendingRename = ""
		f.renameTimer = nil
		f.mu.Unlock()
		f.removed(path)
	})
	f.mu.Unlock()

	if previous != "" {
		f.removed(previous)
	}
}
