package ls

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/DanielWillett/unturned-dat-language-server/internal/config"
	"github.com/DanielWillett/unturned-dat-language-server/internal/diagnostics"
	"github.com/DanielWillett/unturned-dat-language-server/internal/observability"
	"github.com/DanielWillett/unturned-dat-language-server/internal/spec"
	"github.com/DanielWillett/unturned-dat-language-server/internal/workspace"
)

var (
	ServerName = "dat-language-server"
	Version    = "0.0.1"
)

type Server struct {
	handler protocol.Handler
	state   *State
}

func New(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	matcher, err := cfg.Matcher()
	if err != nil {
		slog.Error("invalid file globs, using defaults", "error", err)
		matcher, _ = workspace.NewMatcher(workspace.DefaultInclude, workspace.DefaultExclude)
	}

	state := &State{
		cfg:       cfg,
		db:        spec.NewMemory(),
		files:     workspace.NewOpenFiles(),
		publisher: &publisher{},
		specPath:  cfg.Spec.Path,
	}
	state.scheduler = diagnostics.NewScheduler(diagnostics.Env{
		Database:  state.db,
		Publisher: state.publisher,
		Buffers:   diagnostics.OpenBuffers(state.files),
	}, cfg.SchedulerOptions(matcher))

	state.folders, err = workspace.NewFolders(state.scheduler, matcher, cfg.Watch.Native, nil)
	if err != nil {
		slog.Warn("native file watching unavailable", "error", err)
		state.folders, _ = workspace.NewFolders(state.scheduler, matcher, false, nil)
	} else {
		state.nativeWatch = cfg.Watch.Native
	}

	s := &Server{state: state}
	s.handler = protocol.Handler{
		Initialize:                         s.initialize,
		Initialized:                        s.initialized,
		Shutdown:                           s.shutdown,
		SetTrace:                           s.setTrace,
		TextDocumentDidOpen:                s.didOpen,
		TextDocumentDidChange:              s.didChange,
		TextDocumentDidClose:               s.didClose,
		TextDocumentDidSave:                s.didSave,
		WorkspaceDidChangeWatchedFiles:     s.didChangeWatchedFiles,
		WorkspaceDidChangeWorkspaceFolders: s.didChangeWorkspaceFolders,
	}
	return s
}

func (s *Server) RunStdio() error {
	slog.Debug("starting LSP server", "name", ServerName, "version", Version)
	defer s.Close()
	srv := server.NewServer(&s.handler, ServerName, false)
	return srv.RunStdio()
}

// Close stops the scheduler and the folder watcher.
func (s *Server) Close() {
	s.state.scheduler.Close()
	if err := s.state.folders.Close(); err != nil {
		slog.Debug("closing folder watcher", "error", err)
	}
}

func (s *Server) initialize(context *glsp.Context, params *protocol.InitializeParams) (any, error) {
	slog.Debug("initialize request received")
	s.state.publisher.attach(context)

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}

	rootPath := ""
	if params.RootURI != nil {
		rootPath = workspace.URIToPath(string(*params.RootURI))
	} else if params.RootPath != nil {
		rootPath = *params.RootPath
	}

	var folders []workspace.Folder
	for _, folder := range params.WorkspaceFolders {
		folders = append(folders, workspace.Folder{URI: string(folder.URI), Name: folder.Name})
	}
	if len(folders) == 0 && rootPath != "" {
		folders = append(folders, workspace.Folder{URI: workspace.PathToURI(rootPath), Path: rootPath})
	}

	options := readInitializationOptions(params.InitializationOptions)
	s.state.mu.Lock()
	s.state.rootPath = rootPath
	s.state.workspaceFolders = folders
	if options.SpecPath != "" {
		s.state.specPath = options.SpecPath
	}
	specPath := s.state.specPath
	s.state.mu.Unlock()
	slog.Debug("initialize configuration", "rootPath", rootPath, "folders", len(folders), "specPath", specPath)

	go s.loadDatabase(specPath)

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    ServerName,
			Version: &Version,
		},
	}, nil
}

// loadDatabase fills the specification database and marks it ready, which
// releases any diagnostics work queued in the meantime. A spec file that
// fails to load falls back to the built-in database.
func (s *Server) loadDatabase(path string) {
	db := s.state.db
	if path != "" {
		err := db.LoadFile(path)
		if err == nil {
			db.Initialize()
			slog.Info("specification database loaded", "path", path, "assetTypes", len(db.AssetTypes()))
			return
		}
		slog.Error("failed to load specification database, using built-in", "path", path, "error", err)
	}
	if err := db.LoadBuiltin(); err != nil {
		slog.Error("failed to load built-in specification database", "error", err)
	}
	db.Initialize()
}

func (s *Server) shutdown(_ *glsp.Context) error {
	slog.Debug("shutdown request received")
	protocol.SetTraceValue(protocol.TraceValueOff)
	s.Close()
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	slog.Debug("setTrace request received", "value", params.Value)
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) didOpen(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	slog.Debug("didOpen", "uri", params.TextDocument.URI, "version", params.TextDocument.Version)
	s.state.publisher.attach(context)

	uri := string(params.TextDocument.URI)
	path := workspace.URIToPath(uri)
	if path == "" {
		return nil
	}
	file := workspace.NewOpenFile(uri, int32(params.TextDocument.Version), params.TextDocument.Text,
		diagnostics.ClassifyPath(path).Options(path))
	s.state.files.Open(file)
	observability.OpenFiles.Set(float64(s.state.files.Len()))

	s.state.scheduler.NotifyFileOpened(file)
	return nil
}

func (s *Server) didChange(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	s.state.publisher.attach(context)

	file, ok := s.state.files.Get(string(params.TextDocument.URI))
	if !ok {
		slog.Debug("didChange for a document that isn't open", "uri", params.TextDocument.URI)
		return nil
	}
	text, ok := applyContentChanges(file.Text(), params.ContentChanges)
	if !ok {
		return nil
	}
	version := int32(params.TextDocument.Version)
	file.Update(version, text)
	if debugEnabled() {
		slog.Debug("didChange", "uri", params.TextDocument.URI, "version", version,
			"length", len(text), "changes", describeChanges(params.ContentChanges))
	}

	s.state.scheduler.NotifyContentChanged(file, version)
	return nil
}

func (s *Server) didClose(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	slog.Debug("didClose", "uri", params.TextDocument.URI)
	s.state.publisher.attach(context)

	file, ok := s.state.files.Close(string(params.TextDocument.URI))
	observability.OpenFiles.Set(float64(s.state.files.Len()))
	if !ok {
		return nil
	}
	s.state.scheduler.NotifyFileClosed(file)
	return nil
}

func (s *Server) didSave(context *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	slog.Debug("didSave", "uri", params.TextDocument.URI)
	s.state.publisher.attach(context)

	uri := string(params.TextDocument.URI)
	if _, open := s.state.files.Get(uri); open {
		return nil
	}
	if path := workspace.URIToPath(uri); path != "" {
		s.state.scheduler.NotifyFileUpdated(path)
	}
	return nil
}

func debugEnabled() bool {
	return slog.Default().Enabled(context.Background(), slog.LevelDebug)
}

const changePreviewLimit = 40

// describeChanges summarizes content changes as "full(n)" or
// "L:C-L:C(n) <preview>" entries.
func describeChanges(changes []any) string {
	var b strings.Builder
	for i, change := range changes {
		if i > 0 {
			b.WriteString("; ")
		}
		var (
			rng  *protocol.Range
			text string
		)
		switch value := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = value.Text
		case protocol.TextDocumentContentChangeEvent:
			rng, text = value.Range, value.Text
		default:
			b.WriteString("unknown")
			continue
		}
		if rng == nil {
			fmt.Fprintf(&b, "full(%d)", len(text))
			continue
		}
		fmt.Fprintf(&b, "%d:%d-%d:%d(%d) %q",
			rng.Start.Line+1, rng.Start.Character+1, rng.End.Line+1, rng.End.Character+1,
			len(text), preview(text, changePreviewLimit))
	}
	return b.String()
}

// preview cuts text to at most limit bytes on a rune boundary.
func preview(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
