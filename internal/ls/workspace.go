package ls

import (
	"log/slog"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/DanielWillett/unturned-dat-language-server/internal/diagnostics"
	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
	"github.com/DanielWillett/unturned-dat-language-server/internal/workspace"
)

func (s *Server) initialized(context *glsp.Context, _ *protocol.InitializedParams) error {
	slog.Debug("initialized notification received")
	s.state.publisher.attach(context)

	s.state.mu.Lock()
	folders := append([]workspace.Folder(nil), s.state.workspaceFolders...)
	s.state.mu.Unlock()

	for _, folder := range folders {
		s.addFolder(folder.URI, folder.Name)
	}
	return nil
}

func (s *Server) addFolder(uri, name string) {
	folder, added := s.state.folders.Add(uri, name)
	if !added {
		return
	}
	slog.Debug("workspace folder added", "path", folder.Path)
	s.state.scheduler.NotifyFolderAdded(folder.Path)
}

func (s *Server) didChangeWorkspaceFolders(context *glsp.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	s.state.publisher.attach(context)
	for _, removed := range params.Event.Removed {
		folder, ok := s.state.folders.Remove(string(removed.URI))
		if !ok {
			continue
		}
		slog.Debug("workspace folder removed", "path", folder.Path)
		s.state.scheduler.NotifyFolderRemoved(folder.Path)
	}
	for _, added := range params.Event.Added {
		s.addFolder(string(added.URI), added.Name)
	}
	return nil
}

// didChangeWatchedFiles forwards the client's file events. They are ignored
// while the server watches the folders itself.
func (s *Server) didChangeWatchedFiles(context *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	s.state.publisher.attach(context)
	if s.state.nativeWatch {
		return nil
	}

	for _, change := range params.Changes {
		path := workspace.URIToPath(string(change.URI))
		if path == "" {
			continue
		}
		isFile := diagnostics.ClassifyPath(path).Kind != source.FileOther
		slog.Debug("watched file changed", "path", path, "type", change.Type)
		switch change.Type {
		case protocol.FileChangeTypeCreated:
			if isFile {
				s.state.scheduler.NotifyFileCreated(path)
			}
		case protocol.FileChangeTypeChanged:
			if isFile {
				s.state.scheduler.NotifyFileUpdated(path)
			}
		case protocol.FileChangeTypeDeleted:
			if isFile {
				s.state.scheduler.NotifyFileDeleted(path)
			} else {
				// Usually a directory.
				s.state.scheduler.Enqueue(diagnostics.WorkItem{Path: path, Kind: diagnostics.DeleteAll})
			}
		}
	}
	return nil
}
