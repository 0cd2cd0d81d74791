package ls

import (
	"sync"

	"github.com/DanielWillett/unturned-dat-language-server/internal/config"
	"github.com/DanielWillett/unturned-dat-language-server/internal/diagnostics"
	"github.com/DanielWillett/unturned-dat-language-server/internal/spec"
	"github.com/DanielWillett/unturned-dat-language-server/internal/workspace"
)

type State struct {
	cfg       *config.Config
	db        *spec.Memory
	files     *workspace.OpenFiles
	folders   *workspace.Folders
	scheduler *diagnostics.Scheduler
	publisher *publisher

	mu               sync.Mutex
	rootPath         string
	specPath         string
	workspaceFolders []workspace.Folder
	nativeWatch      bool
}
