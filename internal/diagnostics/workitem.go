package diagnostics

// Kind is what a WorkItem asks the scheduler to do.
type Kind uint8

const (
	// Recalculate reanalyzes one file.
	Recalculate Kind = iota
	// DiscoverAll enqueues a Recalculate for every selected file below a directory.
	DiscoverAll
	// Delete forgets one file and clears its diagnostics.
	Delete
	// DeleteAll forgets every file below a directory.
	DeleteAll
)

func (k Kind) String() string {
	switch k {
	case Recalculate:
		return "recalculate"
	case DiscoverAll:
		return "discover_all"
	case Delete:
		return "delete"
	case DeleteAll:
		return "delete_all"
	default:
		return "unknown"
	}
}

// WorkItem is one unit of queued work. Path is a file for Recalculate and
// Delete, and a directory for DiscoverAll and DeleteAll.
type WorkItem struct {
	Path string
	// RenamedFrom is the file's previous path when a Recalculate follows a rename.
	RenamedFrom string
	Kind        Kind
}
