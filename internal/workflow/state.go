package workflow

// State represents an installation run state
type State string

const (
	StateNotStarted  State = "not_started" // Plan accepted, nothing done yet
	StateDownloading State = "downloading" // Asset transfer in progress
	StateExtracting  State = "extracting"  // Unpacking the archive
	StateIntegrating State = "integrating" // Path, registry and shortcuts
	StateCompleted   State = "completed"   // All steps attempted
	StateFailed      State = "failed"      // A stage failed
	StateCancelled   State = "cancelled"   // User cancelled the download
)

// Event represents a workflow event that triggers transitions
type Event string

const (
	EventStart      Event = "start"      // Plan supplied, begin download
	EventDownloaded Event = "downloaded" // Downloader reported Completed
	EventExtracted  Event = "extracted"  // Archive unpacked
	EventIntegrated Event = "integrated" // All integration steps attempted
	EventError      Event = "error"      // Current stage failed
	EventCancel     Event = "cancel"     // User cancelled
)

// StateInfo holds metadata about a state
type StateInfo struct {
	Name        State
	Description string
	Terminal    bool  // No more transitions possible
	Stage       Stage // Stage reported while in this state, empty if none
}

// StateRegistry maps states to their metadata
var StateRegistry = map[State]StateInfo{
	StateNotStarted: {
		Name:        StateNotStarted,
		Description: "Installation plan accepted",
	},
	StateDownloading: {
		Name:        StateDownloading,
		Description: "Downloading release asset",
		Stage:       StageDownload,
	},
	StateExtracting: {
		Name:        StateExtracting,
		Description: "Extracting archive",
		Stage:       StageExtract,
	},
	StateIntegrating: {
		Name:        StateIntegrating,
		Description: "Registering installation with the system",
		Stage:       StageIntegrate,
	},
	StateCompleted: {
		Name:        StateCompleted,
		Description: "Installation finished",
		Terminal:    true,
	},
	StateFailed: {
		Name:        StateFailed,
		Description: "Installation failed",
		Terminal:    true,
	},
	StateCancelled: {
		Name:        StateCancelled,
		Description: "Installation cancelled",
		Terminal:    true,
	},
}

// IsTerminal returns true if the state is terminal
func IsTerminal(s State) bool {
	info, ok := StateRegistry[s]
	return ok && info.Terminal
}

// StageOf returns the stage a state belongs to, or "" for states outside
// the pipeline.
func StageOf(s State) Stage {
	return StateRegistry[s].Stage
}

// Job is the data the state machine guards evaluate.
type Job struct {
	ID          string
	Version     string
	TargetDir   string
	AssetURL    string
	ArchivePath string // Where the download is expected to land
	Downloaded  string // Path reported by the completed download
}
