package store

import "fmt"

// Store defines the interface for snapshot persistence operations.
// Implementations must be thread-safe and handle concurrent access gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if snapshot doesn't exist (for Load/Delete)
//   - Return descriptive errors for I/O, serialization, or validation failures
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveSnapshot atomically saves a snapshot for the given run.
	// If a snapshot already exists for this runID, it is overwritten.
	SaveSnapshot(runID string, snapshot *Snapshot) error

	// LoadSnapshot retrieves the snapshot for the given run.
	// Returns ErrNotFound if no snapshot exists for this runID.
	LoadSnapshot(runID string) (*Snapshot, error)

	// ListSnapshots returns metadata for all available snapshots.
	// The returned slice may be empty if no snapshots exist.
	ListSnapshots() ([]SnapshotInfo, error)

	// DeleteSnapshot removes the snapshot and all associated artifacts
	// (the snapshot and trace.jsonl) for the given run.
	// Returns ErrNotFound if nothing is stored for this runID.
	DeleteSnapshot(runID string) error

	// BaseDir is the data directory. Traces live below it for every backend.
	BaseDir() string

	// RunDir returns the directory holding the files of a run.
	RunDir(runID string) string

	// Close releases the resources of the store.
	Close() error
}

// Backends accepted by Open.
const (
	BackendFS     = "fs"
	BackendBadger = "badger"
)

// Open returns the store of the given backend on baseDir.
func Open(backend, baseDir string) (Store, error) {
	switch backend {
	case BackendFS, "":
		return NewFSStore(baseDir)
	case BackendBadger:
		return NewBadgerStore(baseDir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// ErrNotFound is returned when a requested snapshot does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing snapshot error.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "snapshot not found: " + e.RunID
	}
	return "snapshot not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
