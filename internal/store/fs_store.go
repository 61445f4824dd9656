package store

import (
	"cmp"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
)

const (
	runsDir      = "runs"
	snapshotFile = "snapshot.json"
	traceFile    = "trace.jsonl"
)

// FSStore keeps one directory per run under <baseDir>/runs/<runID>/ holding
// snapshot.json and, when the run was traced, trace.jsonl.
//
// Writes go to a temporary file that is renamed into place, so concurrent
// readers never see a partial snapshot and no locking is needed.
type FSStore struct {
	baseDir string
}

// NewFSStore creates the base directory if needed and returns a store on it.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// RunDir returns the directory of a run. It is not created.
func (fs *FSStore) RunDir(runID string) string {
	return runDir(fs.baseDir, runID)
}

func runDir(baseDir, runID string) string {
	return filepath.Join(baseDir, runsDir, runID)
}

// Close is a no-op; FSStore holds no open resources.
func (fs *FSStore) Close() error {
	return nil
}

func (fs *FSStore) snapshotPath(runID string) string {
	return filepath.Join(fs.RunDir(runID), snapshotFile)
}

// SaveSnapshot validates and atomically writes the snapshot of a run.
func (fs *FSStore) SaveSnapshot(runID string, snapshot *Snapshot) error {
	switch {
	case runID == "":
		return fmt.Errorf("runID cannot be empty")
	case snapshot == nil:
		return fmt.Errorf("snapshot cannot be nil")
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	if err := os.MkdirAll(fs.RunDir(runID), 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	path := fs.snapshotPath(runID)
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	slog.Debug("Snapshot saved", "runID", runID, "path", path, "merit", snapshot.Merit)
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(tmp), err)
	}
	return nil
}

// LoadSnapshot reads the snapshot of a run. A missing snapshot gives a
// *NotFoundError.
func (fs *FSStore) LoadSnapshot(runID string) (*Snapshot, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	path := fs.snapshotPath(runID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot %s: %w", runID, err)
	}

	slog.Debug("Snapshot loaded", "runID", runID, "path", path)
	return &snapshot, nil
}

// ListSnapshots returns the metadata of every readable snapshot, newest
// first. Run directories without a snapshot, and unreadable snapshots, are
// skipped.
func (fs *FSStore) ListSnapshots() ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(filepath.Join(fs.baseDir, runsDir))
	if os.IsNotExist(err) {
		return []SnapshotInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	infos := []SnapshotInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(fs.snapshotPath(entry.Name())); err != nil {
			continue
		}
		snapshot, err := fs.LoadSnapshot(entry.Name())
		if err != nil {
			slog.Warn("Failed to load snapshot for listing", "runID", entry.Name(), "error", err)
			continue
		}
		infos = append(infos, snapshot.ToInfo())
	}

	slices.SortFunc(infos, func(a, b SnapshotInfo) int {
		return cmp.Or(b.Timestamp.Compare(a.Timestamp), cmp.Compare(a.RunID, b.RunID))
	})
	slog.Debug("Listed snapshots", "count", len(infos))
	return infos, nil
}

// DeleteSnapshot removes the run directory with everything in it.
func (fs *FSStore) DeleteSnapshot(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	dir := fs.RunDir(runID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Run deleted", "runID", runID, "path", dir)
	return nil
}

var _ Store = (*FSStore)(nil)
