package store

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/dgraph-io/badger/v4"
)

const (
	badgerDir      = "snapshots.badger"
	snapshotPrefix = "snapshot/"
)

// BadgerStore keeps snapshots in an embedded BadgerDB under
// <baseDir>/snapshots.badger. Traces stay JSONL files in the run directories
// below baseDir, as with FSStore.
//
// The database is safe for concurrent use; every operation is one
// transaction.
type BadgerStore struct {
	db      *badger.DB
	baseDir string
}

// NewBadgerStore opens (creating if needed) the database below baseDir.
func NewBadgerStore(baseDir string) (*BadgerStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	opts := badger.DefaultOptions(filepath.Join(baseDir, badgerDir)).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: slog.Default()})
	return openBadger(opts, baseDir)
}

// NewInMemoryBadgerStore returns a store whose snapshots are lost on Close.
// Traces are still written below baseDir.
func NewInMemoryBadgerStore(baseDir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return openBadger(opts, baseDir)
}

func openBadger(opts badger.Options, baseDir string) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	return &BadgerStore{db: db, baseDir: baseDir}, nil
}

// badgerLogger routes badger's messages to slog. Info is demoted to debug,
// badger is chatty on open and close.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func snapshotKey(runID string) []byte {
	return []byte(snapshotPrefix + runID)
}

// BaseDir returns the data directory.
func (bs *BadgerStore) BaseDir() string {
	return bs.baseDir
}

// RunDir returns the directory of a run's trace. It is not created.
func (bs *BadgerStore) RunDir(runID string) string {
	return runDir(bs.baseDir, runID)
}

// SaveSnapshot validates the snapshot and stores it under the run ID.
func (bs *BadgerStore) SaveSnapshot(runID string, snapshot *Snapshot) error {
	switch {
	case runID == "":
		return fmt.Errorf("runID cannot be empty")
	case snapshot == nil:
		return fmt.Errorf("snapshot cannot be nil")
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(runID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	slog.Debug("Snapshot saved", "runID", runID, "backend", BackendBadger, "merit", snapshot.Merit)
	return nil
}

// LoadSnapshot reads the snapshot of a run. A missing snapshot gives a
// *NotFoundError.
func (bs *BadgerStore) LoadSnapshot(runID string) (*Snapshot, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	var data []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(runID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot %s: %w", runID, err)
	}
	return &snapshot, nil
}

// ListSnapshots returns the metadata of every readable snapshot, newest
// first.
func (bs *BadgerStore) ListSnapshots() ([]SnapshotInfo, error) {
	infos := []SnapshotInfo{}
	prefix := []byte(snapshotPrefix)

	err := bs.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var snapshot Snapshot
			err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &snapshot)
			})
			if err != nil {
				slog.Warn("Failed to load snapshot for listing", "key", string(item.Key()), "error", err)
				continue
			}
			infos = append(infos, snapshot.ToInfo())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	slices.SortFunc(infos, func(a, b SnapshotInfo) int {
		return cmp.Or(b.Timestamp.Compare(a.Timestamp), cmp.Compare(a.RunID, b.RunID))
	})
	return infos, nil
}

// DeleteSnapshot removes the snapshot and the run directory.
func (bs *BadgerStore) DeleteSnapshot(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	found := true
	err := bs.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(snapshotKey(runID)); errors.Is(err, badger.ErrKeyNotFound) {
			found = false
			return nil
		} else if err != nil {
			return err
		}
		return txn.Delete(snapshotKey(runID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	dir := bs.RunDir(runID)
	if _, err := os.Stat(dir); err == nil {
		found = true
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove run directory: %w", err)
		}
	}
	if !found {
		return &NotFoundError{RunID: runID}
	}

	slog.Debug("Run deleted", "runID", runID, "backend", BackendBadger)
	return nil
}

// Close closes the database.
func (bs *BadgerStore) Close() error {
	return bs.db.Close()
}

var _ Store = (*BadgerStore)(nil)
