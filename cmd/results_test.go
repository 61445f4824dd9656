package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/analysisexchange/internal/store"
)

func testRunConfig() store.RunConfig {
	return store.RunConfig{
		Problem:       "quadratic",
		Iters:         20,
		PopSize:       20,
		Seed:          1,
		BarrierLength: 0.1,
		BarrierHeight: 10,
	}
}

func saveTestRun(t *testing.T, runStore *store.FSStore, id string, age time.Duration) {
	t.Helper()
	snapshot := store.NewSnapshot(id, []float64{1, 2}, 0.5, 0, 0, true, 10, nil, testRunConfig())
	snapshot.Timestamp = time.Now().Add(-age)
	if err := runStore.SaveSnapshot(id, snapshot); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}
}

func useResultsDir(t *testing.T, dir string) {
	t.Helper()
	original := resultsDataDir
	resultsDataDir = dir
	t.Cleanup(func() { resultsDataDir = original })
}

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.SnapshotInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)}, // 10 days old
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},  // 5 days old
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},  // 1 day old
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)}, // 30 days old
	}

	// Delete runs older than 7 days
	toDelete := selectRunsForDeletion(infos, 0, 7)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	// oldest first
	if toDelete[0].RunID != "run4" || toDelete[1].RunID != "run1" {
		t.Errorf("Expected run4 and run1, got %s and %s", toDelete[0].RunID, toDelete[1].RunID)
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.SnapshotInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}

	// Keep only the newest 2 runs
	toDelete := selectRunsForDeletion(infos, 2, 0)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	if toDelete[0].RunID != "run4" || toDelete[1].RunID != "run1" {
		t.Errorf("Expected run4 and run1 (oldest), got %s and %s", toDelete[0].RunID, toDelete[1].RunID)
	}

	if got := selectRunsForDeletion(infos, 10, 0); len(got) != 0 {
		t.Errorf("Expected nothing to delete when keeping more than exist, got %d", len(got))
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.SnapshotInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
		{RunID: "run5", Timestamp: now.AddDate(0, 0, -2)},
	}

	// Older than 7 days selects run4 and run1; keeping 2 adds run2
	toDelete := selectRunsForDeletion(infos, 2, 7)

	want := []string{"run4", "run1", "run2"}
	if len(toDelete) != len(want) {
		t.Fatalf("Expected %d runs to delete, got %d", len(want), len(toDelete))
	}
	for i, id := range want {
		if toDelete[i].RunID != id {
			t.Errorf("toDelete[%d] = %s, expected %s", i, toDelete[i].RunID, id)
		}
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}

	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestResultsListCommand_NoRuns(t *testing.T) {
	useResultsDir(t, t.TempDir())

	if err := runListResults(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestResultsListAndShow(t *testing.T) {
	tmpDir := t.TempDir()
	useResultsDir(t, tmpDir)

	runStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestRun(t, runStore, "test-run-id", 0)

	trace, err := store.NewTraceWriter(tmpDir, "test-run-id", false)
	if err != nil {
		t.Fatalf("Failed to create trace: %v", err)
	}
	trace.Write(store.TraceEntry{Evaluation: 0, Merit: store.Finite(2), Timestamp: time.Now()})
	trace.Write(store.TraceEntry{Evaluation: 1, Error: "boom", Timestamp: time.Now()})
	if err := trace.Close(); err != nil {
		t.Fatalf("Failed to close trace: %v", err)
	}

	if err := runListResults(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := runShowResult(nil, []string{"test-run-id"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	summary, err := summarizeTrace(tmpDir, "test-run-id")
	if err != nil {
		t.Fatalf("summarizeTrace failed: %v", err)
	}
	if summary.entries != 2 || summary.failed != 1 {
		t.Errorf("Expected 2 entries with 1 failure, got %d and %d", summary.entries, summary.failed)
	}

	if err := runShowResult(nil, []string{"missing"}); err == nil {
		t.Error("Expected error for missing run")
	}
}

func TestResultsDeleteCommand(t *testing.T) {
	tmpDir := t.TempDir()
	useResultsDir(t, tmpDir)

	runStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestRun(t, runStore, "a", 0)

	if err := runDeleteResults(nil, []string{"a"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := runStore.LoadSnapshot("a"); err == nil {
		t.Error("Expected run to be deleted")
	}
	if err := runDeleteResults(nil, []string{"a"}); err == nil {
		t.Error("Expected error deleting a missing run")
	}
}

func TestResultsCleanCommand_NoFlags(t *testing.T) {
	useResultsDir(t, t.TempDir())

	keepLast = 0
	olderThanDays = 0

	if err := runCleanResults(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestResultsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	useResultsDir(t, tmpDir)

	runStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestRun(t, runStore, "old-run", 30*24*time.Hour)
	saveTestRun(t, runStore, "new-run", 0)

	keepLast = 0
	olderThanDays = 7
	forceClean = true
	tracesOnly = false
	t.Cleanup(func() { olderThanDays, forceClean = 0, false })

	if err := runCleanResults(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if _, err := runStore.LoadSnapshot("old-run"); err == nil {
		t.Error("Expected old run to be deleted")
	}
	if _, err := runStore.LoadSnapshot("new-run"); err != nil {
		t.Errorf("Expected new run to survive, got %v", err)
	}
}
