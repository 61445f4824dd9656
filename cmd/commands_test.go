package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/analysisexchange/internal/analysis"
	"github.com/cwbudde/analysisexchange/internal/config"
	"github.com/cwbudde/analysisexchange/internal/opt"
	"github.com/cwbudde/analysisexchange/internal/protocol"
	"github.com/cwbudde/analysisexchange/internal/runner"
	"github.com/cwbudde/analysisexchange/internal/store"
	"github.com/spf13/cobra"
)

func useDefaultConfig(t *testing.T) *config.Config {
	t.Helper()
	original := cfg
	cfg = config.Default()
	cfg.Store.DataDir = t.TempDir()
	t.Cleanup(func() { cfg = original })
	return cfg
}

func writeRequestFile(t *testing.T, path string, params []float64) {
	t.Helper()
	r := analysis.New()
	if err := r.SetParameters(params); err != nil {
		t.Fatalf("SetParameters failed: %v", err)
	}
	r.SetRequested(analysis.Objective|analysis.Constraints, true)
	if err := protocol.SaveRequestMath(path, r, "test", false); err != nil {
		t.Fatalf("Failed to write request: %v", err)
	}
}

func TestEvalCommand(t *testing.T) {
	useDefaultConfig(t)
	dir := t.TempDir()
	reqPath := filepath.Join(dir, "eval-1.req")
	writeRequestFile(t, reqPath, []float64{2, 1})

	if err := runEval(nil, []string{reqPath}); err != nil {
		t.Fatalf("runEval failed: %v", err)
	}

	r := analysis.New()
	if err := protocol.LoadMath(filepath.Join(dir, "eval-1.res"), r); err != nil {
		t.Fatalf("Failed to load result: %v", err)
	}
	if r.Objective() != 901 {
		t.Errorf("Expected objective 901, got %g", r.Objective())
	}
	if c := r.Constraints(); len(c) != 1 || c[0] != 3 {
		t.Errorf("Expected constraints [3], got %v", c)
	}

	// inspect reads the result back with the same problem
	if err := runInspect(nil, []string{filepath.Join(dir, "eval-1.res")}); err != nil {
		t.Errorf("runInspect failed: %v", err)
	}
}

func TestEvalCommand_AnalysisFailure(t *testing.T) {
	useDefaultConfig(t)
	dir := t.TempDir()
	reqPath := filepath.Join(dir, "bad.req")
	resPath := filepath.Join(dir, "custom.res")
	// rosenbrock has two parameters
	writeRequestFile(t, reqPath, []float64{1, 2, 3})

	if err := runEval(nil, []string{reqPath, resPath}); err != nil {
		t.Fatalf("Expected failure to be reported in the result file, got %v", err)
	}

	r := analysis.New()
	if err := protocol.LoadMath(resPath, r); err != nil {
		t.Fatalf("Failed to load result: %v", err)
	}
	if r.ErrorCode() != -1 {
		t.Errorf("Expected error code -1, got %d", r.ErrorCode())
	}
}

func TestEvalCommand_Unreadable(t *testing.T) {
	useDefaultConfig(t)
	reqPath := filepath.Join(t.TempDir(), "junk.req")
	if err := os.WriteFile(reqPath, []byte("{ junk"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := runEval(nil, []string{reqPath}); err == nil {
		t.Error("Expected error for unreadable request")
	}
}

func TestEvalCommand_UnknownProblem(t *testing.T) {
	useDefaultConfig(t)
	evalProblem = "nope"
	t.Cleanup(func() { evalProblem = "" })

	if err := runEval(nil, []string{"x.req"}); err == nil {
		t.Error("Expected error for unknown problem")
	}
}

func TestRunFlagsApply(t *testing.T) {
	c := config.Default()
	c.Problem.Lower = []float64{0, 0}
	c.Problem.Upper = []float64{1, 1}

	var f runFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	if err := cmd.Flags().Parse([]string{"--problem", "quadratic", "--iters", "5", "--keep-files"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	f.apply(cmd, c)

	if c.Problem.Name != "quadratic" || c.Problem.Lower != nil {
		t.Errorf("Expected problem quadratic with bounds cleared, got %s %v", c.Problem.Name, c.Problem.Lower)
	}
	if c.Optimizer.Iterations != 5 {
		t.Errorf("Expected 5 iterations, got %d", c.Optimizer.Iterations)
	}
	if c.Optimizer.Population != 30 || c.Optimizer.Seed != 42 {
		t.Errorf("Unset flags must keep config values, got pop %d seed %d", c.Optimizer.Population, c.Optimizer.Seed)
	}
	if !c.Exchange.KeepFiles {
		t.Error("Expected keep files to be set")
	}
}

func TestExecuteRunStoresSnapshot(t *testing.T) {
	dataDir := t.TempDir()
	run, err := runner.New("cli-run", testRunConfig())
	if err != nil {
		t.Fatalf("runner.New failed: %v", err)
	}
	runStore, err := store.NewFSStore(dataDir)
	if err != nil {
		t.Fatal(err)
	}

	if err := executeRun(context.Background(), run, runStore); err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}

	snapshot, err := runStore.LoadSnapshot("cli-run")
	if err != nil {
		t.Fatalf("Expected snapshot, got %v", err)
	}
	if snapshot.Evaluations == 0 {
		t.Error("Expected evaluations in snapshot")
	}

	summary, err := summarizeTrace(dataDir, "cli-run")
	if err != nil {
		t.Fatalf("Expected trace, got %v", err)
	}
	if summary.entries != snapshot.Evaluations {
		t.Errorf("Expected %d trace entries, got %d", snapshot.Evaluations, summary.entries)
	}
}

func TestResumeCommand(t *testing.T) {
	c := useDefaultConfig(t)
	// badger locks its directory, only one store may be open at a time
	c.Store.Backend = store.BackendBadger
	run, err := runner.New("first", testRunConfig())
	if err != nil {
		t.Fatalf("runner.New failed: %v", err)
	}
	first, err := openStore(c)
	if err != nil {
		t.Fatal(err)
	}
	if err := executeRun(context.Background(), run, first); err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}
	first.Close()

	cmd := &cobra.Command{Use: "resume"}
	cmd.SetContext(context.Background())
	resumeFlags.register(cmd)

	if err := runResume(cmd, []string{"first"}); err != nil {
		t.Fatalf("runResume failed: %v", err)
	}
	if err := runResume(cmd, []string{"missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound resuming a missing run, got %v", err)
	}

	runStore, err := openStore(c)
	if err != nil {
		t.Fatal(err)
	}
	defer runStore.Close()
	infos, err := runStore.ListSnapshots()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Errorf("Expected 2 runs after resume, got %d", len(infos))
	}
}

func TestLogProgressCountsEvaluations(t *testing.T) {
	var buf bytes.Buffer
	original := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(original) })

	logProgress("run-1", runner.Progress{Evaluation: opt.Evaluation{Index: 1}, BestMerit: 2.5})

	var entry struct {
		Msg         string  `json:"msg"`
		RunID       string  `json:"runID"`
		Evaluations int     `json:"evaluations"`
		BestMerit   float64 `json:"bestMerit"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode log line %q: %v", buf.String(), err)
	}
	if entry.Msg != "Progress" || entry.RunID != "run-1" {
		t.Errorf("Unexpected log entry: %+v", entry)
	}
	if entry.Evaluations != 1 {
		t.Errorf("Expected 1 evaluation after the first progress report, got %d", entry.Evaluations)
	}
}
