package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/analysisexchange/internal/config"
	"github.com/cwbudde/analysisexchange/internal/store"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	resultsDataDir string
	keepLast       int
	olderThanDays  int
	forceClean     bool
	tracesOnly     bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage stored optimization runs",
	Long: `Manage stored runs: the best-point snapshot and the evaluation trace of
every optimization. Snapshots allow resuming near a previous optimum.`,
}

var listResultsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored runs",
	Long:  `Display all runs with run ID, timestamp, problem, evaluations, merit, feasibility and size on disk.`,
	Args:  cobra.NoArgs,
	RunE:  runListResults,
}

var showResultCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the snapshot and trace summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowResult,
}

var deleteResultCmd = &cobra.Command{
	Use:   "delete <run-id>...",
	Short: "Delete runs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDeleteResults,
}

var cleanResultsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old runs",
	Long: `Delete old runs based on retention policy.
You can keep only the newest N runs or delete runs older than N days. With
--traces-only the snapshots stay and only the evaluation traces are removed.`,
	Args: cobra.NoArgs,
	RunE: runCleanResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.AddCommand(listResultsCmd)
	resultsCmd.AddCommand(showResultCmd)
	resultsCmd.AddCommand(deleteResultCmd)
	resultsCmd.AddCommand(cleanResultsCmd)

	resultsCmd.PersistentFlags().StringVar(&resultsDataDir, "data-dir", "", "Base directory for run storage (default from config)")

	cleanResultsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N runs (0 = keep all)")
	cleanResultsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanResultsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
	cleanResultsCmd.Flags().BoolVar(&tracesOnly, "traces-only", false, "Delete only the traces of the selected runs")
}

func openResultsStore() (store.Store, error) {
	c := config.Default()
	if cfg != nil {
		c = cfg
	}
	dataDir := c.Store.DataDir
	if resultsDataDir != "" {
		dataDir = resultsDataDir
	}
	runStore, err := store.Open(c.Store.Backend, dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return runStore, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

func runListResults(cmd *cobra.Command, args []string) error {
	runStore, err := openResultsStore()
	if err != nil {
		return err
	}
	defer runStore.Close()

	infos, err := runStore.ListSnapshots()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTIMESTAMP\tPROBLEM\tEVALUATIONS\tMERIT\tFEASIBLE\tSIZE")
	fmt.Fprintln(w, "------\t---------\t-------\t-----------\t-----\t--------\t----")

	for _, info := range infos {
		size, err := getDirSize(runStore.RunDir(info.RunID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%t\t%s\n",
			shortID(info.RunID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Problem,
			info.Evaluations,
			info.Merit,
			info.Feasible,
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal runs: %d\n", len(infos))
	return nil
}

// traceSummary counts the entries of a run's trace.
type traceSummary struct {
	entries int
	failed  int
	first   time.Time
	last    time.Time
}

func summarizeTrace(baseDir, runID string) (*traceSummary, error) {
	reader, err := store.NewTraceReader(baseDir, runID)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var s traceSummary
	for {
		entry, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if s.entries == 0 {
			s.first = entry.Timestamp
		}
		s.last = entry.Timestamp
		s.entries++
		if entry.Error != "" {
			s.failed++
		}
	}
	return &s, nil
}

func runShowResult(cmd *cobra.Command, args []string) error {
	runStore, err := openResultsStore()
	if err != nil {
		return err
	}
	defer runStore.Close()
	snapshot, err := runStore.LoadSnapshot(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Run: %s\n", snapshot.RunID)
	fmt.Printf("Timestamp: %s\n", snapshot.Timestamp.Format(time.RFC3339))
	fmt.Printf("Problem: %s\n", snapshot.Config.Problem)
	if len(snapshot.Config.Command) > 0 {
		fmt.Printf("Command: %v\n", snapshot.Config.Command)
	}
	fmt.Println()
	fmt.Printf("Parameters: %v\n", snapshot.Parameters)
	fmt.Printf("Merit: %g (penalty %g)\n", snapshot.Merit, snapshot.Penalty)
	fmt.Printf("Max residual: %g, feasible: %t\n", snapshot.MaxResidual, snapshot.Feasible)
	fmt.Printf("Evaluations: %d\n", snapshot.Evaluations)

	r, err := snapshot.AnalysisResult()
	if err != nil {
		return fmt.Errorf("failed to read stored result: %w", err)
	}
	if r != nil {
		fmt.Printf("Objective: %g\n", r.Objective())
		if c := r.Constraints(); c != nil {
			fmt.Printf("Constraints: %v\n", c)
		}
	}

	summary, err := summarizeTrace(runStore.BaseDir(), snapshot.RunID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Println("\nNo trace recorded.")
	case err != nil:
		return fmt.Errorf("failed to read trace: %w", err)
	default:
		fmt.Printf("\nTrace: %d entries, %d failed", summary.entries, summary.failed)
		if summary.entries > 1 {
			fmt.Printf(", %s", summary.last.Sub(summary.first).Round(time.Millisecond))
		}
		fmt.Println()
	}
	return nil
}

func runDeleteResults(cmd *cobra.Command, args []string) error {
	runStore, err := openResultsStore()
	if err != nil {
		return err
	}
	defer runStore.Close()
	var failed int
	for _, id := range args {
		if err := runStore.DeleteSnapshot(id); err != nil {
			slog.Error("Failed to delete run", "runID", id, "error", err)
			failed++
			continue
		}
		fmt.Printf("Deleted %s\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d run(s) could not be deleted", failed, len(args))
	}
	return nil
}

func runCleanResults(cmd *cobra.Command, args []string) error {
	// Validate flags
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	runStore, err := openResultsStore()
	if err != nil {
		return err
	}
	defer runStore.Close()

	infos, err := runStore.ListSnapshots()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No runs to clean.")
		return nil
	}

	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No runs match deletion criteria.")
		return nil
	}

	what := "run(s)"
	if tracesOnly {
		what = "trace(s)"
	}
	fmt.Printf("Found %d %s to delete:\n", len(toDelete), what)
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s, %s)\n",
			shortID(info.RunID),
			info.Problem,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	// Ask for confirmation unless --force is set
	if !forceClean {
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return fmt.Errorf("refusing to delete without confirmation; stdin is not a terminal, use --force")
		}
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		var err error
		if tracesOnly {
			err = store.DeleteTrace(runStore.BaseDir(), info.RunID)
		} else {
			err = runStore.DeleteSnapshot(info.RunID)
		}
		if err != nil {
			slog.Error("Failed to delete run", "runID", info.RunID, "error", err)
			failed++
		} else {
			slog.Info("Deleted run", "runID", info.RunID, "tracesOnly", tracesOnly)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d %s, %d failed.\n", deleted, what, failed)
	return nil
}

// selectRunsForDeletion applies the retention policy: runs older than
// olderThanDays, plus everything but the newest keepLast runs. Zero disables
// a rule. The result is oldest first without duplicates.
func selectRunsForDeletion(infos []store.SnapshotInfo, keepLast int, olderThanDays int) []store.SnapshotInfo {
	sorted := slices.Clone(infos)
	slices.SortFunc(sorted, func(a, b store.SnapshotInfo) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var cutoff time.Time
	if olderThanDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -olderThanDays)
	}
	excess := 0
	if keepLast > 0 && len(sorted) > keepLast {
		excess = len(sorted) - keepLast
	}

	var toDelete []store.SnapshotInfo
	for i, info := range sorted {
		if i < excess || (olderThanDays > 0 && info.Timestamp.Before(cutoff)) {
			toDelete = append(toDelete, info)
		}
	}
	return toDelete
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
