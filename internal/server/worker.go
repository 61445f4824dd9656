package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/cwbudde/analysisexchange/internal/runner"
	"github.com/cwbudde/analysisexchange/internal/store"
)

// resumeFraction is the width of the restart box around a saved point,
// relative to the full search box.
const resumeFraction = 0.25

// runJob executes an optimization job in the background.
// If runStore is not nil the evaluations are traced and the solution is saved
// as a snapshot under the job ID.
func runJob(ctx context.Context, jm *JobManager, runStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	defer jm.release(jobID)

	run, err := prepareRun(runStore, job)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}
	slog.Info("Starting job", "job_id", jobID, "problem", job.Config.Problem, "resumed_from", job.ResumedFrom)

	var trace *store.TraceWriter
	if runStore != nil {
		trace, err = store.NewTraceWriter(runStore.BaseDir(), jobID, false)
		if err != nil {
			markJobFailed(jm, jobID, err)
			return err
		}
		defer func() {
			if err := trace.Close(); err != nil {
				slog.Warn("Failed to close trace", "job_id", jobID, "error", err)
			}
		}()
	}

	// Check for cancellation before starting expensive operation
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	start := time.Now()
	var evaluations atomic.Int64
	progressDone, monitorExited := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(monitorExited)
		monitorProgress(ctx, jm, jobID, start, &evaluations, progressDone)
	}()

	sol, err := run.Execute(ctx, trace, func(p runner.Progress) {
		evaluations.Store(int64(p.Evaluation.Index))
		if p.Evaluation.Merit > p.BestMerit || math.IsInf(p.Evaluation.Merit, 1) {
			return
		}
		jm.UpdateJob(jobID, func(j *Job) {
			j.BestParams = p.Evaluation.Parameters
			j.BestMerit = store.Finite(p.BestMerit)
			j.Penalty = p.Evaluation.Penalty
		})
	})
	close(progressDone)
	<-monitorExited

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			markJobCancelled(jm, jobID)
		} else {
			markJobFailed(jm, jobID, err)
		}
		return err
	}

	record := func(j *Job) {
		j.BestParams = sol.Parameters
		j.BestMerit = store.Finite(sol.Merit)
		j.Penalty = sol.Penalty
		j.MaxResidual = sol.MaxResidual
		j.Feasible = sol.Feasible
		j.Evaluations = sol.Evaluations
	}

	// the snapshot must exist once the job reads completed
	if runStore != nil {
		if err := runStore.SaveSnapshot(jobID, run.Snapshot(sol)); err != nil {
			jm.UpdateJob(jobID, record)
			err = fmt.Errorf("failed to save snapshot: %w", err)
			markJobFailed(jm, jobID, err)
			return err
		}
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		record(j)
		j.State = StateCompleted
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"merit", sol.Merit,
		"feasible", sol.Feasible,
		"evaluations_per_second", float64(sol.Evaluations)/elapsed.Seconds(),
	)

	finished(jm, jobID, float64(sol.Evaluations)/elapsed.Seconds())
	return nil
}

// prepareRun builds the run of a job, narrowed around the saved point when
// the job resumes a stored run.
func prepareRun(runStore store.Store, job Job) (*runner.Run, error) {
	run, err := runner.New(job.ID, job.Config)
	if err != nil {
		return nil, err
	}
	if job.ResumedFrom == "" {
		return run, nil
	}
	if runStore == nil {
		return nil, fmt.Errorf("cannot resume %s without a store", job.ResumedFrom)
	}

	snapshot, err := runStore.LoadSnapshot(job.ResumedFrom)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := snapshot.IsCompatible(job.Config); err != nil {
		return nil, err
	}
	if err := run.Narrow(snapshot.Parameters, resumeFraction); err != nil {
		return nil, fmt.Errorf("failed to resume %s: %w", job.ResumedFrom, err)
	}
	return run, nil
}

// monitorProgress periodically broadcasts progress events during optimization
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, startTime time.Time, evaluations *atomic.Int64, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond) // Throttle to 2 updates per second
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := int(evaluations.Load())
			jm.UpdateJob(jobID, func(j *Job) { j.Evaluations = n })
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}

			var rate float64
			if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
				rate = float64(n) / elapsed
			}
			jm.broadcaster.Broadcast(eventFor(job, rate))
		}
	}
}

// finished broadcasts the final state of a job and drops its subscribers.
func finished(jm *JobManager, jobID string, rate float64) {
	if job, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(eventFor(job, rate))
	}
	jm.broadcaster.CleanupJob(jobID)
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
	finished(jm, jobID, 0)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
	finished(jm, jobID, 0)
}
