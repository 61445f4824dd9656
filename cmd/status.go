package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cwbudde/analysisexchange/internal/server"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	cancelJob bool
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	statusCmd.Flags().BoolVar(&cancelJob, "cancel", false, "Cancel the given job")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		if cancelJob {
			return fmt.Errorf("--cancel needs a job id")
		}
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}

	jobID := args[0]
	if cancelJob {
		return cancelRemoteJob(fmt.Sprintf("%s/api/v1/jobs/%s/cancel", serverURL, jobID), jobID)
	}
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []server.Job
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job.ID)
		fmt.Printf("  State: %s\n", job.State)
		fmt.Printf("  Problem: %s\n", job.Config.Problem)
		if job.BestMerit != nil {
			fmt.Printf("  Best merit: %g (feasible: %t)\n", *job.BestMerit, job.Feasible)
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status struct {
		server.Job
		Elapsed float64 `json:"elapsed"`
		Rate    float64 `json:"evaluationsPerSecond"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	// Display status
	fmt.Printf("Job: %s\n", status.ID)
	fmt.Printf("State: %s\n", status.State)
	if status.ResumedFrom != "" {
		fmt.Printf("Resumed from: %s\n", status.ResumedFrom)
	}
	fmt.Println()

	config := status.Config
	fmt.Println("Configuration:")
	fmt.Printf("  Problem: %s\n", config.Problem)
	if len(config.Command) > 0 {
		fmt.Printf("  Command: %v\n", config.Command)
	}
	fmt.Printf("  Iterations: %d\n", config.Iters)
	fmt.Printf("  Population: %d\n", config.PopSize)
	fmt.Printf("  Barrier: length %g, height %g\n", config.BarrierLength, config.BarrierHeight)
	fmt.Println()

	fmt.Println("Progress:")
	fmt.Printf("  Evaluations: %d\n", status.Evaluations)
	if status.BestMerit != nil {
		fmt.Printf("  Best merit: %g\n", *status.BestMerit)
	}
	if status.State == server.StateCompleted {
		fmt.Printf("  Penalty: %g\n", status.Penalty)
		fmt.Printf("  Max residual: %g (feasible: %t)\n", status.MaxResidual, status.Feasible)
		fmt.Printf("  Parameters: %v\n", status.BestParams)
	}
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.Rate > 0 {
		fmt.Printf("  Throughput: %.1f evaluations/sec\n", status.Rate)
	}

	if status.Error != "" {
		fmt.Printf("\nError: %s\n", status.Error)
	}

	return nil
}

func cancelRemoteJob(url, jobID string) error {
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		fmt.Printf("Cancelling job %s\n", jobID)
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("job not found: %s", jobID)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}
}
