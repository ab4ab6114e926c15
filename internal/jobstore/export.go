package jobstore

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/internal/parquet"
	"github.com/huangsam/geoseries/schema"
)

// Export writes every run and job to <outputFile>.runs.parquet and
// <outputFile>.jobs.parquet, printing progress to w.
func Export(store contract.JobStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get job store status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no job history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	jobs, err := store.GetAllJobs()
	if err != nil {
		return fmt.Errorf("failed to retrieve jobs: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	jobsFile := outputFile + ".jobs.parquet"
	if err := parquet.WriteJobsParquet(parquet.ConvertJobRecords(jobs), jobsFile); err != nil {
		return fmt.Errorf("failed to write jobs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d jobs to: %s\n", len(jobs), jobsFile)
	return nil
}

// statusOrder fixes the print order of job states.
var statusOrder = []schema.JobStatus{
	schema.JobQueued, schema.JobRunning, schema.JobCompleted, schema.JobFailed, schema.JobRejected,
}

// PrintStatus prints job store status information.
func PrintStatus(w io.Writer, status schema.JobStoreStatus) {
	_, _ = fmt.Fprintf(w, "Job Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Last Run ID: %d\n", status.LastRunID)
		_, _ = fmt.Fprintf(w, "Last Run: %s\n", status.LastRunTime.Local().Format(time.DateTime))
		_, _ = fmt.Fprintf(w, "Oldest Run: %s\n", status.OldestRunTime.Local().Format(time.DateTime))
	}
	_, _ = fmt.Fprintf(w, "Total Jobs: %d\n", status.TotalJobs)
	for _, st := range statusOrder {
		if n := status.StatusCounts[st]; n > 0 {
			_, _ = fmt.Fprintf(w, "  %s: %d\n", contract.GetColorLabel(st), n)
		}
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	for _, table := range Tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
