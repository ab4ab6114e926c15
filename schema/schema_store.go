package schema

import "time"

// RunRecord represents a row from the geoseries_runs table.
type RunRecord struct {
	RunID     int64
	Recipe    string
	StartTime time.Time
	EndTime   *time.Time
	TotalJobs int32
	Params    *string
}

// JobRecord represents a row from the geoseries_jobs table.
type JobRecord struct {
	RunID       int64
	JobID       string
	Name        string
	Folder      string
	Format      ExportFormat
	Status      JobStatus
	Error       string
	Path        string
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// JobStoreStatus contains status information about the job tracking store.
type JobStoreStatus struct {
	Backend       string
	Connected     bool
	TotalRuns     int64
	TotalJobs     int64
	LastRunID     int64
	LastRunTime   time.Time
	OldestRunTime time.Time
	StatusCounts  map[JobStatus]int64
	TableSizes    map[string]int64
}
