// Package parquet provides data structures and functions for exporting series
// tables and job history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/geoseries/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single pipeline run with metadata.
// This struct maps to the geoseries_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// Recipe is the name of the recipe that was run
	Recipe string `parquet:"recipe,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// TotalJobs is the number of export jobs the run submitted
	TotalJobs int32 `parquet:"total_jobs,snappy"`

	// Params contains the JSON-encoded run parameters (nullable)
	Params *string `parquet:"params,optional,snappy"`
}

// Job represents one export job of a run.
// This struct maps to the geoseries_jobs database table.
type Job struct {
	RunID       int64     `parquet:"run_id,snappy"`
	JobID       string    `parquet:"job_id,snappy"`
	Name        string    `parquet:"name,snappy"`
	Folder      string    `parquet:"folder,snappy"`
	Format      string    `parquet:"format,snappy"`
	Status      string    `parquet:"status,snappy"`
	Error       *string   `parquet:"error,optional,snappy"`
	Path        *string   `parquet:"path,optional,snappy"`
	SubmittedAt time.Time `parquet:"submitted_at,snappy"`
	UpdatedAt   time.Time `parquet:"updated_at,snappy"`
}

// SeriesValue is one cell of a series table in long form: one row per
// period and statistic column. A missing measurement has a nil Value.
type SeriesValue struct {
	Recipe string    `parquet:"recipe,dict,snappy"`
	Label  string    `parquet:"label,snappy"`
	Time   time.Time `parquet:"time,snappy"`
	NoData bool      `parquet:"no_data,snappy"`
	Column string    `parquet:"column,dict,snappy"`
	Value  *float64  `parquet:"value,optional,snappy"`
}

// Write encodes rows to w using the schema inferred from T's struct tags.
func Write[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// WriteFile writes rows to a new Parquet file at outputPath.
func WriteFile[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return WriteFile(data, outputPath)
}

// WriteJobsParquet writes jobs to a Parquet file.
func WriteJobsParquet(data []Job, outputPath string) error {
	return WriteFile(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:     record.RunID,
			Recipe:    record.Recipe,
			StartTime: record.StartTime,
			EndTime:   record.EndTime,
			TotalJobs: record.TotalJobs,
			Params:    record.Params,
		}
	}
	return result
}

// ConvertJobRecords converts schema.JobRecord to Job for Parquet export.
func ConvertJobRecords(records []schema.JobRecord) []Job {
	result := make([]Job, len(records))
	for i, record := range records {
		result[i] = Job{
			RunID:       record.RunID,
			JobID:       record.JobID,
			Name:        record.Name,
			Folder:      record.Folder,
			Format:      string(record.Format),
			Status:      string(record.Status),
			Error:       optional(record.Error),
			Path:        optional(record.Path),
			SubmittedAt: record.SubmittedAt,
			UpdatedAt:   record.UpdatedAt,
		}
	}
	return result
}

// ConvertSeries flattens a series into long-form rows, in record then column order.
func ConvertSeries(result schema.SeriesResult) []SeriesValue {
	out := make([]SeriesValue, 0, len(result.Records)*len(result.Columns))
	for _, rec := range result.Records {
		for _, col := range result.Columns {
			row := SeriesValue{
				Recipe: result.Recipe,
				Label:  rec.Label,
				Time:   rec.Time,
				NoData: rec.NoData,
				Column: col,
			}
			if m := rec.Get(col); m.Valid {
				v := m.Value
				row.Value = &v
			}
			out = append(out, row)
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
