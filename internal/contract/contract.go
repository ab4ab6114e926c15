// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/region"
	"github.com/huangsam/geoseries/schema"
	"github.com/paulmach/orb"
)

// CatalogQuery selects slices from one dataset.
type CatalogQuery struct {
	Dataset string
	Bands   []string
	Bound   orb.Bound
	Start   time.Time
	End     time.Time // exclusive
	Filters []schema.Filter
}

// Catalog is the source of raster collections.
// This allows the pipeline to be tested without touching the filesystem.
type Catalog interface {
	// Datasets lists every collection the catalog knows about.
	Datasets(ctx context.Context) ([]schema.DatasetInfo, error)

	// Describe returns band names, CRS and pixel size of a collection.
	Describe(ctx context.Context, dataset string) (schema.DatasetInfo, error)

	// Grid returns the grid Query would produce for the given bound, so
	// placeholders line up with real slices.
	Grid(ctx context.Context, dataset string, bound orb.Bound) (raster.Grid, error)

	// Query returns matching slices cropped to the bound, holding only the
	// requested bands. Order is unspecified.
	Query(ctx context.Context, q CatalogQuery) ([]*raster.Slice, error)
}

// ExportJob is one unit of work handed to an ExportService. Exactly one of
// Image or Table is set.
type ExportJob struct {
	Name   string
	Folder string
	Image  *raster.Slice
	Region *region.Region
	Table  *schema.SeriesResult
	Params schema.ExportParams
}

// ExportService is the asynchronous batch export backend.
type ExportService interface {
	// Submit queues a job and returns without waiting for completion.
	// An error means the service refused this job only.
	Submit(ctx context.Context, job ExportJob) (schema.JobHandle, error)

	// Status returns the latest known state of a job.
	Status(ctx context.Context, id string) (schema.JobHandle, error)

	// Wait blocks until every queued job is terminal or ctx is done.
	Wait(ctx context.Context) error
}

// JobStore defines the interface for tracking runs and their export jobs.
type JobStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(recipe string, startTime time.Time, params map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalJobs int) error

	// RecordJob stores a freshly submitted job
	RecordJob(runID int64, handle schema.JobHandle) error

	// UpdateJob records a status transition
	UpdateJob(jobID string, status schema.JobStatus, errMsg, path string) error

	// GetStatus returns status information about the store
	GetStatus() (schema.JobStoreStatus, error)

	// GetAllRuns retrieves every run
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllJobs retrieves every job
	GetAllJobs() ([]schema.JobRecord, error)

	// Close closes the underlying connection
	Close() error
}

// Renderer produces human-facing previews. Nothing it returns feeds back into
// pipeline computation.
type Renderer interface {
	RenderLayer(ctx context.Context, s *raster.Slice, style schema.PreviewSpec, name string) (string, error)
	RenderChart(ctx context.Context, result schema.SeriesResult, style schema.PreviewSpec, name string) (string, error)
}
