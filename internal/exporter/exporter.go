// Package exporter is a local asynchronous export service. Jobs are queued on a
// worker pool and written under a root directory as GeoTIFF, CSV or Parquet.
package exporter

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/huangsam/geoseries/core/reduce"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/internal/geotiff"
	"github.com/huangsam/geoseries/internal/parquet"
	"github.com/huangsam/geoseries/schema"
	"github.com/sirupsen/logrus"
)

// ErrUnknownJob is returned by Status for IDs the service never issued.
var ErrUnknownJob = errors.New("unknown job")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("export service is closed")

// Service writes export jobs to disk in the background.
type Service struct {
	root   string
	pool   *workerpool.WorkerPool
	noData float64

	mu       sync.Mutex
	jobs     map[string]schema.JobHandle
	closed   bool
	inflight int
	idle     chan struct{} // closed while inflight is zero
}

var _ contract.ExportService = &Service{} // Compile-time check

// New returns a Service writing under root with the given number of workers.
func New(root string, workers int) *Service {
	if workers <= 0 {
		workers = 1
	}
	idle := make(chan struct{})
	close(idle)
	return &Service{
		root:   root,
		pool:   workerpool.New(workers),
		noData: geotiff.DefaultOptions().NoData,
		jobs:   make(map[string]schema.JobHandle),
		idle:   idle,
	}
}

// Root returns the output directory.
func (s *Service) Root() string { return s.root }

// Submit implements the ExportService interface. Jobs the service cannot
// write are refused up front; everything else is queued.
func (s *Service) Submit(ctx context.Context, job contract.ExportJob) (schema.JobHandle, error) {
	if err := ctx.Err(); err != nil {
		return schema.JobHandle{}, err
	}
	if err := check(job); err != nil {
		return schema.JobHandle{}, err
	}

	h := schema.JobHandle{
		ID:          uuid.NewString(),
		Name:        job.Name,
		Folder:      job.Folder,
		Format:      job.Params.Format,
		Status:      schema.JobQueued,
		SubmittedAt: time.Now(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.JobHandle{}, ErrClosed
	}
	s.jobs[h.ID] = h
	s.begin()
	s.pool.Submit(func() {
		defer s.finish()
		s.run(h.ID, job)
	})
	s.mu.Unlock()

	logrus.Debugf("queued export %s (%s)", job.Name, h.ID)
	return h, nil
}

// check refuses jobs this service cannot honor. Reprojection is out of scope,
// so the requested CRS must match the grid.
func check(job contract.ExportJob) error {
	if job.Image == nil {
		if job.Table == nil {
			return fmt.Errorf("job %q has no payload", job.Name)
		}
		return nil
	}
	crs := job.Image.Grid.CRS
	if job.Params.CRS != "" && !strings.EqualFold(strings.TrimSpace(job.Params.CRS), crs) {
		return fmt.Errorf("cannot write %s in %s: %w", job.Name, job.Params.CRS, &schema.GridMismatchError{Left: crs, Right: job.Params.CRS})
	}
	if _, err := geotiff.EPSGCode(crs); err != nil {
		return err
	}
	return nil
}

// begin counts a queued job. The caller holds mu.
func (s *Service) begin() {
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
}

func (s *Service) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

func (s *Service) update(id string, fn func(h *schema.JobHandle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.jobs[id]
	fn(&h)
	s.jobs[id] = h
}

func (s *Service) run(id string, job contract.ExportJob) {
	s.update(id, func(h *schema.JobHandle) { h.Status = schema.JobRunning })

	path := filepath.Join(s.root, filepath.FromSlash(job.Folder), job.Name+job.Params.Format.Extension())
	err := s.write(path, job)

	s.update(id, func(h *schema.JobHandle) {
		if err != nil {
			h.Status = schema.JobFailed
			h.Error = err.Error()
			return
		}
		h.Status = schema.JobCompleted
		h.Path = path
	})
	if err != nil {
		logrus.Warnf("export %s failed: %v", job.Name, err)
		return
	}
	logrus.Debugf("export %s written to %s", job.Name, path)
}

func (s *Service) write(path string, job contract.ExportJob) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	switch job.Params.Format {
	case schema.GeoTIFFFormat:
		img := job.Image
		if job.Params.Scale > 0 {
			var rerr error
			if img, rerr = reduce.ResampleAll(img, job.Region, job.Params.Scale); rerr != nil {
				return fmt.Errorf("failed to resample %s to %gm: %w", job.Name, job.Params.Scale, rerr)
			}
		}
		return geotiff.Encode(f, img, geotiff.Options{NoData: s.noData})
	case schema.CSVFormat:
		return WriteCSV(f, *job.Table)
	case schema.ParquetFormat:
		return parquet.Write(f, parquet.ConvertSeries(*job.Table))
	default:
		return fmt.Errorf("unsupported format %q", job.Params.Format)
	}
}

// WriteCSV writes a series as a wide table: a date column followed by one
// column per statistic. Missing values are written as NA.
func WriteCSV(w io.Writer, result schema.SeriesResult) error {
	cw := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	header := append([]string{"date"}, result.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range result.Records {
		row[0] = rec.Label
		for i, col := range result.Columns {
			row[i+1] = rec.Get(col).Format(-1)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Status implements the ExportService interface.
func (s *Service) Status(_ context.Context, id string) (schema.JobHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.jobs[id]
	if !ok {
		return schema.JobHandle{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return h, nil
}

// Wait implements the ExportService interface. Jobs queued while waiting
// are waited for as well.
func (s *Service) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		idle, busy := s.idle, s.inflight > 0
		s.mu.Unlock()
		if !busy {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.pool.StopWait()
}
