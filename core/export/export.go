// Package export validates and submits batches of export jobs.
package export

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/huangsam/geoseries/core/reduce"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/sirupsen/logrus"
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	safeName    = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// FileName builds an export name from a prefix and a timestamp, replacing
// anything a filesystem might object to with an underscore.
func FileName(prefix string, t time.Time, layout string) string {
	if layout == "" {
		layout = schema.DefaultDateLayout
	}
	return Sanitize(prefix + t.Format(layout))
}

// Sanitize makes s safe to use as a file name.
func Sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, ".")
}

// ValidName reports whether name can be used as-is.
func ValidName(name string) bool {
	return safeName.MatchString(name) && strings.Trim(name, ".") != ""
}

// Driver submits export jobs to a service and tracks their handles.
type Driver struct {
	service contract.ExportService
	store   contract.JobStore // optional
	runID   int64
	handles []schema.JobHandle
}

// NewDriver returns a Driver. store may be nil. A zero runID means the run
// was never recorded, so its jobs are not recorded either.
func NewDriver(service contract.ExportService, store contract.JobStore, runID int64) *Driver {
	if runID == 0 {
		store = nil
	}
	return &Driver{service: service, store: store, runID: runID}
}

// normalize fills in the default format for the payload.
func normalize(job contract.ExportJob) contract.ExportJob {
	if job.Params.Format == "" {
		if job.Image != nil {
			job.Params.Format = schema.GeoTIFFFormat
		} else {
			job.Params.Format = schema.CSVFormat
		}
	}
	return job
}

// Validate checks the whole batch without submitting anything.
func Validate(jobs []contract.ExportJob) error {
	seen := make(map[string]int, len(jobs))
	for i, job := range jobs {
		job = normalize(job)
		if !ValidName(job.Name) {
			return fmt.Errorf("job %d: %w: %q", i, schema.ErrInvalidName, job.Name)
		}
		if job.Folder != "" && !validFolder(job.Folder) {
			return fmt.Errorf("job %d: %w: folder %q", i, schema.ErrInvalidName, job.Folder)
		}
		key := path.Join(job.Folder, job.Name)
		if _, dup := seen[key]; dup {
			return &schema.DuplicateNameError{Name: key}
		}
		seen[key] = i

		if _, ok := schema.ValidExportFormats[job.Params.Format]; !ok {
			return fmt.Errorf("job %q: unsupported format %q", job.Name, job.Params.Format)
		}
		switch {
		case job.Image == nil && job.Table == nil:
			return fmt.Errorf("job %q: no payload", job.Name)
		case job.Image != nil && job.Table != nil:
			return fmt.Errorf("job %q: both an image and a table were given", job.Name)
		case job.Image != nil && job.Params.Format.IsTabular():
			return fmt.Errorf("job %q: image cannot be written as %s", job.Name, job.Params.Format)
		case job.Table != nil && !job.Params.Format.IsTabular():
			return fmt.Errorf("job %q: table cannot be written as %s", job.Name, job.Params.Format)
		}

		if job.Image != nil && job.Region != nil {
			if err := reduce.CheckBudget(job.Image.Grid, job.Region, job.Params.Scale, job.Params.MaxCells); err != nil {
				return fmt.Errorf("job %q: %w", job.Name, err)
			}
		}
	}
	return nil
}

func validFolder(folder string) bool {
	for _, part := range strings.Split(folder, "/") {
		if part == "" || part == "." || part == ".." || !safeName.MatchString(part) {
			return false
		}
	}
	return true
}

// Submit validates the batch, then submits every job in order. A job the
// service refuses gets a rejected handle; its siblings are still submitted.
// Submit does not wait for the jobs to finish.
func (d *Driver) Submit(ctx context.Context, jobs []contract.ExportJob) ([]schema.JobHandle, error) {
	if err := Validate(jobs); err != nil {
		return nil, err
	}

	out := make([]schema.JobHandle, 0, len(jobs))
	for _, job := range jobs {
		job = normalize(job)
		h, err := d.service.Submit(ctx, job)
		if err != nil {
			logrus.Warnf("export %s rejected: %v", job.Name, err)
			h = schema.JobHandle{
				ID:          h.ID,
				Name:        job.Name,
				Folder:      job.Folder,
				Format:      job.Params.Format,
				Status:      schema.JobRejected,
				Error:       err.Error(),
				SubmittedAt: time.Now(),
			}
		}
		d.record(h)
		out = append(out, h)
	}
	d.handles = append(d.handles, out...)
	return out, nil
}

func (d *Driver) record(h schema.JobHandle) {
	if d.store == nil {
		return
	}
	if err := d.store.RecordJob(d.runID, h); err != nil {
		logrus.Warnf("failed to record job %s: %v", h.Name, err)
	}
}

// Handles returns every handle submitted through the driver so far.
func (d *Driver) Handles() []schema.JobHandle {
	return append([]schema.JobHandle(nil), d.handles...)
}

// Wait blocks until the service has finished every job, then refreshes and
// returns the handles.
func (d *Driver) Wait(ctx context.Context) ([]schema.JobHandle, error) {
	if err := d.service.Wait(ctx); err != nil {
		return d.Handles(), err
	}
	return d.Refresh(ctx)
}

// Refresh polls the service for the latest state of every handle and
// records changes in the job store.
func (d *Driver) Refresh(ctx context.Context) ([]schema.JobHandle, error) {
	for i, h := range d.handles {
		if h.Status == schema.JobRejected || h.ID == "" {
			continue
		}
		latest, err := d.service.Status(ctx, h.ID)
		if err != nil {
			return d.Handles(), fmt.Errorf("failed to get status of %s: %w", h.Name, err)
		}
		if latest.Status == h.Status && latest.Path == h.Path {
			continue
		}
		d.handles[i] = latest
		if d.store != nil {
			if err := d.store.UpdateJob(latest.ID, latest.Status, latest.Error, latest.Path); err != nil {
				logrus.Warnf("failed to update job %s: %v", latest.Name, err)
			}
		}
	}
	return d.Handles(), nil
}
