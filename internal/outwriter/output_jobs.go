package outwriter

import (
	"fmt"
	"io"
	"time"

	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
)

// jobRow is the CSV layout of a job history record.
type jobRow struct {
	RunID       int64  `csv:"run_id"`
	JobID       string `csv:"job_id"`
	Name        string `csv:"name"`
	Folder      string `csv:"folder"`
	Format      string `csv:"format"`
	Status      string `csv:"status"`
	Path        string `csv:"path"`
	Error       string `csv:"error"`
	SubmittedAt string `csv:"submitted_at"`
	UpdatedAt   string `csv:"updated_at"`
}

func toJobRows(jobs []schema.JobRecord) []jobRow {
	rows := make([]jobRow, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, jobRow{
			RunID:       j.RunID,
			JobID:       j.JobID,
			Name:        j.Name,
			Folder:      j.Folder,
			Format:      string(j.Format),
			Status:      string(j.Status),
			Path:        j.Path,
			Error:       j.Error,
			SubmittedAt: j.SubmittedAt.UTC().Format(contract.DateTimeFormat),
			UpdatedAt:   j.UpdatedAt.UTC().Format(contract.DateTimeFormat),
		})
	}
	return rows
}

// WriteJobRecords outputs job history, dispatching based on the output format configured.
func WriteJobRecords(jobs []schema.JobRecord, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, jobs)
		}, "Wrote JSON jobs"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, toJobRows(jobs))
		}, "Wrote CSV jobs"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJobTable(w, jobs, cfg)
		}, "Wrote jobs table")
	}
	return nil
}

// writeJobTable prints one row per recorded job.
func writeJobTable(w io.Writer, jobs []schema.JobRecord, cfg *contract.Config) error {
	table := newTable(w, []string{"Run", "Name", "Format", "Status", "Updated", "Path / Error"})
	width := GetMaxTablePathWidth(cfg)
	data := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		detail := j.Path
		if j.Error != "" {
			detail = j.Error
		}
		data = append(data, []string{
			fmt.Sprintf("%d", j.RunID),
			j.Name,
			string(j.Format),
			statusLabel(j.Status, cfg),
			formatTime(j.UpdatedAt),
			contract.TruncatePath(detail, width),
		})
	}
	if err := renderTable(table, data); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "%d jobs as of %s\n", len(jobs), time.Now().Format(time.DateTime))
	return nil
}
