package outwriter

import (
	"fmt"
	"io"

	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/internal/exporter"
	"github.com/huangsam/geoseries/schema"
)

// WriteRunReport outputs a run, dispatching based on the output format configured.
// CSV output carries only the series table, in the same layout as the exported file.
func WriteRunReport(report schema.RunReport, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON run report"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return exporter.WriteCSV(w, report.Series)
		}, "Wrote CSV series"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunText(w, report, cfg)
		}, "Wrote run report")
	}
	return nil
}

// writeRunText prints the series table followed by change, jobs and previews.
func writeRunText(w io.Writer, report schema.RunReport, cfg *contract.Config) error {
	if err := writeSeriesTable(w, report.Series, cfg); err != nil {
		return fmt.Errorf("error writing series table: %w", err)
	}
	if report.Change != nil {
		writeChangeSummary(w, *report.Change, cfg)
	}
	if len(report.Jobs) > 0 {
		if err := writeHandleTable(w, report.Jobs, cfg); err != nil {
			return fmt.Errorf("error writing jobs table: %w", err)
		}
	}
	for _, p := range report.Previews {
		_, _ = fmt.Fprintf(w, "Preview: %s\n", p)
	}

	_, _ = fmt.Fprintf(w, "Series %s completed in %v: %d records, %d without data, %d export jobs.",
		report.Series.Recipe, report.Duration, len(report.Series.Records), report.NoDataCount(), len(report.Jobs))
	if report.RunID > 0 {
		_, _ = fmt.Fprintf(w, " Run ID: %d", report.RunID)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

// writeSeriesTable prints one row per record with a column per statistic.
func writeSeriesTable(w io.Writer, result schema.SeriesResult, cfg *contract.Config) error {
	headers := append([]string{"Date"}, result.Columns...)
	headers = append(headers, "Note")
	table := newTable(w, headers)

	data := make([][]string, 0, len(result.Records))
	for _, rec := range result.Records {
		row := make([]string, 0, len(headers))
		row = append(row, rec.Label)
		for _, col := range result.Columns {
			row = append(row, rec.Get(col).Format(cfg.Precision))
		}
		note := ""
		if rec.NoData {
			note = contract.NoDataValue
			if cfg.UseColors {
				note = contract.NoDataColor.Sprint(note)
			}
		}
		data = append(data, append(row, note))
	}
	return renderTable(table, data)
}

// writeChangeSummary prints the first-versus-last comparison.
func writeChangeSummary(w io.Writer, c schema.ChangeSummary, cfg *contract.Config) {
	_, _ = fmt.Fprintf(w, "Change %s -> %s on %s (%s %g): %d cells, area %s km2\n",
		c.From, c.To, c.Band, c.Comparison, c.Threshold, c.TrueCells, c.AreaKm2.Format(cfg.Precision))
}

// writeHandleTable prints export job handles from the current run.
func writeHandleTable(w io.Writer, jobs []schema.JobHandle, cfg *contract.Config) error {
	table := newTable(w, []string{"Name", "Format", "Status", "Path / Error"})
	width := GetMaxTablePathWidth(cfg)
	data := make([][]string, 0, len(jobs))
	for _, h := range jobs {
		detail := h.Path
		if h.Error != "" {
			detail = h.Error
		}
		data = append(data, []string{
			h.Name,
			string(h.Format),
			statusLabel(h.Status, cfg),
			contract.TruncatePath(detail, width),
		})
	}
	return renderTable(table, data)
}
