package outwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVRows marshals tagged structs with gocsv. Header comes from the csv tags.
func writeCSVRows[T any](w io.Writer, rows []T) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// newTable returns a right-aligned table, the look used by every command.
func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return table
}

// renderTable bulk loads rows and renders.
func renderTable(table *tablewriter.Table, data [][]string) error {
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// formatTime renders a timestamp in local time, or "-" when unset.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

// statusLabel colors job states when colors are enabled.
func statusLabel(status schema.JobStatus, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorLabel(status)
	}
	return string(status)
}

// joinOrDash joins values, or returns "-" for an empty list.
func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
