package outwriter

import (
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
)

// planRow is the CSV layout of a plan step.
type planRow struct {
	Recipe string `csv:"recipe"`
	Step   int    `csv:"step"`
	Action string `csv:"action"`
}

// WritePlanSummary outputs a plan, dispatching based on the output format configured.
func WritePlanSummary(plan schema.PlanSummary, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, plan)
		}, "Wrote JSON plan")
	case schema.CSVOut:
		rows := make([]planRow, 0, len(plan.Steps))
		for i, s := range plan.Steps {
			rows = append(rows, planRow{Recipe: plan.Recipe, Step: i + 1, Action: s})
		}
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, rows)
		}, "Wrote CSV plan")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePlanText(w, plan)
		}, "Wrote plan")
	}
}

func writePlanText(w io.Writer, plan schema.PlanSummary) error {
	if _, err := fmt.Fprintf(w, "Recipe %s on %s over %s\n", plan.Recipe, plan.Dataset, plan.Region); err != nil {
		return err
	}
	for i, s := range plan.Steps {
		if _, err := fmt.Fprintf(w, "  %d. %s\n", i+1, s); err != nil {
			return err
		}
	}
	labels := plan.Periods
	if len(labels) > 6 {
		labels = append(append([]string{}, labels[:3]...), "...", labels[len(labels)-1])
	}
	_, err := fmt.Fprintf(w, "Periods (%d): %s\nColumns: %s\n", len(plan.Periods), strings.Join(labels, ", "), joinOrDash(plan.Columns))
	return err
}
