package outwriter

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// LogRunHeader prints a concise, 2-line header before a run.
func LogRunHeader(w io.Writer, recipe, dataset, region string, periods []string) {
	// Line 1: The run summary (Recipe and Dataset)
	_, _ = fmt.Fprintf(w, "%s %s (Dataset: %s)\n", color.CyanString("Recipe:"), recipe, dataset)

	// Line 2: The period range being composited
	switch len(periods) {
	case 0:
		_, _ = fmt.Fprintf(w, "%s %s, no periods\n", color.CyanString("Region:"), region)
	case 1:
		_, _ = fmt.Fprintf(w, "%s %s, period %s\n", color.CyanString("Region:"), region, periods[0])
	default:
		_, _ = fmt.Fprintf(w, "%s %s, %s -> %s (%d periods)\n", color.CyanString("Region:"), region, periods[0], periods[len(periods)-1], len(periods))
	}
}
