package schema

import "time"

// RunReport is what the run command prints: the series, the optional change
// summary, the export handles and preview paths.
type RunReport struct {
	RunID    int64          `json:"run_id,omitempty"`
	Series   SeriesResult   `json:"series"`
	Change   *ChangeSummary `json:"change,omitempty"`
	Jobs     []JobHandle    `json:"jobs"`
	Previews []string       `json:"previews,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
}

// NoDataCount returns how many records were derived from placeholder slices.
func (r RunReport) NoDataCount() int {
	n := 0
	for _, rec := range r.Series.Records {
		if rec.NoData {
			n++
		}
	}
	return n
}

// JobCounts tallies handles by status.
func (r RunReport) JobCounts() map[JobStatus]int {
	counts := make(map[JobStatus]int)
	for _, h := range r.Jobs {
		counts[h.Status]++
	}
	return counts
}

// PlanSummary is what the plan command prints: the run a recipe would
// perform, without touching any data.
type PlanSummary struct {
	Recipe  string   `json:"recipe"`
	Dataset string   `json:"dataset"`
	Region  string   `json:"region"`
	Periods []string `json:"periods"`
	Columns []string `json:"columns"`
	Steps   []string `json:"steps"`
}
