// Package outwriter has output and writer logic.
package outwriter

import (
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
)

// OutWriter provides a unified interface for all console output.
// It encapsulates the various output formats and provides a clean API for the commands.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteRun prints the outcome of a run using the configured output format.
func (ow *OutWriter) WriteRun(report schema.RunReport, cfg *contract.Config) error {
	return WriteRunReport(report, cfg)
}

// WriteJobs prints job history using the configured output format.
func (ow *OutWriter) WriteJobs(jobs []schema.JobRecord, cfg *contract.Config) error {
	return WriteJobRecords(jobs, cfg)
}

// WriteDatasets prints catalog collections using the configured output format.
func (ow *OutWriter) WriteDatasets(infos []schema.DatasetInfo, cfg *contract.Config) error {
	return WriteDatasetInfos(infos, cfg)
}

// WriteRecipes prints recipe summaries using the configured output format.
func (ow *OutWriter) WriteRecipes(recipes []schema.Recipe, cfg *contract.Config) error {
	return WriteRecipeList(recipes, cfg)
}

// WritePlan prints a run plan using the configured output format.
func (ow *OutWriter) WritePlan(plan schema.PlanSummary, cfg *contract.Config) error {
	return WritePlanSummary(plan, cfg)
}
