// Package core has the orchestration behind each command: resolve a recipe,
// plan it, run it against the catalog and hand the results to the writers.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/geoseries/core/pipeline"
	"github.com/huangsam/geoseries/core/recipe"
	"github.com/huangsam/geoseries/core/region"
	"github.com/huangsam/geoseries/internal/catalog"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/internal/exporter"
	"github.com/huangsam/geoseries/internal/jobstore"
	"github.com/huangsam/geoseries/internal/outwriter"
	"github.com/huangsam/geoseries/internal/preview"
	"github.com/huangsam/geoseries/schema"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// ErrNoCatalog is returned when a command needs data but no catalog was configured.
var ErrNoCatalog = errors.New("no catalog configured. set --catalog or GEOSERIES_CATALOG")

// ExecutorFunc defines the function signature for executing the different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, env Env) error

// Env bundles the long lived collaborators a command runs against.
type Env struct {
	Registry *recipe.Registry
	Catalog  contract.Catalog
	Store    contract.JobStore
}

// NewEnv builds the environment for cfg. The catalog is optional here since
// listing or planning recipes never reads data.
func NewEnv(cfg *contract.Config) (Env, error) {
	reg, err := NewRegistry(cfg)
	if err != nil {
		return Env{}, err
	}
	env := Env{Registry: reg, Store: jobstore.Manager.GetStore()}
	if cfg.CatalogDir != "" {
		if env.Catalog, err = OpenCatalog(cfg); err != nil {
			return Env{}, err
		}
	}
	return env, nil
}

// NewRegistry returns the built-in recipes plus any defined in the config file.
func NewRegistry(cfg *contract.Config) (*recipe.Registry, error) {
	reg := recipe.NewRegistry()
	if err := reg.Apply(cfg.Recipes); err != nil {
		return nil, fmt.Errorf("invalid recipes in config: %w", err)
	}
	return reg, nil
}

// OpenCatalog indexes the catalog directory configured in cfg.
func OpenCatalog(cfg *contract.Config) (contract.Catalog, error) {
	if cfg.CatalogDir == "" {
		return nil, ErrNoCatalog
	}
	c, err := catalog.OpenDir(cfg.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", cfg.CatalogDir, err)
	}
	return c, nil
}

// overrides maps the command line onto recipe overrides.
func overrides(cfg *contract.Config) pipeline.Overrides {
	return pipeline.Overrides{
		Start:    cfg.Start,
		End:      cfg.End,
		Step:     cfg.Step,
		Scale:    cfg.Scale,
		MaxCells: cfg.MaxCells,
		Folder:   cfg.Folder,
		BBox:     cfg.BBox,
	}
}

// BuildPlan resolves the configured recipe, applies overrides and the region
// file, and describes the run without reading any data.
func BuildPlan(cfg *contract.Config, reg *recipe.Registry) (*pipeline.Plan, error) {
	if cfg.RecipeName == "" {
		return nil, fmt.Errorf("no recipe given. available: %v", reg.Names())
	}
	rec, err := reg.Get(cfg.RecipeName)
	if err != nil {
		return nil, err
	}
	rec = overrides(cfg).Apply(rec)

	var r *region.Region
	if cfg.RegionPath != "" {
		if r, err = region.Load(cfg.RegionPath); err != nil {
			return nil, fmt.Errorf("failed to load region %s: %w", cfg.RegionPath, err)
		}
	}
	return pipeline.Describe(rec, r)
}

// Summarize converts a plan into its printable form.
func Summarize(p *pipeline.Plan) schema.PlanSummary {
	return schema.PlanSummary{
		Recipe:  p.Recipe.Name,
		Dataset: p.Recipe.Dataset,
		Region:  p.Region.String(),
		Periods: p.Labels(),
		Columns: p.Columns,
		Steps:   p.Steps(),
	}
}

// runParams is what the job store remembers about a run.
func runParams(cfg *contract.Config, p *pipeline.Plan) map[string]any {
	labels := p.Labels()
	params := map[string]any{
		"dataset": p.Recipe.Dataset,
		"periods": len(labels),
		"out_dir": cfg.OutputDir,
		"region":  p.Region.String(),
	}
	if len(labels) > 0 {
		params["first"] = labels[0]
		params["last"] = labels[len(labels)-1]
	}
	if p.Recipe.Scale > 0 {
		params["scale"] = p.Recipe.Scale
	}
	if cfg.RegionPath != "" {
		params["region_path"] = cfg.RegionPath
	}
	return params
}

// GetSeriesResults runs the configured recipe end to end and returns the
// report without printing it.
func GetSeriesResults(ctx context.Context, cfg *contract.Config, env Env) (schema.RunReport, error) {
	start := time.Now()
	if env.Catalog == nil {
		return schema.RunReport{}, ErrNoCatalog
	}
	plan, err := BuildPlan(cfg, env.Registry)
	if err != nil {
		return schema.RunReport{}, err
	}
	labels := plan.Labels()
	if !shouldSuppressHeader(ctx) {
		outwriter.LogRunHeader(os.Stderr, plan.Recipe.Name, plan.Recipe.Dataset, plan.Region.String(), labels)
	}

	store := env.Store
	if store == nil {
		store = jobstore.Manager.GetStore()
	}
	runID, err := store.BeginRun(plan.Recipe.Name, start, runParams(cfg, plan))
	if err != nil {
		contract.LogWarn("Failed to record run", err)
	}
	ctx = withRunID(ctx, runID)

	svc := exporter.New(cfg.OutputDir, cfg.Workers)
	deps := pipeline.Deps{
		Catalog: env.Catalog,
		Exports: svc,
		Store:   store,
		RunID:   runID,
	}
	if cfg.Preview {
		deps.Renderer = preview.New(cfg.PreviewDir)
	}
	var bar *progressbar.ProgressBar
	if !shouldSuppressHeader(ctx) && len(labels) > 1 {
		bar = progressbar.Default(int64(len(labels)), "Compositing "+plan.Recipe.Name)
		deps.Progress = func(done, _ int) { _ = bar.Set(done) }
	}

	res, err := plan.Materialize(ctx, deps)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		svc.Close()
		endRun(ctx, store, 0)
		return schema.RunReport{}, err
	}

	jobs := res.Jobs
	if cfg.Wait && res.Driver != nil {
		jobs, err = waitForJobs(ctx, res, cfg.Timeout)
		if err != nil {
			logrus.Warnf("stopped waiting for exports: %v", err)
		}
	}

	// Queued jobs always finish before the process exits; the store sees
	// their final state even when the report shows them as submitted.
	svc.Close()
	if res.Driver != nil {
		if _, err := res.Driver.Refresh(ctx); err != nil {
			logrus.Warnf("failed to refresh export status: %v", err)
		}
	}
	endRun(ctx, store, len(res.Jobs))

	return schema.RunReport{
		RunID:    runID,
		Series:   res.Series,
		Change:   res.Change,
		Jobs:     jobs,
		Previews: res.Previews,
		Duration: time.Since(start),
	}, nil
}

func waitForJobs(ctx context.Context, res *pipeline.Result, timeout time.Duration) ([]schema.JobHandle, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return res.Driver.Wait(ctx)
}

func endRun(ctx context.Context, store contract.JobStore, totalJobs int) {
	runID, ok := getRunID(ctx)
	if !ok || runID == 0 {
		return
	}
	if err := store.EndRun(runID, time.Now(), totalJobs); err != nil {
		contract.LogWarn("Failed to finish run record", err)
	}
}

// ExecuteSeries runs the configured recipe and prints the report.
// It serves as the main entry point for the 'run' command.
func ExecuteSeries(ctx context.Context, cfg *contract.Config, env Env) error {
	report, err := GetSeriesResults(ctx, cfg, env)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteRun(report, cfg)
}

// ExecutePlan prints what the configured recipe would do.
func ExecutePlan(_ context.Context, cfg *contract.Config, env Env) error {
	plan, err := BuildPlan(cfg, env.Registry)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WritePlan(Summarize(plan), cfg)
}

// ExecuteRecipes prints every registered recipe.
func ExecuteRecipes(_ context.Context, cfg *contract.Config, env Env) error {
	return outwriter.NewOutWriter().WriteRecipes(env.Registry.All(), cfg)
}

// GetDatasets lists the catalog collections.
func GetDatasets(ctx context.Context, env Env) ([]schema.DatasetInfo, error) {
	if env.Catalog == nil {
		return nil, ErrNoCatalog
	}
	return env.Catalog.Datasets(ctx)
}

// ExecuteDatasets prints the catalog collections.
func ExecuteDatasets(ctx context.Context, cfg *contract.Config, env Env) error {
	infos, err := GetDatasets(ctx, env)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteDatasets(infos, cfg)
}

// ExecuteJobs prints the recorded export jobs.
func ExecuteJobs(_ context.Context, cfg *contract.Config, env Env) error {
	jobs, err := env.Store.GetAllJobs()
	if err != nil {
		return fmt.Errorf("failed to read job history: %w", err)
	}
	return outwriter.NewOutWriter().WriteJobs(jobs, cfg)
}
