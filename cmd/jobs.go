package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/geoseries/core"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/internal/jobstore"
	"github.com/huangsam/geoseries/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// jobBackendConfig reads and validates the job backend settings.
func jobBackendConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("job-backend")))
	if backend == "" {
		backend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid job backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	connStr := viper.GetString("job-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// jobsSetup loads minimal configuration needed for job history operations.
// This is used by commands that need the job store without full shared setup.
func jobsSetup() error {
	backend, connStr, err := jobBackendConfig()
	if err != nil {
		return err
	}

	// Get output-related config values (used by list and export)
	cfg.Output = schema.OutputMode(strings.ToLower(viper.GetString("output")))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", cfg.Output)
	}
	if cfg.UseColors, err = contract.ParseBoolString(viper.GetString("color")); err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.OutputFile = viper.GetString("output-file")
	cfg.Precision = viper.GetInt("precision")
	cfg.Width = viper.GetInt("width")

	if err := jobstore.Init(backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize job tracking: %w", err)
	}
	env.Store = jobstore.Manager.GetStore()

	cfg.JobBackend = backend
	cfg.JobDBConnect = connStr
	return nil
}

// jobsSetupWrapper wraps jobsSetup to provide PreRunE for jobs commands.
func jobsSetupWrapper(_ *cobra.Command, _ []string) error {
	return jobsSetup()
}

// jobsMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize the store or create tables,
// allowing migrations to run on a fresh database.
func jobsMigrateSetup() error {
	backend, connStr, err := jobBackendConfig()
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetJobsDBFilePath()
	}

	cfg.JobBackend = backend
	cfg.JobDBConnect = connStr
	return nil
}

// jobsMigrateSetupWrapper wraps jobsMigrateSetup to provide PreRunE for migrate command.
func jobsMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return jobsMigrateSetup()
}

// jobsCmd focused on export job history.
//
// Note: Jobs subcommands use minimal initialization (jobsSetup) instead of
// the full sharedSetup used by run. This avoids recipe and catalog
// resolution for simple history operations.
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage run and export job history",
	Long: `Manage the history of runs and their export jobs.

Every run records its parameters and each export job it submits, with the
job's status transitions (queued, running, completed, failed, rejected).

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  list    - Show every recorded export job
  status  - Show job tracking statistics
  export  - Export history to Parquet for analytics
  clear   - Remove all job history
  migrate - Run database schema migrations

Examples:
  # Check tracking status
  geoseries jobs status

  # Export for analysis in pandas/DuckDB
  geoseries jobs export --output-file history`,
}

// jobsListCmd lists recorded jobs.
var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every recorded export job",
	Long: `Show one row per export job with its run, status and output path.

Examples:
  geoseries jobs list
  geoseries jobs list --output csv --output-file jobs.csv`,
	PreRunE: jobsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteJobs(rootCtx, cfg, env); err != nil {
			contract.LogFatal("Failed to list jobs", err)
		}
	},
}

// jobsStatusCmd shows job store status.
var jobsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display job tracking statistics and connection details",
	Long: `Show detailed information about job tracking.

Displays:
- Backend type and connection status
- Total number of runs stored
- Last and oldest run timestamps
- Job counts by status

Examples:
  geoseries jobs status`,
	PreRunE: jobsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := jobstore.Manager.GetStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get job status", err)
		}
		jobstore.PrintStatus(os.Stdout, status)
	},
}

// jobsExportCmd exports job history to Parquet files.
var jobsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run and job history to Parquet",
	Long: `Export all stored runs and jobs to Parquet for analytics tools.

Writes <output-file>.runs.parquet and <output-file>.jobs.parquet.

Requires: --output-file parameter

Examples:
  geoseries jobs export --output-file history
  duckdb -c "SELECT status, count(*) FROM read_parquet('history.jobs.parquet') GROUP BY 1"`,
	PreRunE: jobsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := jobstore.Export(jobstore.Manager.GetStore(), cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export job history", err)
		}
	},
}

// jobsClearCmd clears the job history.
var jobsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all run and job history",
	Long: `Delete all stored runs and export jobs.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  geoseries jobs export --output-file backup
  geoseries jobs clear`,
	PreRunE: jobsMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := jobstore.Clear(cfg.JobBackend, contract.GetJobsDBFilePath(), cfg.JobDBConnect); err != nil {
			contract.LogFatal("Failed to clear job history", err)
		}
		fmt.Println("Job history cleared successfully.")
	},
}

// jobsMigrateCmd runs database migrations for the job store.
var jobsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the job tracking store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  geoseries jobs migrate

  # Rollback to initial state
  geoseries jobs migrate --target-version 0`,
	PreRunE: jobsMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := jobstore.Migrate(cfg.JobBackend, cfg.JobDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
