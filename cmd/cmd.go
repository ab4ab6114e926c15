// Package cmd defines the command-line interface for geoseries.
package cmd

import (
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(recipesCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the catalog subcommands to the parent catalog command
	catalogCmd.AddCommand(catalogListCmd)

	// Add the jobs subcommands to the parent jobs command
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsExportCmd)
	jobsCmd.AddCommand(jobsClearCmd)
	jobsCmd.AddCommand(jobsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("catalog", "", "Directory holding one folder of GeoTIFF scenes per dataset")
	rootCmd.PersistentFlags().String("region", "", "GeoJSON file with the region of interest")
	rootCmd.PersistentFlags().String("bbox", "", "Region as minx,miny,maxx,maxy (overrides the recipe)")
	rootCmd.PersistentFlags().String("start", "", "First date, e.g. 2023-07-01 (overrides the recipe)")
	rootCmd.PersistentFlags().String("end", "", "Exclusive end date (overrides the recipe)")
	rootCmd.PersistentFlags().String("step", "", "Period step, e.g. '1 day' or 14d (overrides the recipe)")
	rootCmd.PersistentFlags().Float64("scale", 0, "Reduction and export scale in meters (overrides the recipe)")
	rootCmd.PersistentFlags().Int64("max-cells", 0, "Cell budget for reductions and exports (overrides the recipe)")
	rootCmd.PersistentFlags().String("folder", "", "Export folder under --out-dir (overrides the recipe)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("job-backend", string(schema.SQLiteBackend), "Job tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("job-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log progress at info level")
	rootCmd.PersistentFlags().Bool("debug", false, "Log everything, including each export job")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of runCmd to Viper
	runCmd.Flags().String("out-dir", contract.DefaultOutputDir, "Directory export jobs write to")
	runCmd.Flags().Int("workers", contract.DefaultWorkers, "Number of concurrent export workers")
	runCmd.Flags().Bool("wait", true, "Wait for export jobs and report their final state")
	runCmd.Flags().String("timeout", "", "Give up waiting for exports after this duration, e.g. 10m")
	runCmd.Flags().Bool("preview", false, "Render PNG layers and an HTML chart when the recipe defines a preview")
	runCmd.Flags().String("preview-dir", "", "Directory for previews (defaults to --out-dir)")
	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		contract.LogFatal("Error binding run flags", err)
	}

	// Bind all flags of jobsMigrateCmd to Viper
	jobsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(jobsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding jobs migrate flags", err)
	}
}
