package cmd

import (
	"github.com/huangsam/geoseries/core"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/spf13/cobra"
)

// runCmd runs a recipe end to end.
var runCmd = &cobra.Command{
	Use:   "run <recipe>",
	Short: "Composite, reduce and export a recipe over its date range.",
	Long: `Run a recipe against the catalog in two phases.

The plan phase expands the date range into periods and checks the recipe.
The materialize phase then, for every period:
- fetches and composites the matching scenes
- applies the recipe transforms (unit conversion, indices, masks)
- reduces the composite over the region into one record per period

It finally runs change detection when the recipe asks for it, submits
GeoTIFF, CSV or Parquet exports to a local worker pool and optionally
renders PNG and HTML previews.

Examples:
  # Daily precipitation over a bounding box
  geoseries run precipitation --catalog ./data --bbox 36.5,-1.5,37.5,-0.5

  # Surface water change for a region file, as JSON
  geoseries run surface-water --catalog ./data --region aoi.geojson --output json

  # Override the date range and write the series to CSV
  geoseries run rainfall --catalog ./data --bbox 10,0,11,1 --start 2023-07-01 --end 2023-08-01 --output csv --output-file rain.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSeries(rootCtx, cfg, env); err != nil {
			contract.LogFatal("Cannot run recipe", err)
		}
	},
}

// planCmd describes a recipe without touching data.
var planCmd = &cobra.Command{
	Use:   "plan <recipe>",
	Short: "Show the periods, steps and exports a recipe would produce.",
	Long: `Describe a run without reading any rasters.

Useful for checking overrides such as --start, --end, --step and --bbox
before running a long job.

Examples:
  geoseries plan surface-water --bbox 36.5,-1.5,37.5,-0.5
  geoseries plan precipitation --bbox 10,0,11,1 --end 2023-07-31 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePlan(rootCtx, cfg, env); err != nil {
			contract.LogFatal("Cannot plan recipe", err)
		}
	},
}

// recipesCmd lists recipes.
var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "List the built-in and configured recipes.",
	Long: `List every recipe known to geoseries.

Recipes from the 'recipes' key of .geoseries.yaml are merged over the
built-in ones by name.

Examples:
  geoseries recipes
  geoseries recipes --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRecipes(rootCtx, cfg, env); err != nil {
			contract.LogFatal("Cannot list recipes", err)
		}
	},
}

// catalogCmd groups catalog inspection.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the raster catalog",
}

// catalogListCmd lists catalog collections.
var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the datasets, bands and date coverage of the catalog.",
	Long: `List every dataset in the --catalog directory.

Examples:
  geoseries catalog list --catalog ./data`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteDatasets(rootCtx, cfg, env); err != nil {
			contract.LogFatal("Cannot list catalog", err)
		}
	},
}
