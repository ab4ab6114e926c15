package recipe

import (
	"github.com/huangsam/geoseries/core/transform"
	"github.com/huangsam/geoseries/schema"
)

// Catalog names of the datasets the built-in recipes read.
const (
	ChirpsDaily = "CHIRPS_DAILY"
	DaymetV4    = "DAYMET_V4"
	Sentinel1   = "S1_GRD"
	Landsat8    = "LC08_L2"
	Landsat9    = "LC09_L2"
	Sentinel5CO = "S5P_CO"
	Elevation   = "3DEP_10M"
	LandCover   = "NLCD"
)

const maxPixels = 10_000_000_000_000

func builtins() []schema.Recipe {
	return []schema.Recipe{
		{
			Name:        "precipitation",
			Description: "Daily CHIRPS precipitation in inches, wettest cell per day",
			Dataset:     ChirpsDaily,
			Bands:       []string{"precipitation"},
			Start:       "2023-07-01",
			End:         "2023-07-05",
			Step:        "1 day",
			Transforms: []schema.TransformSpec{
				{Op: transform.OpMMToInches, Band: "precipitation"},
			},
			Statistics: []schema.StatisticSpec{
				{Name: "daily_precipitation", Band: "precipitation", Stat: schema.MaxStat},
			},
			Scale:    5000,
			MaxCells: maxPixels,
			Export: schema.ExportSpec{
				Images:      true,
				ImagePrefix: "Pr_",
				Table:       true,
				TableName:   "CHIRPS_Daily_Precipitation_Time_Series_Inches",
				TableFormat: schema.CSVFormat,
				Folder:      "CHIRPS_Time_Series_Data",
				Scale:       5000,
				MaxCells:    100_000_000_000,
			},
			Preview: &schema.PreviewSpec{
				Band:    "precipitation",
				Min:     0,
				Max:     6,
				Palette: []string{"ffffff", "b7efb7", "61c061", "1f8e1f", "ffff66", "ffaa00", "ff0000", "8b0000"},
				Layers:  true,
				Chart:   true,
				Title:   "Daily Precipitation Time Series (inches)",
			},
		},
		{
			Name:        "rainfall",
			Description: "Daily Daymet rainfall in inches, first scene per day",
			Dataset:     DaymetV4,
			Bands:       []string{"prcp"},
			Composite:   string(schema.FirstComposite),
			Start:       "2023-07-10",
			End:         "2023-07-15",
			Step:        "1 day",
			Transforms: []schema.TransformSpec{
				{Op: transform.OpScale, Band: "prcp", Output: "prcp_inches", Mul: 1 / transform.InchesToMM},
				{Op: transform.OpSelect, Bands: []string{"prcp_inches"}},
			},
			Statistics: []schema.StatisticSpec{
				{Name: "mean_rainfall", Band: "prcp_inches", Stat: schema.MeanStat},
			},
			Scale:    1000,
			MaxCells: maxPixels,
			Export: schema.ExportSpec{
				Images:      true,
				ImagePrefix: "Daily_Rainfall_",
				Folder:      "Daymet_Daily_Rainfall_2023",
				Scale:       1000,
				CRS:         schema.GeographicCRS,
				MaxCells:    maxPixels,
			},
			Preview: &schema.PreviewSpec{
				Band:    "prcp_inches",
				Min:     0,
				Max:     1.7,
				Palette: []string{"white", "lightblue", "blue", "purple"},
				Layers:  true,
			},
		},
		{
			Name:        "temperature",
			Description: "Daily Daymet maximum of tmax and minimum of tmin",
			Dataset:     DaymetV4,
			Bands:       []string{"tmax", "tmin"},
			Start:       "2023-07-01",
			End:         "2023-07-05",
			Step:        "1 day",
			Statistics: []schema.StatisticSpec{
				{Name: "daily_tmax", Band: "tmax", Stat: schema.MaxStat},
				{Name: "daily_tmin", Band: "tmin", Stat: schema.MinStat},
			},
			Scale:    5000,
			MaxCells: maxPixels,
			Export: schema.ExportSpec{
				Images:      true,
				ImagePrefix: "Temp_",
				Table:       true,
				TableName:   "DAYMETV4_Daily_Temp_Time_Series",
				TableFormat: schema.CSVFormat,
				Folder:      "DAYMETV4_Time_Series_Data",
				Scale:       5000,
				CRS:         schema.GeographicCRS,
				MaxCells:    maxPixels,
			},
			Preview: &schema.PreviewSpec{
				Band:    "tmax",
				Min:     0,
				Max:     40,
				Palette: []string{"1621A2", "white", "cyan", "green", "yellow", "orange", "red"},
				Layers:  true,
				Chart:   true,
				Title:   "Daily Tmax and Tmin Time Series",
			},
		},
		{
			Name:         "surface-water",
			Description:  "Sentinel-1 VV backscatter around fixed dates with flood change detection",
			Dataset:      Sentinel1,
			Bands:        []string{"VV"},
			Dates:        []string{"2023-09-15", "2023-10-01", "2023-10-15", "2023-11-01", "2023-11-15"},
			Step:         "14 days",
			Padding:      "14 days",
			Composite:    string(schema.MedianComposite),
			Sentinel:     true,
			SentinelFill: schema.DefaultSentinelFill,
			Filters: []schema.Filter{
				{Property: "transmitterReceiverPolarisation", Op: schema.FilterContains, Value: "VV"},
				{Property: "instrumentMode", Op: schema.FilterEquals, Value: "IW"},
			},
			Transforms: []schema.TransformSpec{
				{Op: transform.OpFocalMedian, Band: "VV", Radius: 100},
			},
			Statistics: []schema.StatisticSpec{
				{Name: "vv_mean", Band: "VV", Stat: schema.MeanStat},
				{Name: "flooded_pixel_count", Band: "VV", Stat: schema.CountBelowStat, Threshold: -15},
			},
			Scale:    1000,
			MaxCells: 10_000_000_000,
			Change: &schema.ChangeSpec{
				Band:       "VV",
				Threshold:  5,
				Comparison: schema.GreaterThan,
				Export:     true,
				ExportName: "FloodChange",
			},
			Export: schema.ExportSpec{
				Images:      true,
				ImagePrefix: "S1_",
				DateLayout:  "2006_01_02",
				Scale:       1000,
				MaxCells:    maxPixels,
			},
			Preview: &schema.PreviewSpec{
				Band:    "VV",
				Min:     -25,
				Max:     5,
				Palette: []string{"black", "white"},
				Layers:  true,
			},
		},
		{
			Name:        "lst",
			Description: "Mean Landsat 8/9 land surface temperature over a year, cloud masked",
			Dataset:     Landsat8,
			Merge:       []string{Landsat9},
			Bands:       []string{"ST_B10", "SR_B5", "SR_B4", "QA_PIXEL"},
			Composite:   string(schema.MeanComposite),
			Start:       "2023",
			End:         "2024",
			Step:        "1 year",
			Prepare: []schema.TransformSpec{
				{Op: transform.OpMaskBits, Band: "QA_PIXEL", Bits: []int{3, 4}},
				{Op: transform.OpLandsatThermal, Band: "ST_B10"},
				{Op: transform.OpLST},
				{Op: transform.OpSelect, Bands: []string{"LST"}},
			},
			Statistics: []schema.StatisticSpec{
				{Name: "mean_lst", Band: "LST", Stat: schema.MeanStat},
			},
			Scale:    1000,
			MaxCells: maxPixels,
			Export: schema.ExportSpec{
				Images:    true,
				ImageName: "Mean_LST_Landsat8_9",
				Scale:     1000,
				MaxCells:  maxPixels,
			},
			Preview: &schema.PreviewSpec{
				Band:    "LST",
				Min:     20,
				Max:     40,
				Palette: []string{"blue", "green", "red"},
				Layers:  true,
			},
		},
		{
			Name:        "co",
			Description: "Mean Sentinel-5P carbon monoxide column density over a year",
			Dataset:     Sentinel5CO,
			Bands:       []string{"CO_column_number_density"},
			Composite:   string(schema.MeanComposite),
			Start:       "2023",
			End:         "2024",
			Step:        "1 year",
			Statistics: []schema.StatisticSpec{
				{Name: "mean_co", Band: "CO_column_number_density", Stat: schema.MeanStat},
			},
			Scale:    1000,
			MaxCells: maxPixels,
			Export: schema.ExportSpec{
				Images:    true,
				ImageName: "mean_CO_2023_2024",
				Folder:    "EarthEngineExports",
				Scale:     1000,
				CRS:       schema.GeographicCRS,
				MaxCells:  maxPixels,
			},
			Preview: &schema.PreviewSpec{
				Band:    "CO_column_number_density",
				Min:     0,
				Max:     0.05,
				Palette: []string{"black", "blue", "purple", "cyan", "green", "yellow", "red"},
				Layers:  true,
			},
		},
		{
			Name:        "co-daily",
			Description: "Daily regional mean of Sentinel-5P carbon monoxide",
			Dataset:     Sentinel5CO,
			Bands:       []string{"CO_column_number_density"},
			Composite:   string(schema.MeanComposite),
			Start:       "2023-01-01",
			End:         "2024-01-01",
			Step:        "1 day",
			Statistics: []schema.StatisticSpec{
				{Name: "dailyCO", Band: "CO_column_number_density", Stat: schema.MeanStat},
			},
			Scale:    1000,
			MaxCells: maxPixels,
			Export: schema.ExportSpec{
				Table:       true,
				TableName:   "daily_CO_2023",
				TableFormat: schema.CSVFormat,
				Folder:      "EarthEngineExports",
			},
			Preview: &schema.PreviewSpec{Chart: true, Title: "Daily mean CO column density"},
		},
		{
			Name:        "elevation-slope",
			Description: "3DEP elevation and derived slope in degrees",
			Dataset:     Elevation,
			Bands:       []string{"elevation"},
			Static:      true,
			Transforms: []schema.TransformSpec{
				{Op: transform.OpSlope, Band: "elevation", Output: "slope"},
			},
			Statistics: []schema.StatisticSpec{
				{Name: "mean_elevation", Band: "elevation", Stat: schema.MeanStat},
				{Name: "max_slope", Band: "slope", Stat: schema.MaxStat},
			},
			Scale:    1000,
			MaxCells: maxPixels,
			Export: schema.ExportSpec{
				Images:    true,
				ImageName: "{band}_3dep",
				Scale:     1000,
				MaxCells:  maxPixels,
			},
			Preview: &schema.PreviewSpec{
				Band: "elevation",
				Min:  0,
				Max:  3000,
				Palette: []string{
					"3ae237", "b5e22e", "d6e21f", "fff705", "ffd611", "ffb613", "ff8b13",
					"ff6e08", "ff500d", "ff0000", "de0101", "c21301", "0602ff", "235cb1",
					"307ef3", "269db1", "30c8e2", "32d3ef", "3be285", "3ff38f", "86e26f",
				},
				Layers: true,
			},
		},
		{
			Name:        "landcover",
			Description: "Most recent NLCD land cover release",
			Dataset:     LandCover,
			Bands:       []string{"landcover"},
			Composite:   string(schema.MostRecentComposite),
			Static:      true,
			Statistics: []schema.StatisticSpec{
				{Name: "landcover_cells", Band: "landcover", Stat: schema.CountStat},
			},
			Scale:    1000,
			MaxCells: maxPixels,
			Export: schema.ExportSpec{
				Images:    true,
				ImageName: "NLCDLandCover",
				Scale:     1000,
				MaxCells:  maxPixels,
			},
			Preview: &schema.PreviewSpec{
				Band: "landcover",
				Min:  11,
				Max:  95,
				Palette: []string{
					"5475A8", "ffffff", "E8D1D1", "E29E8C", "ff0000", "B50000", "D2CDC0",
					"85C77E", "38814E", "D4E7B0", "AF963C", "DCCA8F", "FDE9A4", "D1D182",
					"A3CC51", "82BA9E", "FBF65D", "CA9146", "C8E6F8", "64B3D5",
				},
				Layers: true,
			},
		},
	}
}
