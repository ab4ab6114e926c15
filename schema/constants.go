package schema

// Custom string types for type safety.
type (
	// StepUnit is the calendar unit used when expanding a date range.
	StepUnit string

	// Statistic is the aggregation applied when reducing a raster over a region.
	Statistic string

	// Composite is the per-pixel reducer used to collapse several slices into one.
	Composite string

	// Comparison is the direction used by change detection.
	Comparison string

	// ExportFormat is the on-disk format of an export job.
	ExportFormat string

	// OutputMode represents the format of the console output.
	OutputMode string

	// DatabaseBackend represents the database backend for job tracking.
	DatabaseBackend string

	// JobStatus is the lifecycle state of an export job.
	JobStatus string

	// FilterOp is the comparison used by a catalog property filter.
	FilterOp string
)

// All step units supported.
const (
	DayUnit   StepUnit = "day"
	MonthUnit StepUnit = "month"
)

// All statistics supported.
const (
	MinStat        Statistic = "min"
	MaxStat        Statistic = "max"
	MeanStat       Statistic = "mean"
	SumStat        Statistic = "sum"
	MedianStat     Statistic = "median"
	CountStat      Statistic = "count"
	CountBelowStat Statistic = "count_below" // cells strictly below a threshold
)

// All composites supported.
const (
	MedianComposite     Composite = "median" // default
	MeanComposite       Composite = "mean"
	MinComposite        Composite = "min"
	MaxComposite        Composite = "max"
	FirstComposite      Composite = "first"
	MostRecentComposite Composite = "most_recent"
)

// All change comparisons supported.
const (
	GreaterThan Comparison = "gt"
	LessThan    Comparison = "lt"
)

// All export formats supported.
const (
	GeoTIFFFormat ExportFormat = "geotiff"
	CSVFormat     ExportFormat = "csv"
	ParquetFormat ExportFormat = "parquet"
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All job tracking backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All job states.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobRejected  JobStatus = "rejected"
)

// All catalog filter operations.
const (
	FilterEquals   FilterOp = "eq"
	FilterContains FilterOp = "contains"
)

// DefaultDateLayout is the label layout used for series periods and file names.
const DefaultDateLayout = "2006-01-02"

// DefaultSentinelFill is the constant written into placeholder slices.
const DefaultSentinelFill = -999.0

// GeographicCRS is the only CRS the local catalog and exporter emit natively.
const GeographicCRS = "EPSG:4326"

// ValidStepUnits lists all valid step units.
var ValidStepUnits = map[StepUnit]struct{}{
	DayUnit:   {},
	MonthUnit: {},
}

// ValidStatistics lists all valid statistics.
var ValidStatistics = map[Statistic]struct{}{
	MinStat:        {},
	MaxStat:        {},
	MeanStat:       {},
	SumStat:        {},
	MedianStat:     {},
	CountStat:      {},
	CountBelowStat: {},
}

// ValidComposites lists all valid composites.
var ValidComposites = map[Composite]struct{}{
	MedianComposite:     {},
	MeanComposite:       {},
	MinComposite:        {},
	MaxComposite:        {},
	FirstComposite:      {},
	MostRecentComposite: {},
}

// ValidComparisons lists all valid change comparisons.
var ValidComparisons = map[Comparison]struct{}{
	GreaterThan: {},
	LessThan:    {},
}

// ValidExportFormats lists all valid export formats.
var ValidExportFormats = map[ExportFormat]struct{}{
	GeoTIFFFormat: {},
	CSVFormat:     {},
	ParquetFormat: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid job tracking backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Extension returns the file extension written for the format.
func (f ExportFormat) Extension() string {
	switch f {
	case GeoTIFFFormat:
		return ".tif"
	case CSVFormat:
		return ".csv"
	case ParquetFormat:
		return ".parquet"
	default:
		return ""
	}
}

// IsTabular reports whether the format carries a statistics table rather than a raster.
func (f ExportFormat) IsTabular() bool {
	return f == CSVFormat || f == ParquetFormat
}

// IsTerminal reports whether the job will not change state again.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobRejected
}
