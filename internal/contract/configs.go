package contract

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/geoseries/core/dates"
	"github.com/huangsam/geoseries/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 4
	MaxPrecision     = 10
	DefaultOutputDir = "exports"
)

// DefaultWorkers is the default number of concurrent export workers.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a run.
// This struct remains the "final, validated" config.
type Config struct {
	RecipeName string
	RegionPath string
	CatalogDir string
	OutputDir  string

	// Recipe overrides; zero values leave the recipe untouched
	Start    string
	End      string
	Step     string
	Scale    float64
	MaxCells int64
	Folder   string
	BBox     []float64

	Workers    int
	Wait       bool
	Timeout    time.Duration
	Preview    bool
	PreviewDir string

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)

	JobBackend   schema.DatabaseBackend
	JobDBConnect string // Please use env var as this is plaintext

	// Recipes are extra or overriding recipe entries from the config file
	Recipes []map[string]any

	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	RecipeName string

	// --- Fields from rootCmd.PersistentFlags() ---
	Catalog      string `mapstructure:"catalog"`
	Precision    int    `mapstructure:"precision"`
	Output       string `mapstructure:"output"`
	OutputFile   string `mapstructure:"output-file"`
	Width        int    `mapstructure:"width"`
	JobBackend   string `mapstructure:"job-backend"`
	JobDBConnect string `mapstructure:"job-db-connect"`
	Color        string `mapstructure:"color"`

	// --- Fields from runCmd.Flags() and planCmd.Flags() ---
	Region     string  `mapstructure:"region"`
	OutDir     string  `mapstructure:"out-dir"`
	Start      string  `mapstructure:"start"`
	End        string  `mapstructure:"end"`
	Step       string  `mapstructure:"step"`
	Scale      float64 `mapstructure:"scale"`
	MaxCells   int64   `mapstructure:"max-cells"`
	Folder     string  `mapstructure:"folder"`
	BBox       string  `mapstructure:"bbox"`
	Workers    int     `mapstructure:"workers"`
	Wait       bool    `mapstructure:"wait"`
	Timeout    string  `mapstructure:"timeout"`
	Preview    bool    `mapstructure:"preview"`
	PreviewDir string  `mapstructure:"preview-dir"`

	// --- Recipes from config file ---
	Recipes []map[string]any `mapstructure:"recipes"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.BBox != nil {
		clone.BBox = append([]float64(nil), c.BBox...)
	}
	if c.Recipes != nil {
		clone.Recipes = append([]map[string]any(nil), c.Recipes...)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processOverrides(cfg, input); err != nil {
		return err
	}
	return nil
}

// ProcessProfilingConfig enables profiling when a file prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("job-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("job-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates the job tracking backend.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.JobBackend = schema.DatabaseBackend(strings.ToLower(input.JobBackend))
	if cfg.JobBackend == "" {
		cfg.JobBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.JobBackend]; !ok {
		return fmt.Errorf("invalid job backend '%s'. must be sqlite, mysql, postgresql, none", input.JobBackend)
	}
	cfg.JobDBConnect = input.JobDBConnect
	return ValidateDatabaseConnectionString(cfg.JobBackend, cfg.JobDBConnect)
}

// validateSimpleInputs processes and validates the output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.RecipeName = strings.TrimSpace(input.RecipeName)
	cfg.CatalogDir = input.Catalog
	cfg.RegionPath = input.Region
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Wait = input.Wait
	cfg.Preview = input.Preview
	cfg.Recipes = input.Recipes

	cfg.OutputDir = input.OutDir
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	cfg.PreviewDir = input.PreviewDir
	if cfg.PreviewDir == "" {
		cfg.PreviewDir = cfg.OutputDir
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 0 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 0 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", cfg.Output)
	}

	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid timeout '%s'. expected a duration like 10m", input.Timeout)
		}
		cfg.Timeout = d
	}
	return nil
}

// processOverrides validates the recipe overrides that can be checked without
// knowing the recipe.
func processOverrides(cfg *Config, input *ConfigRawInput) error {
	cfg.Step = strings.TrimSpace(input.Step)
	if cfg.Step != "" {
		if _, err := dates.ParseStep(cfg.Step); err != nil {
			return fmt.Errorf("invalid --step: %w", err)
		}
	}

	cfg.Start = strings.TrimSpace(input.Start)
	cfg.End = strings.TrimSpace(input.End)
	var start, end time.Time
	var err error
	if cfg.Start != "" {
		if start, err = dates.ParseDate(cfg.Start); err != nil {
			return fmt.Errorf("invalid start date '%s': %w", cfg.Start, err)
		}
	}
	if cfg.End != "" {
		if end, err = dates.ParseDate(cfg.End); err != nil {
			return fmt.Errorf("invalid end date '%s': %w", cfg.End, err)
		}
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return fmt.Errorf("start date (%s) must be before end date (%s)", cfg.Start, cfg.End)
	}

	if input.Scale < 0 {
		return fmt.Errorf("scale must not be negative (received %g)", input.Scale)
	}
	cfg.Scale = input.Scale
	if input.MaxCells < 0 {
		return fmt.Errorf("max-cells must not be negative (received %d)", input.MaxCells)
	}
	cfg.MaxCells = input.MaxCells
	cfg.Folder = strings.Trim(strings.TrimSpace(input.Folder), "/")

	if input.BBox != "" {
		bbox, err := ParseBBox(input.BBox)
		if err != nil {
			return err
		}
		cfg.BBox = bbox
	}
	return nil
}

// RevalidateOverrides applies date and bbox overrides supplied after startup,
// such as MCP tool arguments. Empty values keep what cfg already holds.
func RevalidateOverrides(cfg *Config, start, end, step, bbox string) error {
	input := &ConfigRawInput{
		Start:    cfg.Start,
		End:      cfg.End,
		Step:     cfg.Step,
		Scale:    cfg.Scale,
		MaxCells: cfg.MaxCells,
		Folder:   cfg.Folder,
	}
	if start != "" {
		input.Start = start
	}
	if end != "" {
		input.End = end
	}
	if step != "" {
		input.Step = step
	}
	input.BBox = bbox
	return processOverrides(cfg, input)
}

// ParseBBox parses "minx,miny,maxx,maxy".
func ParseBBox(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must be minx,miny,maxx,maxy (received %q)", s)
	}
	out := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox value %q: %w", p, err)
		}
		out[i] = v
	}
	if out[0] >= out[2] || out[1] >= out[3] {
		return nil, fmt.Errorf("bbox minimum must be below maximum (received %q)", s)
	}
	return out, nil
}
