package schema

// Recipe is the declarative description of one series run. Built-in recipes
// live in core/recipe; additional ones can be declared under "recipes" in the
// config file.
type Recipe struct {
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description"`

	Dataset   string   `mapstructure:"dataset" json:"dataset"`
	Merge     []string `mapstructure:"merge" json:"merge,omitempty"` // extra datasets sharing the same bands
	Bands     []string `mapstructure:"bands" json:"bands"`
	Filters   []Filter `mapstructure:"filters" json:"filters,omitempty"`
	Composite string   `mapstructure:"composite" json:"composite"`

	Start   string   `mapstructure:"start" json:"start"`
	End     string   `mapstructure:"end" json:"end"`
	Step    string   `mapstructure:"step" json:"step"`
	Dates   []string `mapstructure:"dates" json:"dates,omitempty"`
	Padding string   `mapstructure:"padding" json:"padding,omitempty"`
	Static  bool     `mapstructure:"static" json:"static,omitempty"` // one period spanning the whole catalog

	Sentinel     bool    `mapstructure:"sentinel" json:"sentinel"`
	SentinelFill float64 `mapstructure:"sentinel_fill" json:"sentinel_fill"`

	BBox []float64 `mapstructure:"bbox" json:"bbox,omitempty"` // minx, miny, maxx, maxy

	Prepare    []TransformSpec `mapstructure:"prepare" json:"prepare,omitempty"` // applied to each scene before compositing
	Transforms []TransformSpec `mapstructure:"transforms" json:"transforms,omitempty"`
	Statistics []StatisticSpec `mapstructure:"statistics" json:"statistics"`
	Scale      float64         `mapstructure:"scale" json:"scale"`
	MaxCells   int64           `mapstructure:"max_cells" json:"max_cells"`

	Change  *ChangeSpec  `mapstructure:"change" json:"change,omitempty"`
	Export  ExportSpec   `mapstructure:"export" json:"export"`
	Preview *PreviewSpec `mapstructure:"preview" json:"preview,omitempty"`
}

// TransformSpec names one step of the per-slice transform chain. Only the
// fields meaningful to Op are read.
type TransformSpec struct {
	Op     string   `mapstructure:"op" json:"op"`
	Band   string   `mapstructure:"band" json:"band,omitempty"`
	Bands  []string `mapstructure:"bands" json:"bands,omitempty"`
	Output string   `mapstructure:"output" json:"output,omitempty"`
	Mul    float64  `mapstructure:"mul" json:"mul,omitempty"`
	Add    float64  `mapstructure:"add" json:"add,omitempty"`
	Bits   []int    `mapstructure:"bits" json:"bits,omitempty"`
	Radius float64  `mapstructure:"radius" json:"radius,omitempty"`
}

// StatisticSpec reduces one band to one named column.
type StatisticSpec struct {
	Name      string    `mapstructure:"name" json:"name"`
	Band      string    `mapstructure:"band" json:"band"`
	Stat      Statistic `mapstructure:"stat" json:"stat"`
	Threshold float64   `mapstructure:"threshold" json:"threshold,omitempty"`
}

// ChangeSpec enables first-vs-last change detection.
type ChangeSpec struct {
	Band       string     `mapstructure:"band" json:"band"`
	Threshold  float64    `mapstructure:"threshold" json:"threshold"`
	Comparison Comparison `mapstructure:"comparison" json:"comparison"`
	Export     bool       `mapstructure:"export" json:"export"`
	ExportName string     `mapstructure:"export_name" json:"export_name,omitempty"`
}

// ExportSpec controls which export jobs a run submits.
type ExportSpec struct {
	Images      bool         `mapstructure:"images" json:"images"`
	ImagePrefix string       `mapstructure:"image_prefix" json:"image_prefix"`
	ImageName   string       `mapstructure:"image_name" json:"image_name,omitempty"` // fixed name; "{band}" splits bands into files
	DateLayout  string       `mapstructure:"date_layout" json:"date_layout"`
	Table       bool         `mapstructure:"table" json:"table"`
	TableName   string       `mapstructure:"table_name" json:"table_name"`
	TableFormat ExportFormat `mapstructure:"table_format" json:"table_format"`
	Folder      string       `mapstructure:"folder" json:"folder"`
	Scale       float64      `mapstructure:"scale" json:"scale"`
	CRS         string       `mapstructure:"crs" json:"crs"`
	MaxCells    int64        `mapstructure:"max_cells" json:"max_cells"`
}

// PreviewSpec controls the rendered previews of a run.
type PreviewSpec struct {
	Band    string   `mapstructure:"band" json:"band"`
	Palette []string `mapstructure:"palette" json:"palette"`
	Min     float64  `mapstructure:"min" json:"min"`
	Max     float64  `mapstructure:"max" json:"max"`
	Layers  bool     `mapstructure:"layers" json:"layers"`
	Chart   bool     `mapstructure:"chart" json:"chart"`
	Title   string   `mapstructure:"title" json:"title"`
}
