package schema

import "time"

// ExportParams carries the destination settings shared by every export job.
type ExportParams struct {
	Scale    float64      `json:"scale"`
	CRS      string       `json:"crs"`
	Format   ExportFormat `json:"format"`
	MaxCells int64        `json:"max_cells"`
}

// JobHandle is returned for every submitted export job. A rejected job still
// gets a handle so callers can see which item failed and why.
type JobHandle struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Folder      string       `json:"folder"`
	Format      ExportFormat `json:"format"`
	Status      JobStatus    `json:"status"`
	Error       string       `json:"error,omitempty"`
	Path        string       `json:"path,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

// DatasetInfo describes a catalog collection.
type DatasetInfo struct {
	Name      string    `json:"name"`
	Bands     []string  `json:"bands"`
	CRS       string    `json:"crs"`
	PixelSize float64   `json:"pixel_size"` // in CRS units
	Slices    int       `json:"slices"`
	First     time.Time `json:"first"`
	Last      time.Time `json:"last"`
}

// Filter restricts catalog matches by a slice property.
type Filter struct {
	Property string   `mapstructure:"property" json:"property"`
	Op       FilterOp `mapstructure:"op" json:"op"`
	Value    string   `mapstructure:"value" json:"value"`
}
