package schema

import (
	"encoding/json"
	"strconv"
	"time"
)

// Measurement is a reduced statistic. Valid is false when every cell in the
// footprint was masked; Value is meaningless in that case.
type Measurement struct {
	Value float64
	Valid bool
}

// Missing returns the explicit missing marker.
func Missing() Measurement { return Measurement{} }

// Valued wraps a finite value.
func Valued(v float64) Measurement { return Measurement{Value: v, Valid: true} }

// Format renders the value with the given precision, or "NA" when missing.
func (m Measurement) Format(precision int) string {
	if !m.Valid {
		return "NA"
	}
	return strconv.FormatFloat(m.Value, 'f', precision, 64)
}

// MarshalJSON encodes a missing measurement as null.
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts a number or null.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Missing()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Valued(v)
	return nil
}

// StatisticRecord is one row of an assembled series.
type StatisticRecord struct {
	Label  string                 `json:"label"`
	Time   time.Time              `json:"time"`
	NoData bool                   `json:"no_data"` // derived from a sentinel slice or an empty fetch
	Values map[string]Measurement `json:"values"`
}

// Get returns the named statistic, or a missing marker if it was never computed.
func (r StatisticRecord) Get(name string) Measurement {
	if m, ok := r.Values[name]; ok {
		return m
	}
	return Missing()
}

// SeriesResult is an ordered series plus the column order of its statistics.
type SeriesResult struct {
	Recipe  string            `json:"recipe"`
	Dataset string            `json:"dataset"`
	Columns []string          `json:"columns"`
	Records []StatisticRecord `json:"records"`
}

// ChangeSummary is the outcome of comparing the first and last slice of a run.
type ChangeSummary struct {
	Band       string      `json:"band"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Threshold  float64     `json:"threshold"`
	Comparison Comparison  `json:"comparison"`
	TrueCells  int         `json:"true_cells"`
	AreaKm2    Measurement `json:"area_km2"`
}
