package outwriter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)

func testReport() schema.RunReport {
	return schema.RunReport{
		RunID: 7,
		Series: schema.SeriesResult{
			Recipe:  "precipitation",
			Dataset: "CHIRPS",
			Columns: []string{"daily_precipitation"},
			Records: []schema.StatisticRecord{
				{Label: "2023-07-01", Time: day, Values: map[string]schema.Measurement{"daily_precipitation": schema.Valued(0.123456)}},
				{Label: "2023-07-02", Time: day.AddDate(0, 0, 1), NoData: true},
			},
		},
		Change: &schema.ChangeSummary{
			Band: "VV", From: "2023-07-01", To: "2023-07-02", Threshold: 5,
			Comparison: schema.GreaterThan, TrueCells: 3, AreaKm2: schema.Valued(0.03),
		},
		Jobs: []schema.JobHandle{
			{ID: "a", Name: "Pr_2023-07-01", Format: schema.GeoTIFFFormat, Status: schema.JobCompleted, Path: "exports/Pr_2023-07-01.tif"},
			{Name: "big", Format: schema.GeoTIFFFormat, Status: schema.JobRejected, Error: "cell budget exceeded"},
		},
		Previews: []string{"exports/precipitation.html"},
		Duration: 2 * time.Second,
	}
}

func testConfig(t *testing.T, out schema.OutputMode) *contract.Config {
	t.Helper()
	return &contract.Config{
		Output:     out,
		OutputFile: filepath.Join(t.TempDir(), "out"),
		Precision:  2,
		Width:      120,
	}
}

func readOutput(t *testing.T, cfg *contract.Config) string {
	t.Helper()
	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	return string(data)
}

func TestWriteRunText(t *testing.T) {
	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WriteRun(testReport(), cfg))

	out := readOutput(t, cfg)
	assert.Contains(t, out, "PRECIPITATION")
	assert.Contains(t, out, "0.12")
	assert.Contains(t, out, "NA")
	assert.Contains(t, out, contract.NoDataValue)
	assert.Contains(t, out, "Change 2023-07-01 -> 2023-07-02 on VV (gt 5): 3 cells, area 0.03 km2")
	assert.Contains(t, out, "cell budget exceeded")
	assert.Contains(t, out, "Preview: exports/precipitation.html")
	assert.Contains(t, out, "2 records, 1 without data, 2 export jobs. Run ID: 7")
}

func TestWriteRunJSON(t *testing.T) {
	cfg := testConfig(t, schema.JSONOut)
	require.NoError(t, NewOutWriter().WriteRun(testReport(), cfg))

	var back map[string]any
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &back))
	assert.EqualValues(t, 7, back["run_id"])
	series := back["series"].(map[string]any)
	records := series["records"].([]any)
	require.Len(t, records, 2)
	second := records[1].(map[string]any)
	assert.Equal(t, true, second["no_data"])
	assert.Len(t, back["jobs"], 2)
}

func TestWriteRunCSV(t *testing.T) {
	cfg := testConfig(t, schema.CSVOut)
	require.NoError(t, NewOutWriter().WriteRun(testReport(), cfg))
	assert.Equal(t, "date,daily_precipitation\n2023-07-01,0.123456\n2023-07-02,NA\n", readOutput(t, cfg))
}

func testJobs() []schema.JobRecord {
	return []schema.JobRecord{
		{RunID: 1, JobID: "a", Name: "Pr_2023-07-01", Format: schema.GeoTIFFFormat, Status: schema.JobCompleted, Path: "exports/Pr_2023-07-01.tif", SubmittedAt: day, UpdatedAt: day},
		{RunID: 1, JobID: "b", Name: "table", Format: schema.CSVFormat, Status: schema.JobFailed, Error: "disk full", SubmittedAt: day, UpdatedAt: day},
	}
}

func TestWriteJobsCSV(t *testing.T) {
	cfg := testConfig(t, schema.CSVOut)
	require.NoError(t, NewOutWriter().WriteJobs(testJobs(), cfg))

	var rows []jobRow
	require.NoError(t, gocsv.UnmarshalString(readOutput(t, cfg), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].JobID)
	assert.Equal(t, "failed", rows[1].Status)
	assert.Equal(t, "disk full", rows[1].Error)
	assert.Equal(t, "2023-07-01T00:00:00Z", rows[0].SubmittedAt)
}

func TestWriteJobsText(t *testing.T) {
	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WriteJobs(testJobs(), cfg))
	out := readOutput(t, cfg)
	assert.Contains(t, out, "Pr_2023-07-01")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "2 jobs as of")
}

func TestWriteJobsEmptyCSV(t *testing.T) {
	cfg := testConfig(t, schema.CSVOut)
	require.NoError(t, NewOutWriter().WriteJobs(nil, cfg))
	assert.Equal(t, "run_id,job_id,name,folder,format,status,path,error,submitted_at,updated_at",
		strings.TrimSpace(readOutput(t, cfg)))
}

func TestWriteDatasets(t *testing.T) {
	infos := []schema.DatasetInfo{
		{Name: "CHIRPS", Bands: []string{"precipitation"}, CRS: schema.GeographicCRS, PixelSize: 0.05, Slices: 31, First: day, Last: day.AddDate(0, 0, 30)},
	}

	cfg := testConfig(t, schema.CSVOut)
	require.NoError(t, NewOutWriter().WriteDatasets(infos, cfg))
	assert.Contains(t, readOutput(t, cfg), "CHIRPS,precipitation,EPSG:4326,0.05,31,2023-07-01,2023-07-31")

	cfg = testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WriteDatasets(infos, cfg))
	assert.Contains(t, readOutput(t, cfg), "2023-07-31")
}

func TestWriteRecipes(t *testing.T) {
	recipes := []schema.Recipe{
		{Name: "precipitation", Dataset: "CHIRPS", Start: "2023-07-01", End: "2023-08-01", Step: "1 day",
			Statistics: []schema.StatisticSpec{{Name: "daily_precipitation", Band: "precipitation", Stat: schema.MaxStat}},
			Description: "Daily precipitation"},
		{Name: "landcover", Dataset: "NLCD", Static: true},
	}

	cfg := testConfig(t, schema.CSVOut)
	require.NoError(t, NewOutWriter().WriteRecipes(recipes, cfg))
	var rows []recipeRow
	require.NoError(t, gocsv.UnmarshalString(readOutput(t, cfg), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "2023-07-01 .. 2023-08-01", rows[0].Range)
	assert.Equal(t, "daily_precipitation", rows[0].Columns)
	assert.Equal(t, "static", rows[1].Range)

	cfg = testConfig(t, schema.JSONOut)
	require.NoError(t, NewOutWriter().WriteRecipes(recipes, cfg))
	var back []schema.Recipe
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &back))
	assert.Equal(t, recipes[0].Statistics, back[0].Statistics)
}

func TestGetMaxTablePathWidth(t *testing.T) {
	assert.Equal(t, 15, GetMaxTablePathWidth(&contract.Config{Width: 40}))
	assert.Equal(t, 40, GetMaxTablePathWidth(&contract.Config{Width: 100}))
	assert.Equal(t, 70, GetMaxTablePathWidth(&contract.Config{Width: 400}))
}

func testPlan() schema.PlanSummary {
	return schema.PlanSummary{
		Recipe:  "precipitation",
		Dataset: "CHIRPS",
		Region:  "1 polygon(s)",
		Periods: []string{"2023-07-01", "2023-07-02", "2023-07-03", "2023-07-04", "2023-07-05", "2023-07-06", "2023-07-07"},
		Columns: []string{"daily_precipitation"},
		Steps:   []string{"expand", "fetch", "reduce"},
	}
}

func TestWritePlan(t *testing.T) {
	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, NewOutWriter().WritePlan(testPlan(), cfg))
	out := readOutput(t, cfg)
	assert.Contains(t, out, "Recipe precipitation on CHIRPS")
	assert.Contains(t, out, "  2. fetch")
	assert.Contains(t, out, "Periods (7): 2023-07-01, 2023-07-02, 2023-07-03, ..., 2023-07-07")

	cfg = testConfig(t, schema.CSVOut)
	require.NoError(t, NewOutWriter().WritePlan(testPlan(), cfg))
	assert.Equal(t, "recipe,step,action\nprecipitation,1,expand\nprecipitation,2,fetch\nprecipitation,3,reduce\n", readOutput(t, cfg))

	cfg = testConfig(t, schema.JSONOut)
	require.NoError(t, NewOutWriter().WritePlan(testPlan(), cfg))
	var back schema.PlanSummary
	require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &back))
	assert.Equal(t, testPlan(), back)
}

func TestLogRunHeader(t *testing.T) {
	var buf bytes.Buffer
	LogRunHeader(&buf, "precipitation", "CHIRPS", "bbox", []string{"2023-07-01", "2023-07-02"})
	assert.Contains(t, buf.String(), "precipitation (Dataset: CHIRPS)")
	assert.Contains(t, buf.String(), "2023-07-01 -> 2023-07-02 (2 periods)")

	buf.Reset()
	LogRunHeader(&buf, "landcover", "NLCD", "bbox", []string{"static"})
	assert.Contains(t, buf.String(), "period static")
}
