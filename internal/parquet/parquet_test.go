package parquet

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/geoseries/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err, "Should be able to open output file")
	defer file.Close()

	reader := parquet.NewGenericReader[T](file)
	defer reader.Close()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	return rows[:n]
}

func testRuns() []schema.RunRecord {
	start := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	end := start.Add(42 * time.Second)
	params := `{"recipe":"precipitation"}`
	return []schema.RunRecord{
		{RunID: 1, Recipe: "precipitation", StartTime: start, EndTime: &end, TotalJobs: 6, Params: &params},
		{RunID: 2, Recipe: "surface-water", StartTime: start.Add(time.Hour)},
	}
}

func TestWriteRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	data := ConvertRunRecords(testRuns())
	require.NoError(t, WriteRunsParquet(data, outputPath))

	got := readAll[Run](t, outputPath)
	require.Len(t, got, 2)
	assert.Equal(t, "precipitation", got[0].Recipe)
	assert.Equal(t, int32(6), got[0].TotalJobs)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, *data[0].EndTime, *got[0].EndTime, time.Nanosecond)
	require.NotNil(t, got[0].Params)
	assert.Equal(t, *data[0].Params, *got[0].Params)

	assert.Nil(t, got[1].EndTime, "unfinished run keeps a null end time")
	assert.Nil(t, got[1].Params)
}

func TestWriteJobsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "jobs.parquet")
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []schema.JobRecord{
		{RunID: 1, JobID: "a", Name: "Pr_2023-07-01", Folder: "out", Format: schema.GeoTIFFFormat, Status: schema.JobCompleted, Path: "out/Pr_2023-07-01.tif", SubmittedAt: now, UpdatedAt: now},
		{RunID: 1, JobID: "b", Name: "too_big", Folder: "out", Format: schema.GeoTIFFFormat, Status: schema.JobRejected, Error: "exceeds 100 cells", SubmittedAt: now, UpdatedAt: now},
	}
	require.NoError(t, WriteJobsParquet(ConvertJobRecords(records), outputPath))

	got := readAll[Job](t, outputPath)
	require.Len(t, got, 2)
	assert.Equal(t, "completed", got[0].Status)
	require.NotNil(t, got[0].Path)
	assert.Nil(t, got[0].Error)
	require.NotNil(t, got[1].Error)
	assert.Equal(t, "exceeds 100 cells", *got[1].Error)
	assert.Nil(t, got[1].Path)
}

func TestConvertSeries(t *testing.T) {
	day := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	result := schema.SeriesResult{
		Recipe:  "surface-water",
		Columns: []string{"vv_mean", "flooded_pixel_count"},
		Records: []schema.StatisticRecord{
			{Label: "2023-07-01", Time: day, Values: map[string]schema.Measurement{
				"vv_mean": schema.Valued(-12.5), "flooded_pixel_count": schema.Valued(3),
			}},
			{Label: "2023-07-02", Time: day.AddDate(0, 0, 1), NoData: true},
		},
	}
	rows := ConvertSeries(result)
	require.Len(t, rows, 4)
	assert.Equal(t, "vv_mean", rows[0].Column)
	require.NotNil(t, rows[0].Value)
	assert.Equal(t, -12.5, *rows[0].Value)
	assert.True(t, rows[3].NoData)
	assert.Nil(t, rows[3].Value)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))
	reader := parquet.NewGenericReader[SeriesValue](bytes.NewReader(buf.Bytes()))
	defer reader.Close()
	assert.Equal(t, int64(4), reader.NumRows())
}

func TestWriteEmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteRunsParquet([]Run{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
}

func TestWriteInvalidPath(t *testing.T) {
	err := WriteJobsParquet(nil, "/nonexistent/directory/output.parquet")
	require.Error(t, err)
}
