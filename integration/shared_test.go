//go:build basic || database || integration

package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/recipe"
	"github.com/huangsam/geoseries/internal/geotiff"
	"github.com/huangsam/geoseries/schema"
	"github.com/stretchr/testify/require"
)

var (
	// sharedBinaryPath holds the path to a shared geoseries binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// testBBox covers the 4x4 grid written by writeCatalog.
const testBBox = "10,0,10.04,0.04"

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getGeoseriesBinary returns the path to the geoseries binary, building it once if needed.
func getGeoseriesBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		// Create a temp directory for the binary
		var err error
		tempDir, err = os.MkdirTemp("", "geoseries-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "geoseries")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build geoseries: %v", err))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// writeCatalog writes days of daily precipitation scenes to a temp catalog.
// Every cell on day d holds d inches of rain, written in millimeters.
func writeCatalog(t *testing.T, days int) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, recipe.ChirpsDaily)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	grid := raster.Grid{
		Width:     4,
		Height:    4,
		Transform: raster.GeoTransform{OriginX: 10, OriginY: 0.04, PixelWidth: 0.01, PixelHeight: 0.01},
		CRS:       schema.GeographicCRS,
	}
	for d := 1; d <= days; d++ {
		day := time.Date(2023, 7, d, 0, 0, 0, 0, time.UTC)
		values := make([]float64, grid.Len())
		for i := range values {
			values[i] = 25.4 * float64(d)
		}
		s, err := raster.New(recipe.ChirpsDaily, day, grid).WithBand("precipitation", values)
		require.NoError(t, err)

		f, err := os.Create(filepath.Join(dir, "chirps_"+day.Format("2006-01-02")+".tif"))
		require.NoError(t, err)
		require.NoError(t, geotiff.Encode(f, s, geotiff.DefaultOptions()))
		require.NoError(t, f.Close())
	}
	return root
}

// runGeoseries runs the binary from dir and returns its stdout.
func runGeoseries(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getGeoseriesBinary(), args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	output, err := cmd.Output()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s", cmd.String(), string(output))
	}
	return string(output), err
}
