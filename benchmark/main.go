// Package main provides a performance benchmarking tool for the geoseries CLI.
// It writes synthetic precipitation catalogs of increasing grid size, runs the
// precipitation recipe against each one several times, treating the first
// successful run as cold and averaging the rest as warm, and saves a CSV report.
//
// Prerequisites:
// - geoseries binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where catalogs and exports are written
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/recipe"
	"github.com/huangsam/geoseries/internal/geotiff"
	"github.com/huangsam/geoseries/schema"
)

// BenchmarkResult holds the result of a benchmark run (no-store average, cold run and average of warm runs).
type BenchmarkResult struct {
	Catalog     string `csv:"catalog"`
	Command     string `csv:"cmd"`
	NoStoreTime string `csv:"no_store_avg"`
	ColdTime    string `csv:"cold_time"`
	WarmTime    string `csv:"warm_avg"`
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	Days        int
	NoStoreRuns int
	StoreRuns   int
	GridSides   map[string]int
	Order       []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     8,
		Days:        31,
		NoStoreRuns: 3,
		StoreRuns:   4,
		GridSides:   map[string]int{"small": 64, "medium": 256, "large": 1024},
		Order:       []string{"small", "medium", "large"},
	}

	if _, err := exec.LookPath("geoseries"); err != nil {
		fmt.Printf("Prerequisites check failed: geoseries binary not found in PATH\n")
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results, config.Order)
}

// writeCatalog writes a month of daily scenes on a side x side grid.
func writeCatalog(root string, side, days int) error {
	dir := filepath.Join(root, recipe.ChirpsDaily)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	pixel := 0.05
	grid := raster.Grid{
		Width:     side,
		Height:    side,
		Transform: raster.GeoTransform{OriginX: 10, OriginY: float64(side) * pixel, PixelWidth: pixel, PixelHeight: pixel},
		CRS:       schema.GeographicCRS,
	}
	for d := 1; d <= days; d++ {
		day := time.Date(2023, 7, d, 0, 0, 0, 0, time.UTC)
		values := make([]float64, grid.Len())
		for i := range values {
			values[i] = float64((i*7+d*13)%50) * 1.5
		}
		s, err := raster.New(recipe.ChirpsDaily, day, grid).WithBand("precipitation", values)
		if err != nil {
			return err
		}
		f, err := os.Create(filepath.Join(dir, "chirps_"+day.Format("2006-01-02")+".tif"))
		if err != nil {
			return err
		}
		if err := geotiff.Encode(f, s, geotiff.DefaultOptions()); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// runBenchmarks executes the plan and run commands across configured catalogs.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d catalogs, %v timeout, %d workers, no-store: %d runs, store: %d runs\n",
		len(config.Order), config.Timeout, config.Workers, config.NoStoreRuns, config.StoreRuns)

	for _, name := range config.Order {
		side := config.GridSides[name]
		catalogDir := filepath.Join(config.WorkDir, "catalog-"+name)
		fmt.Printf("Writing %s catalog (%dx%d, %d days)\n", name, side, side, config.Days)
		if err := writeCatalog(catalogDir, side, config.Days); err != nil {
			fmt.Printf("Warning: failed to write catalog %s: %v\n", name, err)
			continue
		}

		bbox := fmt.Sprintf("10,0,%g,%g", 10+float64(side)*0.05, float64(side)*0.05)
		base := []string{
			"--catalog", catalogDir,
			"--bbox", bbox,
			"--start", "2023-07-01",
			"--end", "2023-08-01",
		}
		results = append(results, runBenchmarkSuite(config, name, "plan", append([]string{"plan", "precipitation"}, base...)))

		runArgs := append([]string{"run", "precipitation"}, base...)
		runArgs = append(runArgs,
			"--out-dir", filepath.Join(config.WorkDir, "exports-"+name),
			"--workers", fmt.Sprint(config.Workers),
			"--output", "csv",
		)
		results = append(results, runBenchmarkSuite(config, name, "run", runArgs))
	}

	return results
}

// runBenchmarkSuite runs both no-store and store benchmarks for a command.
func runBenchmarkSuite(config BenchmarkConfig, name, command string, args []string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, name)

	runPhase := func(backend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		phaseArgs := append(append([]string{}, args...), "--job-backend", backend)
		cold, times := runBenchmark(config, phaseArgs, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	_, noStoreAvg := runPhase("none", config.NoStoreRuns, "No-store")
	coldTime, warmAvg := runPhase("sqlite", config.StoreRuns, "Store")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-store average: %s, Cold time: %s, Warm average: %s\n", noStoreAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Catalog:     name,
		Command:     command,
		NoStoreTime: noStoreAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a geoseries command multiple times and returns cold time and warm times.
func runBenchmark(config BenchmarkConfig, args []string, numRuns int) (coldTime float64, warmTimes []float64) {
	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("geoseries", args...)
		done := make(chan bool, 1)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.Output()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output, args[0]) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output looks like a finished plan or series.
func isSuccess(output []byte, command string) bool {
	out := string(output)
	if command == "plan" {
		return strings.Contains(out, "Periods")
	}
	return strings.Contains(out, "date") && strings.Contains(out, "2023-07-31")
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("geoseries_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary.
func printSummary(results []BenchmarkResult, order []string) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range []string{"plan", "run"} {
		fmt.Printf("%s:\n", strings.ToUpper(command[:1])+command[1:])
		for _, name := range order {
			for _, r := range results {
				if r.Catalog == name && r.Command == command {
					fmt.Printf("  %-8s: No-store: %s, Cold: %s, Warm: %s\n", r.Catalog, r.NoStoreTime, r.ColdTime, r.WarmTime)
				}
			}
		}
	}
}
