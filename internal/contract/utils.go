package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/geoseries/schema"
)

// NoDataValue is the label shown for records derived from a placeholder slice.
const NoDataValue = "no data"

// Color variables for console output.
var (
	FailedColor  = color.New(color.FgRed, color.Bold) // FailedColor marks failed and rejected jobs.
	PendingColor = color.New(color.FgYellow)          // PendingColor marks jobs still in flight.
	DoneColor    = color.New(color.FgGreen)           // DoneColor marks completed jobs.
	NoDataColor  = color.New(color.FgCyan)            // NoDataColor marks placeholder records.
)

// GetColorLabel returns a colored job status for console output (table).
func GetColorLabel(status schema.JobStatus) string {
	text := string(status)
	switch status {
	case schema.JobCompleted:
		return DoneColor.Sprint(text)
	case schema.JobFailed, schema.JobRejected:
		return FailedColor.Sprint(text)
	default:
		return PendingColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetJobsDBFilePath returns the path to the SQLite DB file for job history.
func GetJobsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".geoseries_jobs.db"
	}
	return filepath.Join(homeDir, ".geoseries_jobs.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 so there is room for "..." and at least one character.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
