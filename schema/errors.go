package schema

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. The typed errors below match them through errors.Is.
var (
	ErrInvalidRange       = errors.New("invalid range")
	ErrBandNotFound       = errors.New("band not found")
	ErrCellBudgetExceeded = errors.New("cell budget exceeded")
	ErrGridMismatch       = errors.New("grid mismatch")
	ErrDuplicateName      = errors.New("duplicate export name")
	ErrNoMatchingData     = errors.New("no matching data")
	ErrInvalidName        = errors.New("invalid export name")
)

// InvalidRangeError reports a date range or step that cannot be expanded.
type InvalidRangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *InvalidRangeError) Error() string {
	if e.Start.IsZero() && e.End.IsZero() {
		return fmt.Sprintf("invalid range: %s", e.Reason)
	}
	return fmt.Sprintf("invalid range [%s, %s): %s", e.Start.Format(DefaultDateLayout), e.End.Format(DefaultDateLayout), e.Reason)
}

func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

// BandNotFoundError reports a band missing from a dataset or slice.
type BandNotFoundError struct {
	Dataset string
	Band    string
}

func (e *BandNotFoundError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("band %q not found", e.Band)
	}
	return fmt.Sprintf("band %q not found in dataset %q", e.Band, e.Dataset)
}

func (e *BandNotFoundError) Is(target error) bool { return target == ErrBandNotFound }

// CellBudgetExceededError reports a reduction or export that would touch too many cells.
type CellBudgetExceededError struct {
	Estimated int64
	Budget    int64
	Scale     float64
}

func (e *CellBudgetExceededError) Error() string {
	return fmt.Sprintf("cell budget exceeded: %d cells at %gm scale, budget %d", e.Estimated, e.Scale, e.Budget)
}

func (e *CellBudgetExceededError) Is(target error) bool { return target == ErrCellBudgetExceeded }

// GridMismatchError reports two slices that do not share a grid.
type GridMismatchError struct {
	Left  string
	Right string
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("grid mismatch: %s vs %s", e.Left, e.Right)
}

func (e *GridMismatchError) Is(target error) bool { return target == ErrGridMismatch }

// DuplicateNameError reports export jobs that share a destination name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate export name %q", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrDuplicateName }

// NoMatchingDataError reports a fetch whose filter matched nothing.
type NoMatchingDataError struct {
	Dataset string
	Start   time.Time
	End     time.Time
}

func (e *NoMatchingDataError) Error() string {
	return fmt.Sprintf("no data in %q for [%s, %s)", e.Dataset, e.Start.Format(DefaultDateLayout), e.End.Format(DefaultDateLayout))
}

func (e *NoMatchingDataError) Is(target error) bool { return target == ErrNoMatchingData }
