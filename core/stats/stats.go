// Package stats holds the NaN-aware statistics shared by compositing,
// filtering and region reduction.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/huangsam/geoseries/schema"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Valid copies the non-NaN values of xs into dst and returns it.
func Valid(dst, xs []float64) []float64 {
	dst = dst[:0]
	for _, v := range xs {
		if !math.IsNaN(v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// Median returns the median of xs, averaging the two middle values for even
// lengths. xs is sorted in place. Empty input returns NaN.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// Apply computes a statistic over already-filtered values. threshold is only
// read by CountBelowStat. The boolean is false when xs is empty and the
// statistic is undefined on an empty set.
func Apply(stat schema.Statistic, xs []float64, threshold float64) (float64, bool, error) {
	switch stat {
	case schema.CountStat:
		return float64(len(xs)), true, nil
	case schema.CountBelowStat:
		if len(xs) == 0 {
			return 0, false, nil
		}
		n := 0
		for _, v := range xs {
			if v < threshold {
				n++
			}
		}
		return float64(n), true, nil
	}

	if len(xs) == 0 {
		return 0, false, nil
	}
	switch stat {
	case schema.MinStat:
		return floats.Min(xs), true, nil
	case schema.MaxStat:
		return floats.Max(xs), true, nil
	case schema.SumStat:
		return floats.Sum(xs), true, nil
	case schema.MeanStat:
		return meanOf(xs), true, nil
	case schema.MedianStat:
		return Median(append([]float64(nil), xs...)), true, nil
	default:
		return 0, false, fmt.Errorf("unsupported statistic %q", stat)
	}
}

// Composite reduces one cell across slices.
func Composite(kind schema.Composite, xs []float64) float64 {
	switch kind {
	case schema.MeanComposite:
		if len(xs) == 0 {
			return math.NaN()
		}
		return meanOf(xs)
	case schema.MinComposite:
		if len(xs) == 0 {
			return math.NaN()
		}
		return floats.Min(xs)
	case schema.MaxComposite:
		if len(xs) == 0 {
			return math.NaN()
		}
		return floats.Max(xs)
	default:
		return Median(xs)
	}
}

func meanOf(xs []float64) float64 {
	return stat.Mean(xs, nil)
}
