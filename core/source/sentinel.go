package source

import (
	"context"
	"fmt"

	"github.com/huangsam/geoseries/core/dates"
	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/sirupsen/logrus"
)

// WithSentinel substitutes a constant placeholder when next finds nothing.
// The placeholder covers the region on the dataset's own grid, carries the
// requested bands and timestamp, and is flagged Sentinel.
func WithSentinel(next Fetcher, c contract.Catalog, fill float64) Fetcher {
	return FetcherFunc(func(ctx context.Context, req Request, p dates.Period) (*raster.Slice, bool, error) {
		s, ok, err := next.FetchPeriod(ctx, req, p)
		if err != nil || ok {
			return s, ok, err
		}
		if len(req.Datasets) == 0 || req.Region == nil {
			return nil, false, fmt.Errorf("sentinel needs a dataset and a region")
		}
		grid, err := c.Grid(ctx, req.Datasets[0], req.Region.Bound())
		if err != nil {
			return nil, false, fmt.Errorf("failed to resolve sentinel grid: %w", err)
		}
		logrus.Infof("no data for %s in %s, substituting %g", p.Start.Format(schema.DefaultDateLayout), req.Datasets[0], fill)
		placeholder := raster.Constant(req.Datasets[0], p.Start, grid, req.Bands, fill)
		placeholder.Sentinel = true
		return placeholder, true, nil
	})
}

// Require turns an empty fetch into a NoMatchingDataError.
func Require(next Fetcher) Fetcher {
	return FetcherFunc(func(ctx context.Context, req Request, p dates.Period) (*raster.Slice, bool, error) {
		s, ok, err := next.FetchPeriod(ctx, req, p)
		if err != nil || ok {
			return s, ok, err
		}
		w := req.Window(p)
		dataset := ""
		if len(req.Datasets) > 0 {
			dataset = req.Datasets[0]
		}
		return nil, false, &schema.NoMatchingDataError{Dataset: dataset, Start: w.Start, End: w.End}
	})
}
