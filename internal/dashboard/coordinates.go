package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	"github.com/samber/lo"
)

// FillCoordinates geocodes the canonical districts of the dataset that coords
// lacks, such as when a custom reference file omits some of the 25 districts.
// Names outside the canonical set are never geocoded and stay unmatched.
// It returns the extended table plus the dataset districts that still have no
// coordinate. A nil geocoder returns coords unchanged.
func FillCoordinates(ctx context.Context, ds domain.Dataset, coords domain.CoordinateTable, geocoder domain.Geocoder, country string, logger *slog.Logger) (domain.CoordinateTable, []string, error) {
	canonical := domain.DefaultCoordinates()
	absent := lo.Filter(ds.Districts(), func(d string, _ int) bool {
		_, ok := coords.Lookup(d)
		return !ok
	})
	candidates := lo.Filter(absent, func(d string, _ int) bool {
		_, ok := canonical.Lookup(d)
		return ok
	})
	if len(candidates) == 0 || geocoder == nil {
		return coords, absent, nil
	}

	resolved, _ := domain.ResolveCoordinates(ctx, candidates, country, geocoder, logger)
	if len(resolved) == 0 {
		return coords, absent, nil
	}

	merged, err := domain.NewCoordinateTable(append(coords.Entries(), resolved...))
	if err != nil {
		return coords, absent, fmt.Errorf("merge geocoded coordinates: %w", err)
	}
	missing := lo.Filter(absent, func(d string, _ int) bool {
		_, ok := merged.Lookup(d)
		return !ok
	})
	logger.Info("geocoded missing districts", "resolved", len(resolved), "missing", len(missing))
	return merged, missing, nil
}
