package domain

import (
	"context"
	"log/slog"
)

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Found reports whether the provider returned a coordinate.
func (r GeocodingResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves place names to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a place name within a country to coordinates.
	ForwardGeocode(ctx context.Context, name, country string) (GeocodingResult, error)
}

// ResolveCoordinates looks up every district through the geocoder and
// returns the entries that resolved, in input order, plus the names that did
// not. Failures are logged and skipped so one bad lookup does not lose the
// rest of the table.
func ResolveCoordinates(ctx context.Context, districts []string, country string, geocoder Geocoder, logger *slog.Logger) ([]DistrictCoordinate, []string) {
	var resolved []DistrictCoordinate
	var missing []string
	for _, d := range districts {
		name := NormalizeDistrict(d)
		if name == "" {
			continue
		}
		if ctx.Err() != nil {
			missing = append(missing, name)
			continue
		}

		result, err := geocoder.ForwardGeocode(ctx, name+" District", country)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"district", name,
				"country", country,
				"error", err,
			)
			missing = append(missing, name)
			continue
		}
		if !result.Found() {
			logger.Warn("district not found by geocoder", "district", name, "country", country)
			missing = append(missing, name)
			continue
		}
		resolved = append(resolved, DistrictCoordinate{District: name, Lat: result.Lat, Lon: result.Lon})
	}
	return resolved, missing
}
