// Package geojson renders geo-joined case records as a GeoJSON
// FeatureCollection of district points.
package geojson

import (
	"fmt"

	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	geojson "github.com/paulmach/go.geojson"
)

// Feature property keys.
const (
	PropDistrict = "district"
	PropPeriod   = "period"
	PropCases    = "cases"
)

// FeatureCollection converts geo records into point features. Records of the
// same district and period are merged into one feature with summed cases, in
// first-seen order.
func FeatureCollection(records []domain.GeoRecord) *geojson.FeatureCollection {
	type key struct {
		district string
		period   domain.Period
	}

	fc := geojson.NewFeatureCollection()
	index := map[key]*geojson.Feature{}
	for _, r := range records {
		k := key{district: r.District, period: r.Period}
		if f, ok := index[k]; ok {
			f.SetProperty(PropCases, f.Properties[PropCases].(int64)+r.Cases)
			continue
		}

		// GeoJSON positions are [lon, lat].
		f := geojson.NewPointFeature([]float64{r.Lon, r.Lat})
		f.SetProperty(PropDistrict, r.District)
		f.SetProperty(PropPeriod, r.Period.Label())
		f.SetProperty(PropCases, r.Cases)
		fc.AddFeature(f)
		index[k] = f
	}
	return fc
}

// Marshal encodes records as a GeoJSON document.
func Marshal(records []domain.GeoRecord) ([]byte, error) {
	data, err := FeatureCollection(records).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal geojson: %w", err)
	}
	return data, nil
}
