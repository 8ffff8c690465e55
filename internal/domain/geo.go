package domain

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Valid reports whether the pair lies within WGS-84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// DistrictCoordinate is one row of the reference table.
type DistrictCoordinate struct {
	District string  `json:"district" yaml:"district"`
	Lat      float64 `json:"lat" yaml:"lat"`
	Lon      float64 `json:"lon" yaml:"lon"`
}

// GeoRecord is a CaseRecord with its district's reference coordinate attached.
type GeoRecord struct {
	CaseRecord
	Coordinate
}

// CoordinateTable maps canonical district names to coordinates.
type CoordinateTable struct {
	byDistrict map[string]Coordinate
}

// NewCoordinateTable builds a table from entries. District names are
// normalized; duplicates and out-of-range coordinates are rejected.
func NewCoordinateTable(entries []DistrictCoordinate) (CoordinateTable, error) {
	t := CoordinateTable{byDistrict: make(map[string]Coordinate, len(entries))}
	for i, e := range entries {
		name := NormalizeDistrict(e.District)
		if name == "" {
			return CoordinateTable{}, fmt.Errorf("coordinate entry %d: empty district", i)
		}
		c := Coordinate{Lat: e.Lat, Lon: e.Lon}
		if !c.Valid() {
			return CoordinateTable{}, fmt.Errorf("coordinate entry %d (%s): lat/lon out of range", i, name)
		}
		if _, dup := t.byDistrict[name]; dup {
			return CoordinateTable{}, fmt.Errorf("coordinate entry %d: duplicate district %s", i, name)
		}
		t.byDistrict[name] = c
	}
	return t, nil
}

// Lookup returns the coordinate of a district, normalizing the name first.
func (t CoordinateTable) Lookup(district string) (Coordinate, bool) {
	c, ok := t.byDistrict[NormalizeDistrict(district)]
	return c, ok
}

// Len returns the number of districts in the table.
func (t CoordinateTable) Len() int {
	return len(t.byDistrict)
}

// Entries returns the table sorted by district.
func (t CoordinateTable) Entries() []DistrictCoordinate {
	out := lo.MapToSlice(t.byDistrict, func(d string, c Coordinate) DistrictCoordinate {
		return DistrictCoordinate{District: d, Lat: c.Lat, Lon: c.Lon}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out
}

// sriLankaDistricts holds approximate centroids of the 25 administrative districts.
var sriLankaDistricts = []DistrictCoordinate{
	{District: "Ampara", Lat: 7.2975, Lon: 81.6820},
	{District: "Anuradhapura", Lat: 8.3114, Lon: 80.4037},
	{District: "Badulla", Lat: 6.9934, Lon: 81.0550},
	{District: "Batticaloa", Lat: 7.7310, Lon: 81.6747},
	{District: "Colombo", Lat: 6.9271, Lon: 79.8612},
	{District: "Galle", Lat: 6.0535, Lon: 80.2210},
	{District: "Gampaha", Lat: 7.0873, Lon: 79.9990},
	{District: "Hambantota", Lat: 6.1429, Lon: 81.1212},
	{District: "Jaffna", Lat: 9.6615, Lon: 80.0255},
	{District: "Kalutara", Lat: 6.5854, Lon: 79.9607},
	{District: "Kandy", Lat: 7.2906, Lon: 80.6337},
	{District: "Kegalle", Lat: 7.2513, Lon: 80.3464},
	{District: "Kilinochchi", Lat: 9.3803, Lon: 80.3770},
	{District: "Kurunegala", Lat: 7.4863, Lon: 80.3623},
	{District: "Mannar", Lat: 8.9810, Lon: 79.9044},
	{District: "Matale", Lat: 7.4675, Lon: 80.6234},
	{District: "Matara", Lat: 5.9549, Lon: 80.5550},
	{District: "Monaragala", Lat: 6.8728, Lon: 81.3507},
	{District: "Mullaitivu", Lat: 9.2671, Lon: 80.8142},
	{District: "Nuwara Eliya", Lat: 6.9497, Lon: 80.7891},
	{District: "Polonnaruwa", Lat: 7.9403, Lon: 81.0188},
	{District: "Puttalam", Lat: 8.0362, Lon: 79.8283},
	{District: "Ratnapura", Lat: 6.7056, Lon: 80.3847},
	{District: "Trincomalee", Lat: 8.5874, Lon: 81.2152},
	{District: "Vavuniya", Lat: 8.7514, Lon: 80.4971},
}

// SriLankaDistricts returns the canonical names of the 25 districts.
func SriLankaDistricts() []string {
	return lo.Map(sriLankaDistricts, func(d DistrictCoordinate, _ int) string { return d.District })
}

// DefaultCoordinates returns the built-in reference table.
func DefaultCoordinates() CoordinateTable {
	t, err := NewCoordinateTable(sriLankaDistricts)
	if err != nil {
		panic("domain: invalid built-in coordinate table: " + err.Error())
	}
	return t
}

// LatestSnapshot returns the records of the chronologically latest period in
// the view, in input order, together with that period. An empty view yields
// a zero period.
func LatestSnapshot(view []CaseRecord) ([]CaseRecord, Period) {
	if len(view) == 0 {
		return nil, Period{}
	}
	latest := lo.MaxBy(view, func(a, b CaseRecord) bool { return b.Period.Before(a.Period) }).Period
	return lo.Filter(view, func(r CaseRecord, _ int) bool { return r.Period == latest }), latest
}

// GeoJoin attaches coordinates to every record whose district is in the
// table. Records without a match are dropped and reported once per district,
// sorted by district name.
func GeoJoin(view []CaseRecord, table CoordinateTable) ([]GeoRecord, []UnmatchedDistrictWarning) {
	joined := make([]GeoRecord, 0, len(view))
	unmatched := map[string]int{}
	for _, r := range view {
		c, ok := table.Lookup(r.District)
		if !ok {
			unmatched[r.District]++
			continue
		}
		joined = append(joined, GeoRecord{CaseRecord: r, Coordinate: c})
	}

	warnings := lo.MapToSlice(unmatched, func(d string, n int) UnmatchedDistrictWarning {
		return UnmatchedDistrictWarning{District: d, Records: n}
	})
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].District < warnings[j].District })
	return joined, warnings
}
