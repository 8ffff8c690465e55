// Package domain models monthly COVID-19 case counts reported per district of
// Sri Lanka and the derived views built from them.
//
// # Data Source
//
// The source is a flat table (CSV or XLSX) with one row per district per
// reporting month. Header spelling drifts between exports, so columns are
// matched against a declared schema with aliases:
//
//	district   "District", "District Name", "district-name", "district_name"
//	month      "Month"
//	year       "Year"            (optional when months carry their own year)
//	cases      "Cases", "Case Count", "Confirmed Cases", "Total Cases"
//
// Header names are trimmed and compared case-insensitively; "-" and "_" are
// treated as spaces. A missing required column fails the load with a
// [SchemaError] naming every missing column.
//
// # Value Conventions
//
// District names:
//
//	Trimmed, inner whitespace collapsed, title-cased: "  COLOMBO " → "Colombo",
//	"nuwara  eliya" → "Nuwara Eliya". Normalizing twice is a no-op.
//
// Months:
//
//	A month cell is either a bare month ("Jan", "January", "1", "01") paired
//	with the year column, or a combined value that carries its own year:
//	"2021-01", "2021-01-15", "Jan-21", "Jan-2021", "January 2021", "01/2021".
//	Two-digit years are read as 20YY. Periods order by (year, month), never by
//	label text: "Dec-20" < "Jan-21" < "Feb-21" < "Jan-22".
//
// Case counts:
//
//	Non-negative integers. Thousands separators ("1,234") and integral floats
//	("12.0") are accepted. Anything else drops the row with a [CoercionWarning];
//	the load continues.
//
// # Views
//
// A view is any []CaseRecord obtained from the dataset, usually through
// [FilterEngine.Apply]. Duplicate (district, period) rows are never merged at
// load time; every aggregate sums them. Aggregates over an empty view return
// [ErrEmptyView] and callers substitute a "no data" state.
//
// # Geography
//
// The 25 administrative districts have a fixed reference coordinate
// ([DefaultCoordinates]). Records whose district is not in the table are left
// out of geo-joined output and reported as [UnmatchedDistrictWarning].
package domain
