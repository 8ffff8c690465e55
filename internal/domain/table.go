package domain

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Schema fields.
const (
	FieldDistrict = "district"
	FieldMonth    = "month"
	FieldYear     = "year"
	FieldCases    = "cases"
)

// schemaColumn declares one logical column and the header spellings accepted for it.
type schemaColumn struct {
	field    string
	aliases  []string
	required bool
}

var schema = []schemaColumn{
	{field: FieldDistrict, aliases: []string{"district", "district name", "districts"}, required: true},
	{field: FieldMonth, aliases: []string{"month", "month name", "period"}, required: true},
	{field: FieldYear, aliases: []string{"year"}},
	{field: FieldCases, aliases: []string{"cases", "case count", "confirmed cases", "total cases", "no of cases"}, required: true},
}

// columnIndex maps schema fields to their position in a header row.
type columnIndex map[string]int

// resolveColumns matches a header row against the schema. The first header
// matching an alias wins; later duplicates are ignored.
func resolveColumns(header []string) (columnIndex, ColumnNames, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := byName[key]; !seen {
			byName[key] = i
		}
	}

	idx := columnIndex{}
	var missing []string
	for _, col := range schema {
		found := false
		for _, alias := range col.aliases {
			if i, ok := byName[alias]; ok {
				idx[col.field] = i
				found = true
				break
			}
		}
		if !found && col.required {
			missing = append(missing, col.field)
		}
	}
	if len(missing) > 0 {
		return nil, ColumnNames{}, &SchemaError{Missing: missing}
	}

	names := ColumnNames{
		District: trimHeader(header[idx[FieldDistrict]]),
		Month:    trimHeader(header[idx[FieldMonth]]),
		Year:     DefaultColumns.Year,
		Cases:    trimHeader(header[idx[FieldCases]]),
	}
	if i, ok := idx[FieldYear]; ok {
		names.Year = trimHeader(header[i])
	}
	return idx, names, nil
}

// trimHeader returns the display spelling of a header cell.
func trimHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

// ParseTable validates a header row against the schema and converts the data
// rows into a Dataset. Rows with a cell that cannot be coerced are dropped and
// returned as warnings; only a missing required column fails the call.
func ParseTable(header []string, rows [][]string) (Dataset, []CoercionWarning, error) {
	if len(header) == 0 {
		return Dataset{}, nil, &SchemaError{Missing: []string{FieldDistrict, FieldMonth, FieldCases}}
	}

	idx, names, err := resolveColumns(header)
	if err != nil {
		return Dataset{}, nil, err
	}
	_, hasYear := idx[FieldYear]

	records := make([]CaseRecord, 0, len(rows))
	var warnings []CoercionWarning
	for i, row := range rows {
		line := i + 2 // header is line 1
		if isBlankRow(row) {
			continue
		}

		rec, warn, ok := parseRow(row, idx, hasYear)
		if !ok {
			warn.Row = line
			warnings = append(warnings, warn)
			continue
		}
		records = append(records, rec)
	}

	return Dataset{Columns: names, Records: records}, warnings, nil
}

func parseRow(row []string, idx columnIndex, hasYear bool) (CaseRecord, CoercionWarning, bool) {
	district := NormalizeDistrict(cell(row, idx, FieldDistrict))
	if district == "" {
		return CaseRecord{}, CoercionWarning{Column: FieldDistrict, Reason: "empty district"}, false
	}

	monthValue := cell(row, idx, FieldMonth)
	yearValue := cell(row, idx, FieldYear)
	period, column, err := resolvePeriod(monthValue, yearValue, hasYear)
	if err != nil {
		value := monthValue
		if column == FieldYear {
			value = yearValue
		}
		return CaseRecord{}, CoercionWarning{Column: column, Value: strings.TrimSpace(value), Reason: err.Error()}, false
	}

	rawCases := cell(row, idx, FieldCases)
	cases, err := parseCases(rawCases)
	if err != nil {
		return CaseRecord{}, CoercionWarning{Column: FieldCases, Value: strings.TrimSpace(rawCases), Reason: err.Error()}, false
	}

	return CaseRecord{District: district, Period: period, Cases: cases}, CoercionWarning{}, true
}

// cell returns the value for field, or "" when the row is too short or the
// field is not part of the header.
func cell(row []string, idx columnIndex, field string) string {
	i, ok := idx[field]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseCases coerces a case count cell to a non-negative integer.
func parseCases(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	s, ok := stripGrouping(s)
	if !ok {
		return 0, errors.New("not a number")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, errors.New("not a number")
		}
		if f != math.Trunc(f) {
			return 0, errors.New("not a whole number")
		}
		if f > math.MaxInt64 || f < math.MinInt64 {
			return 0, errors.New("out of range")
		}
		n = int64(f)
	}
	if n < 0 {
		return 0, errors.New("negative count")
	}
	return n, nil
}

// groupedNumbers match a count written with one thousands separator used
// consistently, such as "1,234,567" or "12 345.0".
var groupedNumbers = map[string]*regexp.Regexp{
	",": regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`),
	" ": regexp.MustCompile(`^[+-]?\d{1,3}( \d{3})+(\.\d+)?$`),
	"_": regexp.MustCompile(`^[+-]?\d{1,3}(_\d{3})+(\.\d+)?$`),
}

// stripGrouping removes thousands separators. A separator anywhere other
// than between groups of three digits (a decimal comma, "1,2,3") fails.
func stripGrouping(s string) (string, bool) {
	if !strings.ContainsAny(s, ", _") {
		return s, true
	}
	for sep, re := range groupedNumbers {
		if re.MatchString(s) {
			return strings.ReplaceAll(s, sep, ""), true
		}
	}
	return "", false
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
