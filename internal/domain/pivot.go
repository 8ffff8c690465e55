package domain

import "github.com/samber/lo"

// PivotMatrix is a district × period grid of summed cases. Rows are districts
// in alphabetical order, columns are periods in chronological order, and every
// cell is present (0 when the view has no record for it).
type PivotMatrix struct {
	Districts []string  `json:"districts"`
	Periods   []Period  `json:"periods"`
	Cells     [][]int64 `json:"cells"`
}

// BuildPivot reshapes a view into a PivotMatrix. The result does not depend on
// input order. An empty view gives empty, non-nil slices.
func BuildPivot(view []CaseRecord) PivotMatrix {
	districts := append([]string{}, districtsOf(view)...)
	periods := append([]Period{}, periodsOf(view)...)

	row := make(map[string]int, len(districts))
	for i, d := range districts {
		row[d] = i
	}
	col := make(map[Period]int, len(periods))
	for j, p := range periods {
		col[p] = j
	}

	cells := make([][]int64, len(districts))
	for i := range cells {
		cells[i] = make([]int64, len(periods))
	}
	for _, r := range view {
		cells[row[r.District]][col[r.Period]] += r.Cases
	}

	return PivotMatrix{Districts: districts, Periods: periods, Cells: cells}
}

// Cell returns the value at (district, period). ok is false when either key is
// not part of the matrix.
func (m PivotMatrix) Cell(district string, p Period) (int64, bool) {
	i := lo.IndexOf(m.Districts, NormalizeDistrict(district))
	j := lo.IndexOf(m.Periods, p)
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Cells[i][j], true
}

// PeriodLabels returns the column headers.
func (m PivotMatrix) PeriodLabels() []string {
	return lo.Map(m.Periods, func(p Period, _ int) string { return p.Label() })
}

// RowTotals returns the sum of each district row.
func (m PivotMatrix) RowTotals() []int64 {
	return lo.Map(m.Cells, func(row []int64, _ int) int64 { return lo.Sum(row) })
}

// IsEmpty reports whether the matrix has no cells.
func (m PivotMatrix) IsEmpty() bool {
	return len(m.Districts) == 0 || len(m.Periods) == 0
}
