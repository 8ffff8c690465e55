package domain

import (
	"sort"

	"github.com/samber/lo"
)

// GroupBy selects the grouping applied before averaging in MeanCases.
type GroupBy int

const (
	// GroupByPeriod averages the per-month totals across all selected districts.
	GroupByPeriod GroupBy = iota
	// GroupByDistrict averages the per-district totals.
	GroupByDistrict
	// GroupByDistrictPeriod averages the per-(district, month) totals, which
	// merges duplicate source rows before averaging.
	GroupByDistrictPeriod
)

// DistrictTotal is the summed case count of one district.
type DistrictTotal struct {
	District string `json:"district"`
	Cases    int64  `json:"cases"`
}

// PeriodTotal is the summed case count of one period.
type PeriodTotal struct {
	Period Period `json:"period"`
	Cases  int64  `json:"cases"`
}

// DistrictShare is a district's total and its percentage of the view total.
type DistrictShare struct {
	District string  `json:"district"`
	Cases    int64   `json:"cases"`
	Percent  float64 `json:"percent"`
}

// AggregateView is the headline summary of a view.
type AggregateView struct {
	TotalCases  int64         `json:"total_cases"`
	MeanCases   float64       `json:"mean_cases_per_period"`
	TopDistrict DistrictTotal `json:"top_district"`
	TopPeriod   PeriodTotal   `json:"top_period"`
	Records     int           `json:"records"`
	Districts   int           `json:"districts"`
	Periods     int           `json:"periods"`
}

// TotalCases sums cases over the view.
func TotalCases(view []CaseRecord) (int64, error) {
	if len(view) == 0 {
		return 0, ErrEmptyView
	}
	return lo.SumBy(view, func(r CaseRecord) int64 { return r.Cases }), nil
}

// MeanCases returns the mean of per-group sums. Grouping before averaging
// matters: with several districts per month, the mean per month differs from
// the mean per row.
func MeanCases(view []CaseRecord, by GroupBy) (float64, error) {
	if len(view) == 0 {
		return 0, ErrEmptyView
	}

	type groupKey struct {
		district string
		period   Period
	}
	sums := map[groupKey]int64{}
	for _, r := range view {
		var k groupKey
		switch by {
		case GroupByDistrict:
			k.district = r.District
		case GroupByDistrictPeriod:
			k = groupKey{district: r.District, period: r.Period}
		default:
			k.period = r.Period
		}
		sums[k] += r.Cases
	}

	var total int64
	for _, v := range sums {
		total += v
	}
	return float64(total) / float64(len(sums)), nil
}

// TopDistrict returns the district with the largest total. Ties go to the
// alphabetically first district.
func TopDistrict(view []CaseRecord) (DistrictTotal, error) {
	totals := districtTotals(view)
	if len(totals) == 0 {
		return DistrictTotal{}, ErrEmptyView
	}
	best := totals[0]
	for _, t := range totals[1:] {
		if t.Cases > best.Cases {
			best = t
		}
	}
	return best, nil
}

// TopPeriod returns the period with the largest total. Ties go to the
// chronologically first period.
func TopPeriod(view []CaseRecord) (PeriodTotal, error) {
	totals := periodTotals(view)
	if len(totals) == 0 {
		return PeriodTotal{}, ErrEmptyView
	}
	best := totals[0]
	for _, t := range totals[1:] {
		if t.Cases > best.Cases {
			best = t
		}
	}
	return best, nil
}

// Rank orders districts by total descending, ties alphabetically, and keeps
// at most n entries. n <= 0 yields an empty ranking.
func Rank(view []CaseRecord, n int) ([]DistrictTotal, error) {
	totals := districtTotals(view)
	if len(totals) == 0 {
		return nil, ErrEmptyView
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Cases > totals[j].Cases
	})
	if n < 0 {
		n = 0
	}
	if n < len(totals) {
		totals = totals[:n]
	}
	return totals, nil
}

// MonthlyTrend returns per-period totals in chronological order.
func MonthlyTrend(view []CaseRecord) ([]PeriodTotal, error) {
	totals := periodTotals(view)
	if len(totals) == 0 {
		return nil, ErrEmptyView
	}
	return totals, nil
}

// DistrictTrend returns the chronological per-period totals of one district.
func DistrictTrend(view []CaseRecord, district string) ([]PeriodTotal, error) {
	name := NormalizeDistrict(district)
	return MonthlyTrend(lo.Filter(view, func(r CaseRecord, _ int) bool { return r.District == name }))
}

// DistrictShares returns every district's share of the view total in ranking order.
func DistrictShares(view []CaseRecord) ([]DistrictShare, error) {
	ranked, err := Rank(view, len(view))
	if err != nil {
		return nil, err
	}
	total := lo.SumBy(ranked, func(t DistrictTotal) int64 { return t.Cases })
	return lo.Map(ranked, func(t DistrictTotal, _ int) DistrictShare {
		share := DistrictShare{District: t.District, Cases: t.Cases}
		if total > 0 {
			share.Percent = float64(t.Cases) * 100 / float64(total)
		}
		return share
	}), nil
}

// Summarize computes the AggregateView of a view. The mean is per period.
func Summarize(view []CaseRecord) (AggregateView, error) {
	total, err := TotalCases(view)
	if err != nil {
		return AggregateView{}, err
	}
	mean, err := MeanCases(view, GroupByPeriod)
	if err != nil {
		return AggregateView{}, err
	}
	topDistrict, err := TopDistrict(view)
	if err != nil {
		return AggregateView{}, err
	}
	topPeriod, err := TopPeriod(view)
	if err != nil {
		return AggregateView{}, err
	}
	return AggregateView{
		TotalCases:  total,
		MeanCases:   mean,
		TopDistrict: topDistrict,
		TopPeriod:   topPeriod,
		Records:     len(view),
		Districts:   len(districtsOf(view)),
		Periods:     len(periodsOf(view)),
	}, nil
}

// districtTotals sums cases per district, sorted alphabetically.
func districtTotals(view []CaseRecord) []DistrictTotal {
	sums := map[string]int64{}
	for _, r := range view {
		sums[r.District] += r.Cases
	}
	out := make([]DistrictTotal, 0, len(sums))
	for d, c := range sums {
		out = append(out, DistrictTotal{District: d, Cases: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out
}

// periodTotals sums cases per period, sorted chronologically.
func periodTotals(view []CaseRecord) []PeriodTotal {
	sums := map[Period]int64{}
	for _, r := range view {
		sums[r.Period] += r.Cases
	}
	out := make([]PeriodTotal, 0, len(sums))
	for p, c := range sums {
		out = append(out, PeriodTotal{Period: p, Cases: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out
}
