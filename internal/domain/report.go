package domain

import (
	"errors"
	"fmt"
	"time"
)

// Notice levels.
const (
	NoticeInfo = "info"
	NoticeWarn = "warn"
)

// Notice codes.
const (
	NoticeNoData            = "no_data"
	NoticeSkippedRows       = "skipped_rows"
	NoticeUnmatchedDistrict = "unmatched_district"
)

// Notice is a user-visible message attached to a report in place of an error.
type Notice struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report bundles every view derived from one selection. Summary, Ranking,
// Shares and Trend are nil when the view is empty; a no_data notice explains
// why.
type Report struct {
	ID          string                     `json:"id"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Selection   FilterSelection            `json:"selection"`
	Policy      string                     `json:"empty_selection_policy"`
	Records     int                        `json:"records"`
	Summary     *AggregateView             `json:"summary,omitempty"`
	Ranking     []DistrictTotal            `json:"ranking,omitempty"`
	Shares      []DistrictShare            `json:"shares,omitempty"`
	Trend       []PeriodTotal              `json:"trend,omitempty"`
	Pivot       PivotMatrix                `json:"pivot"`
	GeoPeriod   Period                     `json:"geo_period"`
	Geo         []GeoRecord                `json:"geo"`
	Unmatched   []UnmatchedDistrictWarning `json:"unmatched,omitempty"`
	Notices     []Notice                   `json:"notices,omitempty"`
}

// IsEmpty reports whether the selection matched no records.
func (r Report) IsEmpty() bool {
	return r.Records == 0
}

// BuildReport derives every view of an already filtered view. Empty views
// produce a report with a no_data notice rather than an error.
func BuildReport(view []CaseRecord, sel FilterSelection, policy EmptyPolicy, coords CoordinateTable, topN int) (Report, error) {
	report := Report{
		ID:          sel.ID(),
		GeneratedAt: clock.Now().UTC(),
		Selection:   sel,
		Policy:      policy.String(),
		Records:     len(view),
		Pivot:       BuildPivot(view),
		Geo:         []GeoRecord{},
	}

	summary, err := Summarize(view)
	switch {
	case errors.Is(err, ErrEmptyView):
		report.Notices = append(report.Notices, Notice{
			Level:   NoticeInfo,
			Code:    NoticeNoData,
			Message: "no records match the current selection",
		})
		return report, nil
	case err != nil:
		return Report{}, fmt.Errorf("summarize view: %w", err)
	}
	report.Summary = &summary

	if report.Ranking, err = Rank(view, topN); err != nil {
		return Report{}, fmt.Errorf("rank districts: %w", err)
	}
	if report.Shares, err = DistrictShares(view); err != nil {
		return Report{}, fmt.Errorf("district shares: %w", err)
	}
	if report.Trend, err = MonthlyTrend(view); err != nil {
		return Report{}, fmt.Errorf("monthly trend: %w", err)
	}

	snapshot, period := LatestSnapshot(view)
	report.GeoPeriod = period
	report.Geo, report.Unmatched = GeoJoin(snapshot, coords)
	for _, w := range report.Unmatched {
		report.Notices = append(report.Notices, Notice{
			Level:   NoticeWarn,
			Code:    NoticeUnmatchedDistrict,
			Message: w.String(),
		})
	}
	return report, nil
}
