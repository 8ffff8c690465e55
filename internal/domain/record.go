package domain

import (
	"sort"

	"github.com/samber/lo"
)

// CaseRecord is one normalized row of the source table.
type CaseRecord struct {
	District string `json:"district"`
	Period   Period `json:"period"`
	Cases    int64  `json:"cases"`
}

// ColumnNames keeps the trimmed header spelling of the source table so that
// exports mirror the file the data came from.
type ColumnNames struct {
	District string `json:"district"`
	Month    string `json:"month"`
	Year     string `json:"year"`
	Cases    string `json:"cases"`
}

// DefaultColumns is used when a dataset is assembled in code rather than loaded.
var DefaultColumns = ColumnNames{District: "District", Month: "Month", Year: "Year", Cases: "Cases"}

// Dataset is the loaded, normalized source table. It is read-only after load
// and shared by every view derived from it.
type Dataset struct {
	Columns ColumnNames  `json:"columns"`
	Records []CaseRecord `json:"records"`
}

// NewDataset wraps records built in code with the default column names.
func NewDataset(records []CaseRecord) Dataset {
	return Dataset{Columns: DefaultColumns, Records: records}
}

// Len returns the number of records.
func (d Dataset) Len() int {
	return len(d.Records)
}

// Districts returns the distinct districts in alphabetical order.
func (d Dataset) Districts() []string {
	return districtsOf(d.Records)
}

// Periods returns the distinct periods in chronological order.
func (d Dataset) Periods() []Period {
	return periodsOf(d.Records)
}

func districtsOf(view []CaseRecord) []string {
	names := lo.Uniq(lo.Map(view, func(r CaseRecord, _ int) string { return r.District }))
	sort.Strings(names)
	return names
}

func periodsOf(view []CaseRecord) []Period {
	periods := lo.Uniq(lo.Map(view, func(r CaseRecord, _ int) Period { return r.Period }))
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods
}
