package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_ExampleScenario(t *testing.T) {
	engine := NewFilterEngine(EmptyMeansAll)

	view, err := engine.Apply(scenarioRecords(), FilterSelection{
		Districts: []string{"Galle"},
		Months:    []string{"Jan-2021"},
	})
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, int64(30), view[0].Cases)
}

func TestFilter_PreservesOrder(t *testing.T) {
	records := multiPeriodRecords()
	view, err := Filter(records, FilterSelection{
		Districts: []string{"kandy", "COLOMBO"},
		Months:    []string{"All"},
	}, EmptyMeansNone)
	require.NoError(t, err)

	assert.Equal(t, []CaseRecord{records[0], records[2], records[3], records[5]}, view)
}

func TestFilter_EmptyPolicy(t *testing.T) {
	records := multiPeriodRecords()

	tests := []struct {
		name   string
		policy EmptyPolicy
		sel    FilterSelection
		want   int
	}{
		{"all: empty selection keeps everything", EmptyMeansAll, FilterSelection{}, 6},
		{"all: empty districts with month", EmptyMeansAll, FilterSelection{Months: []string{"2021-01"}}, 2},
		{"none: empty selection keeps nothing", EmptyMeansNone, FilterSelection{}, 0},
		{"none: empty months", EmptyMeansNone, FilterSelection{Districts: []string{"Galle"}}, 0},
		{"none: explicit all tokens", EmptyMeansNone, FilterSelection{Districts: []string{"ALL"}, Months: []string{"all"}}, 6},
		{"unknown district", EmptyMeansAll, FilterSelection{Districts: []string{"Atlantis"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := NewFilterEngine(tt.policy).Apply(records, tt.sel)
			require.NoError(t, err)
			assert.Len(t, view, tt.want)
		})
	}
}

func TestFilter_MonthSpellings(t *testing.T) {
	records := multiPeriodRecords()
	for _, month := range []string{"Jan-21", "Jan-2021", "2021-01", "January 2021", "01/2021"} {
		t.Run(month, func(t *testing.T) {
			view, err := Filter(records, FilterSelection{Months: []string{month}}, EmptyMeansAll)
			require.NoError(t, err)
			assert.Len(t, view, 2)
		})
	}
}

func TestFilter_InvalidMonth(t *testing.T) {
	_, err := Filter(scenarioRecords(), FilterSelection{Months: []string{"Jan"}}, EmptyMeansAll)

	var selErr *SelectionError
	require.True(t, errors.As(err, &selErr))
	assert.Equal(t, "month", selErr.Field)
	assert.Equal(t, "Jan", selErr.Value)
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	records := multiPeriodRecords()
	before := append([]CaseRecord(nil), records...)

	_, err := Filter(records, FilterSelection{Districts: []string{"Galle"}}, EmptyMeansAll)
	require.NoError(t, err)
	assert.Equal(t, before, records)
}

func TestParseEmptyPolicy(t *testing.T) {
	p, err := ParseEmptyPolicy(" ALL ")
	require.NoError(t, err)
	assert.Equal(t, EmptyMeansAll, p)
	assert.Equal(t, "all", p.String())

	p, err = ParseEmptyPolicy("none")
	require.NoError(t, err)
	assert.Equal(t, EmptyMeansNone, p)
	assert.Equal(t, "none", p.String())

	_, err = ParseEmptyPolicy("some")
	assert.Error(t, err)
}

func TestFilterSelection_ID(t *testing.T) {
	a := FilterSelection{Districts: []string{"Galle", "colombo"}, Months: []string{"Jan-2021", "2021-02"}}
	b := FilterSelection{Districts: []string{"COLOMBO ", "galle"}, Months: []string{"Feb-21", "January 2021"}}
	c := FilterSelection{Districts: []string{"Galle"}}

	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
	assert.Regexp(t, `^sel-[0-9a-f]{16}$`, a.ID())
}
