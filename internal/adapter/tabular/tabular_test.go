package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLoadFile_CSV(t *testing.T) {
	ds, warnings, err := LoadFile("testdata/monthly.csv")
	require.NoError(t, err)

	assert.Equal(t, domain.ColumnNames{District: "District", Month: "Month", Year: "Year", Cases: "Cases"}, ds.Columns)
	require.Len(t, ds.Records, 5)
	assert.Equal(t, "Colombo", ds.Records[0].District)
	assert.Equal(t, int64(1204), ds.Records[3].Cases)
	assert.Equal(t, "Nuwara Eliya", ds.Records[4].District)

	require.Len(t, warnings, 1)
	assert.Equal(t, 6, warnings[0].Row)
	assert.Equal(t, domain.FieldCases, warnings[0].Column)
	assert.Equal(t, "n/a", warnings[0].Value)

	total, err := domain.TotalCases(ds.Records)
	require.NoError(t, err)
	assert.Equal(t, int64(100+50+30+1204+12), total)
}

func TestLoadFile_SemicolonWithoutYearColumn(t *testing.T) {
	ds, warnings, err := LoadFile("testdata/semicolon.csv")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, domain.Period{Year: 2021, Month: time.March}, ds.Records[0].Period)
	assert.Equal(t, "Year", ds.Columns.Year)
}

func TestLoadFile_SchemaError(t *testing.T) {
	_, _, err := LoadFile("testdata/missing_month.csv")

	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{domain.FieldMonth}, schemaErr.Missing)
}

func TestLoadFile_Errors(t *testing.T) {
	_, _, err := LoadFile("testdata/monthly.json")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, _, err = LoadFile("testdata/does-not-exist.csv")
	assert.Error(t, err)
}

func TestReadCSV_DetectsDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"comma", "District,Month,Cases\nGalle,2021-01,3\n"},
		{"semicolon", "District;Month;Cases\nGalle;2021-01;3\n"},
		{"tab", "District\tMonth\tCases\nGalle\t2021-01\t3\n"},
		{"bom and blank first line", "\ufeff\nDistrict,Month,Cases\nGalle,2021-01,3\n"},
		{"quoted comma in semicolon file", "\"District, name\";Month;Cases\nGalle;2021-01;3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, rows, err := ReadCSV(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Len(t, header, 3)
			require.Len(t, rows, 1)
			assert.Equal(t, "Galle", rows[0][0])
		})
	}
}

func TestReadCSV_Empty(t *testing.T) {
	header, rows, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, header)
	assert.Nil(t, rows)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"District", "Month", "Year", "Cases"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"kandy", "Mar", 2021, 42}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	ds, warnings, err := Load(&buf, FormatXLSX)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, domain.CaseRecord{
		District: "Kandy",
		Period:   domain.Period{Year: 2021, Month: time.March},
		Cases:    42,
	}, ds.Records[0])
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{
		"monthly data.csv": FormatCSV,
		"DATA.TSV":         FormatCSV,
		"book.xlsx":        FormatXLSX,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}

func exportView() []domain.CaseRecord {
	jan21 := domain.Period{Year: 2021, Month: time.January}
	return []domain.CaseRecord{
		{District: "Colombo", Period: jan21, Cases: 100},
		{District: "Colombo", Period: jan21, Cases: 50},
		{District: "Galle", Period: jan21, Cases: 30},
	}
}

func TestWriteCSV(t *testing.T) {
	cols := domain.ColumnNames{District: "District", Month: "Month", Year: "Year", Cases: "Cases"}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, cols, exportView()))

	assert.Equal(t, "District,Month,Year,Cases\n"+
		"Colombo,Jan,2021,100\n"+
		"Colombo,Jan,2021,50\n"+
		"Galle,Jan,2021,30\n", buf.String())
}

func TestWriteCSV_ByteIdentical(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, WriteCSV(&first, domain.DefaultColumns, exportView()))
	require.NoError(t, WriteCSV(&second, domain.DefaultColumns, exportView()))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, domain.DefaultColumns, exportView()))

	ds, warnings, err := Load(&buf, FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, exportView(), ds.Records)
}

func TestWriteXLSX(t *testing.T) {
	view := exportView()
	ranking, err := domain.Rank(view, 5)
	require.NoError(t, err)
	pivot := domain.BuildPivot(view)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, domain.DefaultColumns, view, ranking, pivot))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetView, SheetRanking, SheetPivot}, f.GetSheetList())

	rows, err := f.GetRows(SheetView)
	require.NoError(t, err)
	assert.Equal(t, []string{"District", "Month", "Year", "Cases"}, rows[0])
	assert.Equal(t, []string{"Galle", "Jan", "2021", "30"}, rows[3])

	rows, err = f.GetRows(SheetRanking)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Rank", "District", "Cases"},
		{"1", "Colombo", "150"},
		{"2", "Galle", "30"},
	}, rows)

	rows, err = f.GetRows(SheetPivot)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"District", "Jan-21"},
		{"Colombo", "150"},
		{"Galle", "30"},
	}, rows)
}
