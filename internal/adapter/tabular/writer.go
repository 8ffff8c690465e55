package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetView    = "View"
	SheetRanking = "Ranking"
	SheetPivot   = "Pivot"
)

// WriteCSV writes the view as comma-separated text with the source's column
// names. Output depends only on its inputs, so identical views produce
// identical bytes.
func WriteCSV(w io.Writer, cols domain.ColumnNames, view []domain.CaseRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headerRow(cols)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range view {
		if err := cw.Write(recordRow(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func headerRow(cols domain.ColumnNames) []string {
	return []string{cols.District, cols.Month, cols.Year, cols.Cases}
}

func recordRow(r domain.CaseRecord) []string {
	return []string{
		r.District,
		r.Period.Month.String()[:3],
		strconv.Itoa(r.Period.Year),
		strconv.FormatInt(r.Cases, 10),
	}
}

// WriteXLSX writes a workbook with the view rows, the district ranking and
// the pivot matrix on separate sheets.
func WriteXLSX(w io.Writer, cols domain.ColumnNames, view []domain.CaseRecord, ranking []domain.DistrictTotal, pivot domain.PivotMatrix) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetView); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeViewSheet(f, cols, view); err != nil {
		return err
	}
	if err := writeRankingSheet(f, ranking); err != nil {
		return err
	}
	if err := writePivotSheet(f, pivot); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeViewSheet(f *excelize.File, cols domain.ColumnNames, view []domain.CaseRecord) error {
	header := headerRow(cols)
	if err := setRow(f, SheetView, 1, toCells(header)); err != nil {
		return err
	}
	for i, r := range view {
		row := []any{r.District, r.Period.Month.String()[:3], r.Period.Year, r.Cases}
		if err := setRow(f, SheetView, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRankingSheet(f *excelize.File, ranking []domain.DistrictTotal) error {
	if _, err := f.NewSheet(SheetRanking); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetRanking, err)
	}
	if err := setRow(f, SheetRanking, 1, []any{"Rank", "District", "Cases"}); err != nil {
		return err
	}
	for i, t := range ranking {
		if err := setRow(f, SheetRanking, i+2, []any{i + 1, t.District, t.Cases}); err != nil {
			return err
		}
	}
	return nil
}

func writePivotSheet(f *excelize.File, pivot domain.PivotMatrix) error {
	if _, err := f.NewSheet(SheetPivot); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetPivot, err)
	}
	header := append([]string{"District"}, pivot.PeriodLabels()...)
	if err := setRow(f, SheetPivot, 1, toCells(header)); err != nil {
		return err
	}
	for i, d := range pivot.Districts {
		row := make([]any, 0, len(pivot.Periods)+1)
		row = append(row, d)
		for _, v := range pivot.Cells[i] {
			row = append(row, v)
		}
		if err := setRow(f, SheetPivot, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
