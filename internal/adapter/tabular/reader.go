// Package tabular reads and writes the case-count table as CSV or XLSX.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Format identifies a table file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for file extensions other than .csv, .tsv,
// .txt and .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadFile reads and parses the table at path.
func LoadFile(path string) (domain.Dataset, []domain.CoercionWarning, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return domain.Dataset{}, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.Dataset{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ds, warnings, err := Load(f, format)
	if err != nil {
		return domain.Dataset{}, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, warnings, nil
}

// Load reads a table in the given format and parses it into a Dataset.
func Load(r io.Reader, format Format) (domain.Dataset, []domain.CoercionWarning, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)
	switch format {
	case FormatCSV:
		header, rows, err = ReadCSV(r)
	case FormatXLSX:
		header, rows, err = ReadXLSX(r, "")
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return domain.Dataset{}, nil, err
	}
	return domain.ParseTable(header, rows)
}

// ReadCSV reads delimited text and returns the header row and the data rows.
// The delimiter is detected from the header line among ',', ';' and tab.
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

// detectDelimiter counts candidate separators outside quotes on the first
// non-empty line. Ties and lines without any candidate fall back to ','.
func detectDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var line string
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			line = sc.Text()
			break
		}
	}

	counts := map[rune]int{}
	inQuotes := false
	for _, c := range line {
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case !inQuotes && (c == ',' || c == ';' || c == '\t'):
			counts[c]++
		}
	}

	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// ReadXLSX reads one worksheet of a workbook. An empty sheet name selects the
// first sheet.
func ReadXLSX(r io.Reader, sheet string) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}
