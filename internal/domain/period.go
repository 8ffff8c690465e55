package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is one reporting interval: a calendar month of a given year.
type Period struct {
	Year  int
	Month time.Month
}

// fullDateLayouts are tried before the free-form month/year split so that
// day-precision values collapse to their month.
var fullDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Key returns a chronologically ordered integer for the period.
func (p Period) Key() int {
	return p.Year*12 + int(p.Month) - 1
}

// Before reports whether p is chronologically earlier than o.
func (p Period) Before(o Period) bool {
	return p.Key() < o.Key()
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Label renders the period as "Jan-21".
func (p Period) Label() string {
	return fmt.Sprintf("%s-%02d", p.Month.String()[:3], p.Year%100)
}

func (p Period) String() string {
	return p.Label()
}

// MarshalText encodes the period as its label.
func (p Period) MarshalText() ([]byte, error) {
	if p.IsZero() {
		return []byte{}, nil
	}
	return []byte(p.Label()), nil
}

// UnmarshalText accepts any format understood by ParsePeriod.
func (p *Period) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*p = Period{}
		return nil
	}
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePeriod parses a self-contained month+year value such as "2021-01",
// "Jan-21", "Jan 2021", "January 2021", "01/2021" or "2021-01-15".
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Period{}, errors.New("empty period")
	}

	for _, layout := range fullDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Period{Year: t.Year(), Month: t.Month()}, nil
		}
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '/' || r == ' ' || r == '_' || r == ','
	})
	if len(parts) == 2 {
		if m, ok := parseMonth(parts[0]); ok {
			if y, ok := parseYear(parts[1]); ok {
				return Period{Year: y, Month: m}, nil
			}
		}
		// Year-first spellings: "2021-01", "2021 Jan".
		if y, ok := parseYear(parts[0]); ok && len(parts[0]) == 4 {
			if m, ok := parseMonth(parts[1]); ok {
				return Period{Year: y, Month: m}, nil
			}
		}
	}

	return Period{}, fmt.Errorf("unrecognized period %q", s)
}

// resolvePeriod combines a month cell with an optional year cell. A month
// cell that carries its own year wins over the year column.
func resolvePeriod(monthValue, yearValue string, hasYearColumn bool) (Period, string, error) {
	if p, err := ParsePeriod(monthValue); err == nil {
		return p, "", nil
	}

	m, ok := parseMonth(monthValue)
	if !ok {
		return Period{}, "month", fmt.Errorf("unrecognized month %q", strings.TrimSpace(monthValue))
	}
	if !hasYearColumn {
		return Period{}, "year", errors.New("month has no year and the table has no year column")
	}
	y, ok := parseYear(yearValue)
	if !ok {
		return Period{}, "year", fmt.Errorf("unrecognized year %q", strings.TrimSpace(yearValue))
	}
	return Period{Year: y, Month: m}, "", nil
}

// parseMonth accepts month numbers (1-12, zero-padded or not), full names and
// unambiguous prefixes of at least three letters ("Sept", "Jan").
func parseMonth(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n), true
		}
		return 0, false
	}

	if len(s) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		if strings.HasPrefix(strings.ToLower(m.String()), s) {
			return m, true
		}
	}
	return 0, false
}

// twoDigitPivot splits two-digit years the way POSIX %y does: 69-99 are
// 1969-1999, 00-68 are 2000-2068.
const twoDigitPivot = 69

// parseYear accepts four-digit years in 1900-2100 and two-digit years.
// Spreadsheet exports sometimes render the year as "2021.0".
func parseYear(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".0")
	if len(s) != 2 && len(s) != 4 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	if len(s) == 2 {
		if n >= twoDigitPivot {
			return 1900 + n, true
		}
		return 2000 + n, true
	}
	if n < 1900 || n > 2100 {
		return 0, false
	}
	return n, true
}
