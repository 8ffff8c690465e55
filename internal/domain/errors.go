package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyView is returned by every aggregate asked to summarize zero records.
var ErrEmptyView = errors.New("aggregate requested on an empty view")

// SchemaError reports required columns absent from the source header.
// It is the only load failure; no partial dataset accompanies it.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "schema: missing required column(s): " + strings.Join(e.Missing, ", ")
}

// SelectionError reports a filter selection value that cannot be interpreted.
type SelectionError struct {
	Field string
	Value string
	Err   error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("invalid %s selection %q: %v", e.Field, e.Value, e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

// CoercionWarning records a source row dropped because one of its cells could
// not be coerced. Row is the 1-based line in the source table, header included.
type CoercionWarning struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (w CoercionWarning) String() string {
	return fmt.Sprintf("row %d: %s %q: %s", w.Row, w.Column, w.Value, w.Reason)
}

// UnmatchedDistrictWarning records a district that has no reference
// coordinate. Records counts how many view rows were left out because of it.
type UnmatchedDistrictWarning struct {
	District string `json:"district"`
	Records  int    `json:"records"`
}

func (w UnmatchedDistrictWarning) String() string {
	return fmt.Sprintf("district %q has no coordinates (%d record(s) excluded)", w.District, w.Records)
}
