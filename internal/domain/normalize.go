package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeDistrict returns the canonical form of a district label: trimmed,
// inner whitespace collapsed to single spaces, and title-cased.
// NormalizeDistrict(NormalizeDistrict(x)) == NormalizeDistrict(x).
func NormalizeDistrict(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// A Caser carries state, so one is built per call.
	return cases.Title(language.Und).String(s)
}

// normalizeHeader folds a column header into the form used for schema lookup:
// trimmed, lower-case, with "-" and "_" read as spaces.
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(s)
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
