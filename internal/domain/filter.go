package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// allToken selects every value of a dimension explicitly.
const allToken = "all"

// EmptyPolicy decides what an empty selection set means.
type EmptyPolicy int

const (
	// EmptyMeansAll treats an empty set as "no restriction".
	EmptyMeansAll EmptyPolicy = iota
	// EmptyMeansNone treats an empty set as "nothing selected".
	EmptyMeansNone
)

// ParseEmptyPolicy reads "all" or "none".
func ParseEmptyPolicy(s string) (EmptyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return EmptyMeansAll, nil
	case "none":
		return EmptyMeansNone, nil
	default:
		return 0, fmt.Errorf("unknown empty selection policy %q (want all or none)", s)
	}
}

func (p EmptyPolicy) String() string {
	if p == EmptyMeansNone {
		return "none"
	}
	return "all"
}

// FilterSelection is the user's current choice of districts and months.
// Months accept any spelling understood by ParsePeriod. The token "All" in
// either set selects every value of that dimension regardless of policy.
type FilterSelection struct {
	Districts []string `json:"districts"`
	Months    []string `json:"months"`
}

// ID returns a deterministic identifier for the selection. Equivalent
// selections (different order, casing or month spelling) share an ID.
func (s FilterSelection) ID() string {
	districts := lo.Map(s.Districts, func(d string, _ int) string { return NormalizeDistrict(d) })
	months := lo.Map(s.Months, func(m string, _ int) string {
		if strings.EqualFold(strings.TrimSpace(m), allToken) {
			return allToken
		}
		if p, err := ParsePeriod(m); err == nil {
			return p.Label()
		}
		return strings.TrimSpace(m)
	})
	districts = lo.Uniq(districts)
	months = lo.Uniq(months)
	sort.Strings(districts)
	sort.Strings(months)

	input := strings.Join(districts, ",") + "|" + strings.Join(months, ",")
	hash := sha256.Sum256([]byte(input))
	return "sel-" + hex.EncodeToString(hash[:8])
}

// FilterEngine applies selections under a single empty-selection policy.
// Every consumer in a process shares one engine so the policy is uniform.
type FilterEngine struct {
	policy EmptyPolicy
}

// NewFilterEngine creates a FilterEngine with the given policy.
func NewFilterEngine(policy EmptyPolicy) FilterEngine {
	return FilterEngine{policy: policy}
}

// Policy returns the engine's empty-selection policy.
func (f FilterEngine) Policy() EmptyPolicy {
	return f.policy
}

// Apply returns the records whose district and period are both selected,
// preserving input order. The input slice is not modified.
func (f FilterEngine) Apply(records []CaseRecord, sel FilterSelection) ([]CaseRecord, error) {
	districts, allDistricts := f.districtSet(sel.Districts)
	periods, allPeriods, err := f.periodSet(sel.Months)
	if err != nil {
		return nil, err
	}

	return lo.Filter(records, func(r CaseRecord, _ int) bool {
		if !allDistricts {
			if _, ok := districts[r.District]; !ok {
				return false
			}
		}
		if !allPeriods {
			if _, ok := periods[r.Period]; !ok {
				return false
			}
		}
		return true
	}), nil
}

func (f FilterEngine) districtSet(values []string) (map[string]struct{}, bool) {
	if len(values) == 0 {
		return map[string]struct{}{}, f.policy == EmptyMeansAll
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), allToken) {
			return nil, true
		}
		if d := NormalizeDistrict(v); d != "" {
			set[d] = struct{}{}
		}
	}
	return set, false
}

func (f FilterEngine) periodSet(values []string) (map[Period]struct{}, bool, error) {
	if len(values) == 0 {
		return map[Period]struct{}{}, f.policy == EmptyMeansAll, nil
	}
	set := make(map[Period]struct{}, len(values))
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), allToken) {
			return nil, true, nil
		}
		p, err := ParsePeriod(v)
		if err != nil {
			return nil, false, &SelectionError{Field: "month", Value: v, Err: err}
		}
		set[p] = struct{}{}
	}
	return set, false, nil
}

// Filter applies sel to records with a one-off engine for policy.
func Filter(records []CaseRecord, sel FilterSelection, policy EmptyPolicy) ([]CaseRecord, error) {
	return NewFilterEngine(policy).Apply(records, sel)
}
