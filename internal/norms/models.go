package norms

import "strings"

// NormativeTable is a versioned reference table for one test type. Rows are
// written by seeding tooling; this module only reads them.
type NormativeTable struct {
	ID        int64    `json:"id"`
	TestType  TestType `json:"test_type"`
	Name      string   `json:"name"`
	Criterion string   `json:"criterion,omitempty"` // e.g. region, age band, education tier
	Region    string   `json:"region,omitempty"`
	Active    bool     `json:"active"`
}

// Descriptor is the free text the keyword classifiers read.
func (t NormativeTable) Descriptor() string {
	return strings.TrimSpace(t.Name + " " + t.Criterion)
}

type NormativeRow struct {
	ID             int64    `json:"id"`
	TableID        int64    `json:"table_id"`
	Min            *float64 `json:"min,omitempty"` // nil: unbounded below
	Max            *float64 `json:"max,omitempty"` // nil: unbounded above
	Education      string   `json:"education,omitempty"`
	Modality       string   `json:"modality,omitempty"`
	LicenseContext string   `json:"license_context,omitempty"`
	Subtype        string   `json:"subtype,omitempty"`
	Percentile     *int     `json:"percentile,omitempty"`
	Classification string   `json:"classification"`
	Converted      *float64 `json:"converted,omitempty"` // e.g. IQ on conversion tables
}

// RowFilter selects rows whose closed range contains Score and whose
// categorical keys equal the non-empty keys given. Education compares by
// tier, so "Educación Media" and "medium" are the same key; rows without a
// tier apply to every tier.
type RowFilter struct {
	Score          *float64
	Education      string
	Modality       string
	LicenseContext string
	Subtype        string
}

// ScoreFilter is shorthand for a range-only filter.
func ScoreFilter(v float64) RowFilter { return RowFilter{Score: &v} }

// Match reports whether r satisfies f.
func (f RowFilter) Match(r NormativeRow) bool {
	if f.Score != nil {
		if r.Min != nil && *f.Score < *r.Min {
			return false
		}
		if r.Max != nil && *f.Score > *r.Max {
			return false
		}
	}
	return educationEq(f.Education, r.Education) &&
		keyEq(f.Modality, r.Modality) &&
		keyEq(f.LicenseContext, r.LicenseContext) &&
		keyEq(f.Subtype, orDefault(r.Subtype, SubtypeGeneral))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func educationEq(want, have string) bool {
	if want == "" || strings.TrimSpace(have) == "" {
		return true
	}
	return EducationKey(want) == EducationKey(have)
}

func keyEq(want, have string) bool {
	if want == "" {
		return true
	}
	return Normalize(want) == Normalize(have)
}

// BestRow picks the row with the highest percentile. Rows without a
// percentile lose to any row with one; equal percentiles keep the first.
func BestRow(rows []NormativeRow) (NormativeRow, bool) {
	if len(rows) == 0 {
		return NormativeRow{}, false
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if r.Percentile == nil {
			continue
		}
		if best.Percentile == nil || *r.Percentile > *best.Percentile {
			best = r
		}
	}
	return best, true
}
