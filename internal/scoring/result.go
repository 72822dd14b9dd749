package scoring

import "github.com/mind-engage/mindengage-norms/internal/norms"

// Source records how a percentile was obtained.
type Source string

const (
	SourceTable        Source = "table"
	SourceInterpolated Source = "interpolated"
	SourceNone         Source = "none"    // lookup miss: valid result, nil percentile
	SourceInvalid      Source = "invalid" // input rejected before lookup
)

const (
	ClassOutOfRange = "Out of normative range"
	ClassInvalid    = "Invalid values"
)

// ScoreResult is the outcome of scoring one test against one table.
type ScoreResult struct {
	TestType       norms.TestType `json:"test_type"`
	Raw            float64        `json:"raw"`
	Percentile     *int           `json:"percentile"`
	Classification string         `json:"classification"`
	Source         Source         `json:"source"`

	Percentage *float64    `json:"percentage,omitempty"` // matrix reasoning: correct/25
	IQ         *float64    `json:"iq,omitempty"`         // general intelligence
	Subtype    string      `json:"subtype,omitempty"`    // general intelligence
	Curve      string      `json:"curve,omitempty"`      // memore fallback
	Components []Component `json:"components,omitempty"` // per modality / route
}

// Component is one independently scored part of a composite test.
type Component struct {
	Name           string  `json:"name"`
	Raw            float64 `json:"raw"`
	Percentile     *int    `json:"percentile"`
	Classification string  `json:"classification"`
}

// Invalid reports whether the input was rejected before any lookup.
func (r ScoreResult) Invalid() bool { return r.Source == SourceInvalid }

// fromRow fills percentile and classification from a looked-up row, or
// marks the result out of range when no row matched.
func (r *ScoreResult) fromRow(row norms.NormativeRow, ok bool) {
	if !ok {
		r.Percentile = nil
		r.Classification = ClassOutOfRange
		r.Source = SourceNone
		return
	}
	r.Percentile = row.Percentile
	r.Classification = row.Classification
	r.Source = SourceTable
}

func componentFromRow(name string, raw float64, row norms.NormativeRow, ok bool) Component {
	c := Component{Name: name, Raw: raw, Classification: ClassOutOfRange}
	if ok {
		c.Percentile = row.Percentile
		c.Classification = row.Classification
	}
	return c
}
