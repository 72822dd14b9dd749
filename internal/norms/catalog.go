package norms

import "sort"

// TestType identifies a scored psychometric instrument.
type TestType string

const (
	ConcentratedAttention  TestType = "concentrated_attention"
	MatrixReasoning        TestType = "matrix_reasoning"
	ThreeModalityAttention TestType = "three_modality_attention"
	MultiRouteAttention    TestType = "multi_route_attention"
	GeneralIntelligence    TestType = "general_intelligence"
	DrivingMemory          TestType = "driving_memory"
	ReasoningR1            TestType = "reasoning_r1"
	Memore                 TestType = "memore"
)

// RowShape lists the categorical keys a test's rows are filtered by, on top
// of the raw-score range.
type RowShape struct {
	Education      bool `json:"education,omitempty"`
	Modality       bool `json:"modality,omitempty"`
	LicenseContext bool `json:"license_context,omitempty"`
	Subtype        bool `json:"subtype,omitempty"`
}

type CatalogEntry struct {
	Type  TestType `json:"type"`
	Name  string   `json:"name"`
	Shape RowShape `json:"row_shape"`
}

var catalog = map[TestType]CatalogEntry{
	ConcentratedAttention:  {Type: ConcentratedAttention, Name: "Concentrated attention", Shape: RowShape{Education: true}},
	MatrixReasoning:        {Type: MatrixReasoning, Name: "Matrix reasoning"},
	ThreeModalityAttention: {Type: ThreeModalityAttention, Name: "Sustained, alternating and divided attention", Shape: RowShape{Modality: true}},
	MultiRouteAttention:    {Type: MultiRouteAttention, Name: "Multi-route attention", Shape: RowShape{Modality: true}},
	GeneralIntelligence:    {Type: GeneralIntelligence, Name: "General intelligence", Shape: RowShape{Subtype: true}},
	DrivingMemory:          {Type: DrivingMemory, Name: "Visual memory for drivers", Shape: RowShape{LicenseContext: true}},
	ReasoningR1:            {Type: ReasoningR1, Name: "Reasoning (R-1)", Shape: RowShape{Education: true}},
	Memore:                 {Type: Memore, Name: "MEMORE recognition memory"},
}

// Lookup returns the catalog entry for a test type.
func Lookup(t TestType) (CatalogEntry, bool) {
	e, ok := catalog[t]
	return e, ok
}

// ParseTestType validates a test type identifier.
func ParseTestType(s string) (TestType, bool) {
	t := TestType(s)
	_, ok := catalog[t]
	return t, ok
}

// Catalog lists every known test type, sorted by identifier.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
