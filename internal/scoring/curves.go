package scoring

import (
	"math"
	"sort"

	"github.com/mind-engage/mindengage-norms/internal/norms"
)

// Anchor is one published (percentile, raw score) pair of a MEMORE curve.
// Several percentiles may share a raw score.
type Anchor struct {
	Percentile int
	Raw        int
}

// Curve is a monotone raw-to-percentile mapping used when a MEMORE table
// has no row for the raw score.
type Curve struct {
	Key    string
	points []Anchor // one per distinct raw, ascending raw, non-decreasing percentile
}

// NewCurve keeps the highest percentile per raw score and forces the
// percentiles to be non-decreasing in raw.
func NewCurve(key string, anchors []Anchor) Curve {
	byRaw := map[int]int{}
	for _, a := range anchors {
		if p, ok := byRaw[a.Raw]; !ok || a.Percentile > p {
			byRaw[a.Raw] = a.Percentile
		}
	}
	pts := make([]Anchor, 0, len(byRaw))
	for raw, p := range byRaw {
		pts = append(pts, Anchor{Percentile: p, Raw: raw})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Raw < pts[j].Raw })
	for i := 1; i < len(pts); i++ {
		if pts[i].Percentile < pts[i-1].Percentile {
			pts[i].Percentile = pts[i-1].Percentile
		}
	}
	return Curve{Key: key, points: pts}
}

// Percentile maps raw onto the curve. Outside the anchors the nearest end
// percentile applies; between anchors the linear estimate is rounded to a
// multiple of 5 and clamped to the bracketing percentiles.
func (c Curve) Percentile(raw float64) int {
	pts := c.points
	if len(pts) == 0 {
		return 0
	}
	if raw <= float64(pts[0].Raw) {
		return pts[0].Percentile
	}
	last := pts[len(pts)-1]
	if raw >= float64(last.Raw) {
		return last.Percentile
	}
	i := sort.Search(len(pts), func(i int) bool { return float64(pts[i].Raw) > raw }) - 1
	lo, hi := pts[i], pts[i+1]
	if raw == float64(lo.Raw) {
		return lo.Percentile
	}
	x0, x1 := float64(lo.Raw), float64(hi.Raw)
	p0, p1 := float64(lo.Percentile), float64(hi.Percentile)
	v := p0 + (raw-x0)*(p1-p0)/(x1-x0)
	v = math.Round(v/5) * 5
	return int(math.Min(math.Max(v, p0), p1))
}

// Curve keys.
const (
	CurveTransit     = "transit"
	CurveGeneral     = "general"
	CurveFundamental = "education_fundamental"
	CurveMedium      = "education_medium"
	CurveSuperior    = "education_superior"
	CurveAge16to25   = "age_16_25"
	CurveAge26to35   = "age_26_35"
	CurveAge36to45   = "age_36_45"
	CurveAge46to55   = "age_46_55"
	CurveAge56to65   = "age_56_65"
	CurveAge66Plus   = "age_66_plus"
)

func anchorList(pairs ...int) []Anchor {
	out := make([]Anchor, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Anchor{Percentile: pairs[i], Raw: pairs[i+1]})
	}
	return out
}

// Published percentile tables, listed as percentile, raw pairs.
var defaultAnchors = map[string][]Anchor{
	CurveGeneral: anchorList(1, -8, 2, -4, 5, 0, 10, 2, 15, 4, 20, 6, 25, 8, 30, 8, 35, 10, 40, 10, 45, 12, 50, 12,
		55, 13, 60, 14, 65, 15, 70, 16, 75, 17, 80, 18, 85, 20, 90, 22, 95, 24, 97, 28, 99, 32),
	CurveTransit: anchorList(1, -4, 5, 4, 10, 6, 15, 8, 20, 10, 25, 12, 30, 12, 40, 14, 50, 16, 60, 18,
		70, 19, 75, 20, 80, 21, 85, 22, 90, 24, 95, 26, 99, 32),
	CurveFundamental: anchorList(1, -12, 5, -4, 10, -2, 15, 0, 20, 2, 25, 4, 30, 4, 40, 6, 50, 8, 60, 10,
		70, 12, 75, 13, 80, 14, 85, 16, 90, 18, 95, 20, 99, 28),
	CurveMedium: anchorList(1, -8, 5, 0, 10, 2, 15, 4, 20, 6, 25, 8, 30, 8, 40, 10, 50, 12, 60, 14,
		70, 16, 75, 17, 80, 18, 85, 20, 90, 22, 95, 24, 99, 30),
	CurveSuperior: anchorList(1, -4, 5, 4, 10, 6, 15, 8, 20, 10, 25, 11, 30, 12, 40, 14, 50, 16, 60, 18,
		70, 20, 75, 21, 80, 22, 85, 24, 90, 26, 95, 28, 99, 34),
	CurveAge16to25: anchorList(1, -4, 5, 4, 10, 6, 20, 9, 25, 10, 30, 11, 40, 13, 50, 15, 60, 17,
		70, 19, 75, 20, 80, 21, 85, 22, 90, 24, 95, 27, 99, 32),
	CurveAge26to35: anchorList(1, -6, 5, 2, 10, 5, 20, 8, 25, 9, 30, 10, 40, 12, 50, 14, 60, 16,
		70, 18, 75, 19, 80, 20, 85, 21, 90, 23, 95, 26, 99, 31),
	CurveAge36to45: anchorList(1, -8, 5, 0, 10, 3, 20, 6, 25, 7, 30, 8, 40, 10, 50, 12, 60, 14,
		70, 16, 75, 17, 80, 18, 85, 20, 90, 22, 95, 24, 99, 30),
	CurveAge46to55: anchorList(1, -10, 5, -2, 10, 1, 20, 4, 25, 5, 30, 6, 40, 8, 50, 10, 60, 12,
		70, 14, 75, 15, 80, 16, 85, 18, 90, 20, 95, 22, 99, 28),
	CurveAge56to65: anchorList(1, -12, 5, -4, 10, -1, 20, 2, 25, 3, 30, 4, 40, 6, 50, 8, 60, 10,
		70, 12, 75, 13, 80, 14, 85, 16, 90, 18, 95, 20, 99, 26),
	CurveAge66Plus: anchorList(1, -14, 5, -6, 10, -3, 20, 0, 25, 1, 30, 2, 40, 4, 50, 6, 60, 8,
		70, 10, 75, 11, 80, 12, 85, 14, 90, 16, 95, 18, 99, 24),
}

// DefaultCurves builds the published curves. The map is fresh per call.
func DefaultCurves() map[string]Curve {
	out := make(map[string]Curve, len(defaultAnchors))
	for k, anchors := range defaultAnchors {
		out[k] = NewCurve(k, anchors)
	}
	return out
}

type ageBand struct {
	key      string
	min, max int
}

var ageBands = []ageBand{
	{CurveAge16to25, 0, 25},
	{CurveAge26to35, 26, 35},
	{CurveAge36to45, 36, 45},
	{CurveAge46to55, 46, 55},
	{CurveAge56to65, 56, 65},
	{CurveAge66Plus, 66, math.MaxInt32},
}

var (
	educationWords = []string{"escolaridad", "educacion", "education", "nivel educativo", "instruccion"}
	ageWords       = []string{"edad", "age", "anos", "years"}
)

// CurveKeyFor picks the fallback curve for a table name: transit first,
// then general population, education tier, age band, and general last.
func CurveKeyFor(tableName string) string {
	n := norms.Normalize(tableName)
	switch {
	case norms.IsTransit(n):
		return CurveTransit
	case norms.IsGeneralPopulation(n):
		return CurveGeneral
	}
	if norms.ContainsAnyKeyword(n, educationWords) {
		if e, ok := norms.EducationOf(n); ok {
			return "education_" + string(e)
		}
		return CurveMedium
	}
	if r, ok := norms.AgeRangeOf(n); ok {
		mid := (r.Min + r.Max) / 2
		if r.Max >= 120 {
			mid = r.Min
		}
		for _, b := range ageBands {
			if mid >= b.min && mid <= b.max {
				return b.key
			}
		}
	}
	if norms.ContainsAnyKeyword(n, ageWords) {
		return CurveAge16to25
	}
	return CurveGeneral
}
