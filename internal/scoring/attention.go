package scoring

import (
	"context"
	"math"
	"strings"

	"github.com/mind-engage/mindengage-norms/internal/norms"
)

// performance is the attention "PB" score: hits minus errors minus omissions.
func performance(in Input, prefix string) float64 {
	p := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	return float64(in.Count(p("correct")) - in.Count(p("incorrect")) - in.Count(p("omitted")))
}

// DefaultEducation is the tier assumed when neither the input nor the
// profile names one. The MEMORE curves default the same way.
const DefaultEducation = norms.EducationMedium

// educationKey canonicalizes a free-text tier for row filtering.
func educationKey(s string) string {
	if strings.TrimSpace(s) == "" {
		return string(DefaultEducation)
	}
	return norms.EducationKey(s)
}

// concentratedAttention scores one performance figure against rows
// bracketed by education tier. A negative figure is rejected.
type concentratedAttention struct{ repo norms.Repository }

func (s concentratedAttention) Score(ctx context.Context, tableID int64, in Input) (ScoreResult, error) {
	pb := performance(in, "")
	res := ScoreResult{Raw: pb}
	if pb < 0 {
		res.Classification = ClassInvalid
		res.Source = SourceInvalid
		return res, nil
	}
	f := norms.ScoreFilter(pb)
	f.Education = educationKey(in.String("education"))
	row, ok, err := norms.LookupBest(ctx, s.repo, tableID, f)
	if err != nil {
		return ScoreResult{}, err
	}
	res.fromRow(row, ok)
	return res, nil
}

// Attention modalities of the three-modality test.
const (
	ModalitySustained   = "sustained"
	ModalityAlternating = "alternating"
	ModalityDivided     = "divided"
)

var modalities = []string{ModalitySustained, ModalityAlternating, ModalityDivided}

// threeModality scores each modality on its own rows and classifies the
// mean of the resolved percentiles on the attention ladder.
type threeModality struct{ repo norms.Repository }

func (s threeModality) Score(ctx context.Context, tableID int64, in Input) (ScoreResult, error) {
	var res ScoreResult
	sum, n := 0, 0
	for _, m := range modalities {
		pb := performance(in, m)
		res.Raw += pb
		f := norms.ScoreFilter(pb)
		f.Modality = m
		row, ok, err := norms.LookupBest(ctx, s.repo, tableID, f)
		if err != nil {
			return ScoreResult{}, err
		}
		c := componentFromRow(m, pb, row, ok)
		if c.Percentile != nil {
			sum += *c.Percentile
			n++
		}
		res.Components = append(res.Components, c)
	}
	if n == 0 {
		res.Classification = ClassOutOfRange
		res.Source = SourceNone
		return res, nil
	}
	mean := int(math.Round(float64(sum) / float64(n)))
	res.Percentile = &mean
	res.Classification = AttentionLadder.Classify(mean)
	res.Source = SourceTable
	return res, nil
}

// Routes of the multi-route test.
const (
	RouteA = "route_a"
	RouteB = "route_b"
	RouteC = "route_c"
)

var routes = []string{RouteA, RouteB, RouteC}

// multiRoute scores each route, then looks the route total up against the
// proxy route's rows. There are no dedicated composite rows.
type multiRoute struct {
	repo  norms.Repository
	proxy string
}

func (s multiRoute) Score(ctx context.Context, tableID int64, in Input) (ScoreResult, error) {
	var res ScoreResult
	for _, r := range routes {
		pb := performance(in, r)
		res.Raw += pb
		f := norms.ScoreFilter(pb)
		f.Modality = r
		row, ok, err := norms.LookupBest(ctx, s.repo, tableID, f)
		if err != nil {
			return ScoreResult{}, err
		}
		res.Components = append(res.Components, componentFromRow(r, pb, row, ok))
	}
	f := norms.ScoreFilter(res.Raw)
	f.Modality = s.proxy
	row, ok, err := norms.LookupBest(ctx, s.repo, tableID, f)
	if err != nil {
		return ScoreResult{}, err
	}
	res.fromRow(row, ok)
	return res, nil
}
