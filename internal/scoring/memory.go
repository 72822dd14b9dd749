package scoring

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/norms"
)

// drivingMemory scores the share of correct answers, 0-100, against rows
// keyed by license context.
type drivingMemory struct{ repo norms.Repository }

func (s drivingMemory) Score(ctx context.Context, tableID int64, in Input) (ScoreResult, error) {
	c, i, o := in.Count("correct"), in.Count("incorrect"), in.Count("omitted")
	var raw float64
	if total := c + i + o; total > 0 {
		raw = round2(float64(c) / float64(total) * 100)
	}
	res := ScoreResult{Raw: raw}
	f := norms.ScoreFilter(raw)
	f.LicenseContext = in.String("license_context")
	row, ok, err := norms.LookupBest(ctx, s.repo, tableID, f)
	if err != nil {
		return ScoreResult{}, err
	}
	res.fromRow(row, ok)
	return res, nil
}

// memore scores (true positives + true negatives) - (false negatives +
// false positives). Without a matching row the percentile is read off the
// curve the table name selects.
type memore struct {
	repo   norms.Repository
	curves map[string]Curve
}

func (s memore) Score(ctx context.Context, tableID int64, in Input) (ScoreResult, error) {
	raw := float64(in.Count("vp") + in.Count("vn") - in.Count("fn") - in.Count("fp"))
	res := ScoreResult{Raw: raw}

	row, ok, err := norms.LookupBest(ctx, s.repo, tableID, norms.ScoreFilter(raw))
	if err != nil {
		return ScoreResult{}, err
	}
	if ok {
		res.fromRow(row, ok)
		return res, nil
	}

	name, err := s.repo.GetTableName(ctx, tableID)
	if err != nil && !errors.Is(err, norms.ErrTableNotFound) {
		return ScoreResult{}, err
	}
	key := CurveKeyFor(name)
	curve, found := s.curves[key]
	if !found {
		key = CurveGeneral
		curve = s.curves[key]
	}
	p := curve.Percentile(raw)
	res.Percentile = &p
	res.Classification = MemoreLadder.Classify(p)
	res.Source = SourceInterpolated
	res.Curve = key
	return res, nil
}
