package scoring

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/norms"
)

func round2(v float64) float64 { return math.Round(v*100) / 100 }

type matrixReasoning struct {
	repo  norms.Repository
	items int
}

func (s matrixReasoning) Score(ctx context.Context, tableID int64, in Input) (ScoreResult, error) {
	correct := float64(in.Count("correct"))
	res := ScoreResult{Raw: correct}
	if s.items > 0 {
		pct := round2(correct / float64(s.items) * 100)
		res.Percentage = &pct
	}
	row, ok, err := norms.LookupBest(ctx, s.repo, tableID, norms.ScoreFilter(correct))
	if err != nil {
		return ScoreResult{}, err
	}
	res.fromRow(row, ok)
	return res, nil
}

type reasoningR1 struct{ repo norms.Repository }

func (s reasoningR1) Score(ctx context.Context, tableID int64, in Input) (ScoreResult, error) {
	correct := float64(in.Count("correct"))
	res := ScoreResult{Raw: correct}
	f := norms.ScoreFilter(correct)
	f.Education = educationKey(in.String("education"))
	row, ok, err := norms.LookupBest(ctx, s.repo, tableID, f)
	if err != nil {
		return ScoreResult{}, err
	}
	res.fromRow(row, ok)
	return res, nil
}

// generalIntelligence scopes rows by the sub-type named in the chosen
// table and, independently, converts the raw score to an IQ through the
// conversion table when one exists.
type generalIntelligence struct {
	repo       norms.Repository
	iqPatterns []string
}

func (s generalIntelligence) Score(ctx context.Context, tableID int64, in Input) (ScoreResult, error) {
	correct := float64(in.Count("correct"))
	res := ScoreResult{Raw: correct}

	name, err := s.repo.GetTableName(ctx, tableID)
	if err != nil && !errors.Is(err, norms.ErrTableNotFound) {
		return ScoreResult{}, err
	}
	res.Subtype = norms.SubtypeOf(name)

	f := norms.ScoreFilter(correct)
	f.Subtype = res.Subtype
	row, ok, err := norms.LookupBest(ctx, s.repo, tableID, f)
	if err != nil {
		return ScoreResult{}, err
	}
	res.fromRow(row, ok)

	iq, err := s.iq(ctx, correct)
	if err != nil {
		return ScoreResult{}, err
	}
	res.IQ = iq
	return res, nil
}

func (s generalIntelligence) iq(ctx context.Context, raw float64) (*float64, error) {
	if len(s.iqPatterns) == 0 {
		return nil, nil
	}
	conv, err := s.repo.FindTableByName(ctx, s.iqPatterns...)
	if errors.Is(err, norms.ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row, ok, err := norms.LookupBest(ctx, s.repo, conv.ID, norms.ScoreFilter(raw))
	if err != nil || !ok {
		return nil, err
	}
	return row.Converted, nil
}
