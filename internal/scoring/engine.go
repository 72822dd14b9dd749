package scoring

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/norms"
)

// ErrUnknownTestType is returned for a test type with no installed scorer.
var ErrUnknownTestType = errors.New("unknown test type")

// Scorer computes one test's result against a chosen table. Errors are
// repository faults only; bad input is coerced or reported in the result.
type Scorer interface {
	Score(ctx context.Context, tableID int64, in Input) (ScoreResult, error)
}

// Engine routes by test type to the installed Scorer.
type Engine struct {
	scorers map[norms.TestType]Scorer
}

// Engine options

type Option func(*config)

type config struct {
	IQPatterns  []string // name patterns of the IQ conversion table
	ProxyRoute  string   // multi-route: route whose rows score the composite
	MatrixItems int      // matrix reasoning item count
}

// Zero values keep the defaults, so options can be fed straight from config.

func WithIQPatterns(p ...string) Option {
	return func(c *config) {
		if len(p) > 0 {
			c.IQPatterns = p
		}
	}
}

func WithProxyRoute(r string) Option {
	return func(c *config) {
		if r != "" {
			c.ProxyRoute = r
		}
	}
}

func WithMatrixItems(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.MatrixItems = n
		}
	}
}

// NewEngine installs the built-in scorers over repo.
func NewEngine(repo norms.Repository, opts ...Option) *Engine {
	cfg := &config{
		IQPatterns:  []string{"conversion ci", "conversion de ci", "iq conversion", "cociente intelectual"},
		ProxyRoute:  RouteC,
		MatrixItems: 25,
	}
	for _, o := range opts {
		o(cfg)
	}
	return &Engine{
		scorers: map[norms.TestType]Scorer{
			norms.ConcentratedAttention:  concentratedAttention{repo: repo},
			norms.MatrixReasoning:        matrixReasoning{repo: repo, items: cfg.MatrixItems},
			norms.ThreeModalityAttention: threeModality{repo: repo},
			norms.MultiRouteAttention:    multiRoute{repo: repo, proxy: cfg.ProxyRoute},
			norms.GeneralIntelligence:    generalIntelligence{repo: repo, iqPatterns: cfg.IQPatterns},
			norms.DrivingMemory:          drivingMemory{repo: repo},
			norms.ReasoningR1:            reasoningR1{repo: repo},
			norms.Memore:                 memore{repo: repo, curves: DefaultCurves()},
		},
	}
}

// Score dispatches to the scorer for testType. The result always carries
// the test type.
func (e *Engine) Score(ctx context.Context, testType norms.TestType, tableID int64, in Input) (ScoreResult, error) {
	s, ok := e.scorers[testType]
	if !ok {
		return ScoreResult{}, errors.Wrap(ErrUnknownTestType, string(testType))
	}
	res, err := s.Score(ctx, tableID, in)
	if err != nil {
		return ScoreResult{}, errors.Wrapf(err, "score %s against table %d", testType, tableID)
	}
	res.TestType = testType
	return res, nil
}
