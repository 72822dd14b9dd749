package selector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mind-engage/mindengage-norms/internal/norms"
)

// Rule weights. Rules are additive and evaluated in this order.
const (
	WeightPrimaryRegion   = 1000
	WeightTransitExact    = 900
	WeightTransitPro      = 850
	WeightSecondaryRegion = 800
	WeightAge             = 300
	WeightEducation       = 200
	WeightGeneral         = 100

	maxCandidates = 5
)

type Config struct {
	PrimaryRegion   string
	SecondaryRegion string
	TransitMinAge   int // legal minimum age for transit-context evaluations
}

type Candidate struct {
	TableID int64    `json:"table_id"`
	Name    string   `json:"name"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

type Result struct {
	TableID    int64       `json:"table_id"`
	TableName  string      `json:"table_name"`
	Score      int         `json:"score"`
	Reasons    []string    `json:"reasons,omitempty"`
	Candidates []Candidate `json:"candidates"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// SelectionError means no active table exists for the test type.
type SelectionError struct {
	TestType    norms.TestType
	Suggestions []Candidate
	Warnings    []string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("no suitable normative table for %s", e.TestType)
}

type Selector struct {
	repo norms.Repository
	cfg  Config
	now  func() time.Time
}

func New(repo norms.Repository, cfg Config) *Selector {
	if cfg.TransitMinAge == 0 {
		cfg.TransitMinAge = 18
	}
	return &Selector{repo: repo, cfg: cfg, now: time.Now}
}

// WithClock overrides the clock used to derive age from a birth date.
func (s *Selector) WithClock(now func() time.Time) *Selector {
	s.now = now
	return s
}

// rule scores one table against the resolved profile; reason is empty when
// the rule does not apply.
type rule func(t norms.NormativeTable, f facts) (points int, reason string)

func (s *Selector) rules() []rule {
	return []rule{
		s.regionRule,
		transitRule,
		ageRule,
		educationRule,
		generalRule,
	}
}

// Select ranks every active table of testType for the profile. The top
// table is authoritative; ties keep repository order.
func (s *Selector) Select(ctx context.Context, testType norms.TestType, p Profile) (Result, error) {
	return s.SelectOn(ctx, testType, p, s.now())
}

// SelectOn is Select with age derived from the birth date as of on.
func (s *Selector) SelectOn(ctx context.Context, testType norms.TestType, p Profile, on time.Time) (Result, error) {
	f := resolve(p, on, s.cfg.PrimaryRegion)
	warnings := s.warnings(p, f)

	tables, err := s.repo.ListActiveTables(ctx, testType)
	if err != nil {
		return Result{}, err
	}
	if len(tables) == 0 {
		return Result{}, &SelectionError{TestType: testType, Warnings: warnings}
	}

	rules := s.rules()
	ranked := make([]Candidate, 0, len(tables))
	for _, t := range tables {
		c := Candidate{TableID: t.ID, Name: t.Name}
		for _, r := range rules {
			pts, why := r(t, f)
			c.Score += pts
			if why != "" {
				c.Reasons = append(c.Reasons, why)
			}
		}
		ranked = append(ranked, c)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	top := ranked[0]
	if len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}
	return Result{
		TableID:    top.TableID,
		TableName:  top.Name,
		Score:      top.Score,
		Reasons:    top.Reasons,
		Candidates: ranked,
		Warnings:   warnings,
	}, nil
}

func (s *Selector) regionRule(t norms.NormativeTable, f facts) (int, string) {
	if regionMatches(t, f.region) {
		return WeightPrimaryRegion, "primary region: " + f.region
	}
	sec := s.cfg.SecondaryRegion
	if sec != "" && norms.Normalize(sec) != norms.Normalize(f.region) && regionMatches(t, sec) {
		return WeightSecondaryRegion, "secondary region: " + sec
	}
	return 0, ""
}

func regionMatches(t norms.NormativeTable, region string) bool {
	if region == "" {
		return false
	}
	if t.Region != "" {
		return norms.Normalize(t.Region) == norms.Normalize(region)
	}
	return norms.MentionsRegion(t.Descriptor(), region)
}

// transitRule scores an exact sub-context match; a professional-driver
// table scores on its own, whatever sub-context the profile carries.
func transitRule(t norms.NormativeTable, f facts) (int, string) {
	tags := norms.TransitTags(t.Descriptor())
	if f.inTransit {
		for _, tag := range tags {
			if tag == f.transit {
				return WeightTransitExact, "transit context: " + string(tag)
			}
		}
	}
	for _, tag := range tags {
		if tag == norms.TransitProfessional {
			return WeightTransitPro, "professional driver table"
		}
	}
	return 0, ""
}

func ageRule(t norms.NormativeTable, f facts) (int, string) {
	if !f.hasAge {
		return 0, ""
	}
	if r, ok := norms.AgeRangeOf(t.Descriptor()); ok && r.Contains(f.age) {
		return WeightAge, fmt.Sprintf("age %d within %d-%d", f.age, r.Min, r.Max)
	}
	return 0, ""
}

func educationRule(t norms.NormativeTable, f facts) (int, string) {
	if !f.hasEdu {
		return 0, ""
	}
	if e, ok := norms.EducationOf(t.Descriptor()); ok && e == f.education {
		return WeightEducation, "education: " + string(e)
	}
	return 0, ""
}

func generalRule(t norms.NormativeTable, _ facts) (int, string) {
	if norms.IsGeneralPopulation(t.Descriptor()) || norms.Normalize(t.Criterion) == "general" {
		return WeightGeneral, "general population"
	}
	return 0, ""
}

func (s *Selector) warnings(p Profile, f facts) []string {
	var out []string
	if !f.hasAge {
		if p.BirthDate != "" {
			out = append(out, "birth date "+p.BirthDate+" is not a valid YYYY-MM-DD date")
		}
		return out
	}
	if f.age < 5 || f.age > 100 {
		out = append(out, fmt.Sprintf("age %d is outside the plausible range", f.age))
	}
	if f.inTransit && f.age < s.cfg.TransitMinAge {
		out = append(out, fmt.Sprintf("age %d is below the legal minimum (%d) for transit evaluations", f.age, s.cfg.TransitMinAge))
	}
	return out
}
