package evaluation

import (
	"encoding/json"

	"github.com/mind-engage/mindengage-norms/internal/inventory"
	"github.com/mind-engage/mindengage-norms/internal/norms"
	"github.com/mind-engage/mindengage-norms/internal/scoring"
	"github.com/mind-engage/mindengage-norms/internal/selector"
)

// Mode decides where a computed result goes.
type Mode string

const (
	ModeLinked    Mode = "linked"    // attached to an examinee's evaluation
	ModeAnonymous Mode = "anonymous" // attached to a fresh placeholder evaluation
	ModeUnlinked  Mode = "unlinked"  // written to the calculation log only
)

// ParseMode defaults to unlinked.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "":
		return ModeUnlinked, true
	case ModeLinked, ModeAnonymous, ModeUnlinked:
		return Mode(s), true
	}
	return "", false
}

const CategoryAnonymous = "anonymous"

// Evaluation groups one examinee's results under one report number.
type Evaluation struct {
	ID              int64        `json:"id"`
	ExamineeID      *int64       `json:"examinee_id"`
	OwnerID         int64        `json:"owner_id"`
	ReportNumber    string       `json:"report_number"`
	Category        string       `json:"category,omitempty"`
	ApplicationDate string       `json:"application_date"`
	CreatedAt       int64        `json:"created_at"`
	Results         []TestResult `json:"results,omitempty"`
}

// TestResult is the single stored result of one test type in an evaluation.
type TestResult struct {
	ID             int64           `json:"id"`
	EvaluationID   int64           `json:"evaluation_id"`
	TestType       norms.TestType  `json:"test_type"`
	RawInput       json.RawMessage `json:"raw_input"`
	RawScore       float64         `json:"raw_score"`
	Percentile     *int            `json:"percentile"`
	Classification string          `json:"classification"`
	Details        json.RawMessage `json:"details"` // full score result
	TableUsedID    *int64          `json:"table_used_id,omitempty"`
	CreatedAt      int64           `json:"created_at"`
}

// Identity is the authenticated caller.
type Identity struct {
	OwnerID int64
	Role    string
}

// EvalContext carries the caller's evaluation hints.
type EvalContext struct {
	ExamineeID      *int64 `json:"examinee_id,omitempty" validate:"omitempty,gt=0"`
	ReportNumber    string `json:"report_number,omitempty" validate:"max=64"`
	ApplicationDate string `json:"application_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Category        string `json:"category,omitempty" validate:"max=64"`
}

// Request is one scoring call.
type Request struct {
	TestType    norms.TestType
	TableID     *int64 // explicit table; skips selection
	Profile     selector.Profile
	RawInput    []byte
	Mode        Mode
	Evaluation  EvalContext
	DeductStock *bool // nil means deduct
	Owner       Identity
	Origin      string // caller network address, for the calculation log
}

func (r Request) deductStock() bool { return r.DeductStock == nil || *r.DeductStock }

// Response is what the caller gets back, saved or not.
type Response struct {
	ScoreResult  scoring.ScoreResult  `json:"score_result"`
	TableUsed    string               `json:"table_used"`
	TableID      int64                `json:"table_id"`
	Suggestions  []selector.Candidate `json:"selection_suggestions"`
	Warnings     []string             `json:"selection_warnings"`
	Mode         Mode                 `json:"mode"`
	Saved        bool                 `json:"saved"`
	EvaluationID *int64               `json:"evaluation_id,omitempty"`
	ReportNumber string               `json:"report_number,omitempty"`
	ResultID     *int64               `json:"result_id,omitempty"`
	Stock        *inventory.Outcome   `json:"stock,omitempty"`
}
