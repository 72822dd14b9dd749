package evaluation

import (
	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/scoring"
)

var (
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrExamineeNotFound   = errors.New("examinee not found")
)

// ValidationError rejects a request before anything is saved. Result is set
// when scoring itself flagged the input.
type ValidationError struct {
	Reason string
	Result *scoring.ScoreResult
}

func (e *ValidationError) Error() string { return "invalid request: " + e.Reason }

// PersistenceError means the result was computed but not saved.
type PersistenceError struct {
	Response Response
	Err      error
}

func (e *PersistenceError) Error() string { return "result not saved: " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }
