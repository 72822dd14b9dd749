package evaluation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/calclog"
	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/inventory"
	"github.com/mind-engage/mindengage-norms/internal/logging"
	"github.com/mind-engage/mindengage-norms/internal/norms"
	"github.com/mind-engage/mindengage-norms/internal/scoring"
	"github.com/mind-engage/mindengage-norms/internal/selector"
)

const dateLayout = "2006-01-02"

type Config struct {
	ReportPrefix string // linked report numbers: PREFIX-YEAR-examinee-suffix
	Driver       db.Driver
}

// Orchestrator runs select, score, and save for one request.
type Orchestrator struct {
	db       *sql.DB
	store    Store
	repo     norms.Repository
	selector *selector.Selector
	engine   *scoring.Engine
	deductor *inventory.Deductor
	log      logging.Logger
	cfg      Config
	now      func() time.Time

	auditFailures atomic.Int64
}

func NewOrchestrator(conn *sql.DB, store Store, repo norms.Repository, sel *selector.Selector,
	engine *scoring.Engine, deductor *inventory.Deductor, log logging.Logger, cfg Config) *Orchestrator {
	if cfg.ReportPrefix == "" {
		cfg.ReportPrefix = "EVAL"
	}
	return &Orchestrator{
		db:       conn,
		store:    store,
		repo:     repo,
		selector: sel,
		engine:   engine,
		deductor: deductor,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock overrides the clock used for dates and report numbers.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// AuditFailures counts calculation-log writes that failed.
func (o *Orchestrator) AuditFailures() int64 { return o.auditFailures.Load() }

// Suggest ranks tables for a profile without scoring.
func (o *Orchestrator) Suggest(ctx context.Context, tt norms.TestType, p selector.Profile) (selector.Result, error) {
	if _, ok := norms.Lookup(tt); !ok {
		return selector.Result{}, errors.Wrap(scoring.ErrUnknownTestType, string(tt))
	}
	return o.selector.SelectOn(ctx, tt, p, o.now())
}

// Calculate selects a table (unless one is given), scores the input and
// routes the result according to the request mode. A *PersistenceError
// carries the computed response when the save fails.
func (o *Orchestrator) Calculate(ctx context.Context, req Request) (Response, error) {
	if _, ok := norms.Lookup(req.TestType); !ok {
		return Response{}, errors.Wrap(scoring.ErrUnknownTestType, string(req.TestType))
	}
	if req.Mode == "" {
		req.Mode = ModeUnlinked
	}
	in, err := scoring.ParseInput(req.RawInput)
	if err != nil {
		return Response{}, &ValidationError{Reason: err.Error()}
	}
	in = enrich(req.TestType, in, req.Profile)

	on, err := o.applicationTime(req.Evaluation.ApplicationDate)
	if err != nil {
		return Response{}, err
	}

	resp := Response{Mode: req.Mode}
	if err := o.chooseTable(ctx, req, on, &resp); err != nil {
		return Response{}, err
	}

	res, err := o.engine.Score(ctx, req.TestType, resp.TableID, in)
	if err != nil {
		return Response{}, err
	}
	resp.ScoreResult = res
	if res.Invalid() {
		return resp, &ValidationError{Reason: res.Classification, Result: &res}
	}

	switch req.Mode {
	case ModeUnlinked:
		o.audit(ctx, req, in, resp)
		return resp, nil
	case ModeLinked, ModeAnonymous:
		if err := o.save(ctx, req, in, on, &resp); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return resp, ve
			}
			o.log.Errorf("save %s result for owner %d: %v", req.TestType, req.Owner.OwnerID, err)
			resp.Saved = false
			return resp, &PersistenceError{Response: resp, Err: err}
		}
		return resp, nil
	default:
		return Response{}, &ValidationError{Reason: "unknown mode " + string(req.Mode)}
	}
}

// enrich fills categorical keys the scorer reads from the profile when the
// raw input omits them.
func enrich(tt norms.TestType, in scoring.Input, p selector.Profile) scoring.Input {
	entry, _ := norms.Lookup(tt)
	if entry.Shape.Education {
		in = in.With("education", p.Education)
	}
	if entry.Shape.LicenseContext {
		in = in.With("license_context", p.TransitContext)
	}
	return in
}

func (o *Orchestrator) applicationTime(date string) (time.Time, error) {
	if date == "" {
		return o.now(), nil
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, &ValidationError{Reason: "application_date must be YYYY-MM-DD"}
	}
	return t, nil
}

func (o *Orchestrator) chooseTable(ctx context.Context, req Request, on time.Time, resp *Response) error {
	sel, selErr := o.selector.SelectOn(ctx, req.TestType, req.Profile, on)
	var noTable *selector.SelectionError
	if selErr != nil && !errors.As(selErr, &noTable) {
		return selErr
	}
	resp.Suggestions = sel.Candidates
	resp.Warnings = sel.Warnings
	if noTable != nil {
		resp.Warnings = noTable.Warnings
	}

	if req.TableID == nil {
		if selErr != nil {
			return selErr
		}
		resp.TableID = sel.TableID
		resp.TableUsed = sel.TableName
		return nil
	}

	t, err := o.repo.GetTable(ctx, *req.TableID)
	if errors.Is(err, norms.ErrTableNotFound) {
		return &ValidationError{Reason: fmt.Sprintf("table %d does not exist", *req.TableID)}
	}
	if err != nil {
		return err
	}
	if t.TestType != req.TestType {
		return &ValidationError{Reason: fmt.Sprintf("table %d is for %s, not %s", t.ID, t.TestType, req.TestType)}
	}
	resp.TableID = t.ID
	resp.TableUsed = t.Name
	return nil
}

// audit appends to the calculation log. Failures are counted and logged,
// never returned.
func (o *Orchestrator) audit(ctx context.Context, req Request, in scoring.Input, resp Response) {
	result, err := json.Marshal(resp.ScoreResult)
	if err == nil {
		tableID := resp.TableID
		err = o.store.AppendCalculation(ctx, calclog.Entry{
			ID:        uuid.NewString(),
			OwnerID:   req.Owner.OwnerID,
			TestType:  string(req.TestType),
			RawInput:  in.Bytes(),
			Result:    result,
			TableID:   &tableID,
			Origin:    req.Origin,
			CreatedAt: o.now().Unix(),
		})
	}
	if err != nil {
		n := o.auditFailures.Add(1)
		o.log.Warnf("calculation log write failed (%d so far): %v", n, err)
	}
}

func (o *Orchestrator) save(ctx context.Context, req Request, in scoring.Input, on time.Time, resp *Response) error {
	tableID := resp.TableID
	err := db.WithTx(ctx, o.db, db.TxOptions(o.cfg.Driver), func(tx *sql.Tx) error {
		ev, err := o.ResolveEvaluation(ctx, tx, req.Mode, req.Evaluation, req.Owner.OwnerID, on)
		if err != nil {
			return err
		}
		resultID, outcome, err := o.PersistResult(ctx, tx, PersistParams{
			TestType:     req.TestType,
			EvaluationID: ev.ID,
			RawInput:     in.Bytes(),
			Result:       resp.ScoreResult,
			TableID:      &tableID,
			DeductStock:  req.Mode == ModeLinked && req.deductStock(),
			Owner:        req.Owner,
		})
		if err != nil {
			return err
		}
		evID := ev.ID
		resp.EvaluationID = &evID
		resp.ReportNumber = ev.ReportNumber
		resp.ResultID = &resultID
		resp.Stock = outcome
		return nil
	})
	if err != nil {
		resp.EvaluationID, resp.ReportNumber, resp.ResultID, resp.Stock = nil, "", nil, nil
		return err
	}
	resp.Saved = true
	return nil
}

// PersistParams describes one result save.
type PersistParams struct {
	TestType     norms.TestType
	EvaluationID int64
	RawInput     []byte
	Result       scoring.ScoreResult
	TableID      *int64
	DeductStock  bool
	Owner        Identity
}

// PersistResult replaces the evaluation's result for the test type and then
// settles stock. It runs on the caller's transaction; stock problems are
// reported in the outcome, never as an error.
func (o *Orchestrator) PersistResult(ctx context.Context, tx db.Querier, p PersistParams) (int64, *inventory.Outcome, error) {
	details, err := json.Marshal(p.Result)
	if err != nil {
		return 0, nil, errors.Wrap(err, "encode score result")
	}
	id, err := o.store.ReplaceResult(ctx, tx, TestResult{
		EvaluationID:   p.EvaluationID,
		TestType:       p.TestType,
		RawInput:       p.RawInput,
		RawScore:       p.Result.Raw,
		Percentile:     p.Result.Percentile,
		Classification: p.Result.Classification,
		Details:        details,
		TableUsedID:    p.TableID,
	})
	if err != nil {
		return 0, nil, err
	}
	outcome, err := o.deduct(ctx, tx, p)
	if err != nil {
		return 0, nil, err
	}
	return id, outcome, nil
}

// deduct resolves the effective stock flag. The owner's stored role wins
// over the token role; exempt roles never deduct.
func (o *Orchestrator) deduct(ctx context.Context, tx db.Querier, p PersistParams) (*inventory.Outcome, error) {
	if o.deductor == nil {
		return nil, nil
	}
	role, found, err := o.store.OwnerRole(ctx, tx, p.Owner.OwnerID)
	if err != nil {
		return nil, err
	}
	if !found {
		role = p.Owner.Role
	}
	if o.deductor.Exempt(role) {
		return &inventory.Outcome{Reason: inventory.ReasonExempt}, nil
	}
	if !p.DeductStock {
		return &inventory.Outcome{Reason: inventory.ReasonDisabled}, nil
	}
	out, err := o.deductor.Deduct(ctx, tx, inventory.Request{
		TestType:     p.TestType,
		EvaluationID: p.EvaluationID,
		UserID:       p.Owner.OwnerID,
		Role:         role,
	})
	if err != nil {
		o.log.Warnf("stock deduction for evaluation %d: %v", p.EvaluationID, err)
	} else if !out.Success {
		o.log.Infof("stock not deducted for evaluation %d (%s): %s", p.EvaluationID, p.TestType, out.Reason)
	}
	return &out, nil
}

// ResolveEvaluation finds or creates the evaluation a result is saved
// under. Linked mode reuses (examinee, report number), or the examinee's
// latest evaluation when no number is given, and moves its date to the
// application date. Anonymous mode always creates a placeholder.
func (o *Orchestrator) ResolveEvaluation(ctx context.Context, q db.Querier, mode Mode, ec EvalContext, ownerID int64, on time.Time) (Evaluation, error) {
	date := on.Format(dateLayout)
	switch mode {
	case ModeAnonymous:
		return o.store.InsertEvaluation(ctx, q, Evaluation{
			OwnerID:         ownerID,
			ReportNumber:    anonymousReportNumber(o.now()),
			Category:        CategoryAnonymous,
			ApplicationDate: date,
		})
	case ModeLinked:
	default:
		return Evaluation{}, &ValidationError{Reason: "mode " + string(mode) + " does not create evaluations"}
	}

	if ec.ExamineeID == nil {
		return Evaluation{}, &ValidationError{Reason: "linked mode requires examinee_id"}
	}
	examineeID := *ec.ExamineeID
	ok, err := o.store.ExamineeExists(ctx, q, examineeID)
	if err != nil {
		return Evaluation{}, err
	}
	if !ok {
		return Evaluation{}, &ValidationError{Reason: errors.Wrapf(ErrExamineeNotFound, "id %d", examineeID).Error()}
	}

	report := strings.TrimSpace(ec.ReportNumber)
	if report == "" {
		ev, found, err := o.store.LatestEvaluation(ctx, q, examineeID)
		if err != nil {
			return Evaluation{}, err
		}
		if found {
			if err := o.store.TouchApplicationDate(ctx, q, ev.ID, date); err != nil {
				return Evaluation{}, err
			}
			ev.ApplicationDate = date
			return ev, nil
		}
		report = linkedReportNumber(o.cfg.ReportPrefix, examineeID, o.now())
	}
	return o.store.UpsertEvaluation(ctx, q, Evaluation{
		ExamineeID:      &examineeID,
		OwnerID:         ownerID,
		ReportNumber:    report,
		Category:        ec.Category,
		ApplicationDate: date,
	})
}

func linkedReportNumber(prefix string, examineeID int64, now time.Time) string {
	return fmt.Sprintf("%s-%d-%06d-%04d", prefix, now.Year(), examineeID, now.UnixMilli()%10000)
}

func anonymousReportNumber(now time.Time) string {
	return fmt.Sprintf("ANON-%d-%06d", now.Year(), now.UnixMilli()%1000000)
}

// Evaluation reads back a saved evaluation with its results.
func (o *Orchestrator) Evaluation(ctx context.Context, id int64) (Evaluation, error) {
	return o.store.GetEvaluation(ctx, id)
}
