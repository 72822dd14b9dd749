package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	authmw "github.com/mind-engage/mindengage-norms/internal/auth/middleware"
	"github.com/mind-engage/mindengage-norms/internal/evaluation"
	"github.com/mind-engage/mindengage-norms/internal/inventory"
	"github.com/mind-engage/mindengage-norms/internal/logging"
	"github.com/mind-engage/mindengage-norms/internal/norms"
	"github.com/mind-engage/mindengage-norms/internal/rbac"
	"github.com/mind-engage/mindengage-norms/internal/scoring"
	"github.com/mind-engage/mindengage-norms/internal/selector"
)

type scoreRequest struct {
	TableID     *int64                 `json:"table_id" validate:"omitempty,gt=0"`
	Profile     selector.Profile       `json:"examinee_profile"`
	RawInput    json.RawMessage        `json:"raw_input" validate:"required"`
	Mode        string                 `json:"mode" validate:"omitempty,oneof=linked anonymous unlinked"`
	Evaluation  evaluation.EvalContext `json:"evaluation"`
	DeductStock *bool                  `json:"deduct_stock"`
}

type errorBody struct {
	Error       string               `json:"error"`
	ScoreResult *scoring.ScoreResult `json:"score_result,omitempty"`
	Suggestions []selector.Candidate `json:"selection_suggestions,omitempty"`
	Warnings    []string             `json:"selection_warnings,omitempty"`
}

// failedSave keeps the computed result visible when the save failed.
type failedSave struct {
	Error string `json:"error"`
	evaluation.Response
}

func testTypeParam(r *http.Request) (norms.TestType, bool) {
	return norms.ParseTestType(strings.TrimSpace(chi.URLParam(r, "testType")))
}

// ScoreHandler serves POST /tests/{testType}/score.
func ScoreHandler(o *evaluation.Orchestrator, log logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tt, ok := testTypeParam(r)
		if !ok {
			respondError(w, http.StatusNotFound, "unknown test type")
			return
		}
		var req scoreRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode, _ := evaluation.ParseMode(req.Mode)
		ownerID, _ := authmw.UserIDFromContext(r.Context())

		resp, err := o.Calculate(r.Context(), evaluation.Request{
			TestType:    tt,
			TableID:     req.TableID,
			Profile:     req.Profile,
			RawInput:    req.RawInput,
			Mode:        mode,
			Evaluation:  req.Evaluation,
			DeductStock: req.DeductStock,
			Owner:       evaluation.Identity{OwnerID: ownerID, Role: rbac.RoleFromContext(r.Context())},
			Origin:      r.RemoteAddr,
		})
		if err != nil {
			writeCalculateError(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

func writeCalculateError(w http.ResponseWriter, log logging.Logger, err error) {
	var (
		selErr  *selector.SelectionError
		valErr  *evaluation.ValidationError
		saveErr *evaluation.PersistenceError
	)
	switch {
	case errors.Is(err, scoring.ErrUnknownTestType):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &selErr):
		respondJSON(w, http.StatusNotFound, errorBody{
			Error:       selErr.Error(),
			Suggestions: selErr.Suggestions,
			Warnings:    selErr.Warnings,
		})
	case errors.As(err, &valErr):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: valErr.Error(), ScoreResult: valErr.Result})
	case errors.As(err, &saveErr):
		respondJSON(w, http.StatusInternalServerError, failedSave{Error: saveErr.Error(), Response: saveErr.Response})
	default:
		log.Errorf("score: %v", err)
		respondError(w, http.StatusInternalServerError, "scoring failed")
	}
}

// SuggestionsHandler serves GET /tests/{testType}/suggestions. The profile
// comes from the query string.
func SuggestionsHandler(o *evaluation.Orchestrator, log logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tt, ok := testTypeParam(r)
		if !ok {
			respondError(w, http.StatusNotFound, "unknown test type")
			return
		}
		p, err := profileFromQuery(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err := o.Suggest(r.Context(), tt, p)
		var selErr *selector.SelectionError
		switch {
		case errors.As(err, &selErr):
			// an empty ranking is still an answer
			respondJSON(w, http.StatusOK, selector.Result{Candidates: []selector.Candidate{}, Warnings: selErr.Warnings})
		case err != nil:
			log.Errorf("suggest %s: %v", tt, err)
			respondError(w, http.StatusInternalServerError, "suggestion failed")
		default:
			respondJSON(w, http.StatusOK, res)
		}
	}
}

func profileFromQuery(r *http.Request) (selector.Profile, error) {
	q := r.URL.Query()
	p := selector.Profile{
		BirthDate:      strings.TrimSpace(q.Get("birth_date")),
		Education:      strings.TrimSpace(q.Get("education")),
		Region:         strings.TrimSpace(q.Get("region")),
		TransitContext: strings.TrimSpace(q.Get("transit_context")),
	}
	if s := strings.TrimSpace(q.Get("age")); s != "" {
		age, err := strconv.Atoi(s)
		if err != nil {
			return p, errors.New("age must be an integer")
		}
		p.Age = &age
	}
	return p, validateStruct(p)
}

type catalogEntry struct {
	norms.CatalogEntry
	StockItem string `json:"stock_item,omitempty"`
	Sheets    int    `json:"sheets"`
}

// CatalogHandler serves GET /tests.
func CatalogHandler(d *inventory.Deductor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := norms.Catalog()
		out := make([]catalogEntry, 0, len(entries))
		for _, e := range entries {
			ce := catalogEntry{CatalogEntry: e}
			if c, ok := d.Consumption(e.Type); ok {
				ce.StockItem, ce.Sheets = c.Item, c.Sheets
			}
			out = append(out, ce)
		}
		respondJSON(w, http.StatusOK, out)
	}
}
