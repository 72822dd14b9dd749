package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	authmw "github.com/mind-engage/mindengage-norms/internal/auth/middleware"
	"github.com/mind-engage/mindengage-norms/internal/evaluation"
	"github.com/mind-engage/mindengage-norms/internal/logging"
	"github.com/mind-engage/mindengage-norms/internal/rbac"
)

// GetEvaluationHandler serves GET /evaluations/{id}. Callers see their own
// evaluations unless their role may view all.
func GetEvaluationHandler(o *evaluation.Orchestrator, log logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			respondError(w, http.StatusBadRequest, "bad evaluation id")
			return
		}
		ev, err := o.Evaluation(r.Context(), id)
		if errors.Is(err, evaluation.ErrEvaluationNotFound) {
			respondError(w, http.StatusNotFound, "evaluation not found")
			return
		}
		if err != nil {
			log.Errorf("get evaluation %d: %v", id, err)
			respondError(w, http.StatusInternalServerError, "read failed")
			return
		}
		caller, _ := authmw.UserIDFromContext(r.Context())
		if ev.OwnerID != caller && !rbac.Default.Has(rbac.RoleFromContext(r.Context()), rbac.PermEvaluationsAll) {
			// same answer as a missing id
			respondError(w, http.StatusNotFound, "evaluation not found")
			return
		}
		respondJSON(w, http.StatusOK, ev)
	}
}
