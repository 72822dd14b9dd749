package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-norms/internal/auth/middleware"
	"github.com/mind-engage/mindengage-norms/internal/evaluation"
	"github.com/mind-engage/mindengage-norms/internal/inventory"
	"github.com/mind-engage/mindengage-norms/internal/logging"
	"github.com/mind-engage/mindengage-norms/internal/rbac"
)

type Deps struct {
	DB           *sql.DB
	Auth         *authmw.AuthService
	Orchestrator *evaluation.Orchestrator
	Deductor     *inventory.Deductor
	Stock        *inventory.Store
	Log          logging.Logger
	LocalLogin   bool
}

// Mount registers the API routes on r.
func Mount(r chi.Router, d Deps) {
	if d.LocalLogin {
		r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.DB))
	}

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))
		pr.Use(authmw.AttachRoleFromDB(d.DB, false))

		pr.With(rbac.Require(rbac.PermTestsView)).Get("/tests", CatalogHandler(d.Deductor))
		pr.With(rbac.Require(rbac.PermTestsSuggest)).Get("/tests/{testType}/suggestions", SuggestionsHandler(d.Orchestrator, d.Log))
		pr.With(rbac.Require(rbac.PermTestsScore)).Post("/tests/{testType}/score", ScoreHandler(d.Orchestrator, d.Log))

		pr.With(rbac.Require(rbac.PermEvaluationsView)).Get("/evaluations/{id}", GetEvaluationHandler(d.Orchestrator, d.Log))

		pr.Route("/stock", func(sr chi.Router) {
			sr.With(rbac.Require(rbac.PermStockView)).Get("/", ListStockHandler(d.Stock, d.Log))
			sr.With(rbac.Require(rbac.PermStockView)).Get("/{itemID}/movements", StockMovementsHandler(d.Stock, d.Log))
			sr.With(rbac.Require(rbac.PermStockRestock)).Post("/restock", RestockHandler(d.Stock, d.Log))
		})
	})
}

// NewRouter is Mount on a fresh router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	Mount(r, d)
	return r
}
