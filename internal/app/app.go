// Package app wires the stores, selector, scoring engine and orchestrator
// from a Config. Both binaries build on it.
package app

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/calclog"
	"github.com/mind-engage/mindengage-norms/internal/config"
	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/evaluation"
	"github.com/mind-engage/mindengage-norms/internal/inventory"
	"github.com/mind-engage/mindengage-norms/internal/logging"
	"github.com/mind-engage/mindengage-norms/internal/norms"
	"github.com/mind-engage/mindengage-norms/internal/scoring"
	"github.com/mind-engage/mindengage-norms/internal/selector"
)

type App struct {
	DB           *sql.DB
	Driver       db.Driver
	Repo         *norms.SQLRepository
	Results      *evaluation.SQLStore
	Selector     *selector.Selector
	Engine       *scoring.Engine
	Deductor     *inventory.Deductor
	Stock        *inventory.Store
	CalcLog      *calclog.Repo
	Orchestrator *evaluation.Orchestrator
	Log          logging.Logger
}

// New opens the database and builds every component. The caller owns Close.
func New(ctx context.Context, cfg config.Config, log logging.Logger) (*App, error) {
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	a := Wire(conn, driver, cfg, log)
	if err := a.Results.Probe(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "probe result schema")
	}
	return a, nil
}

// Wire builds the components on an open connection.
func Wire(conn *sql.DB, driver db.Driver, cfg config.Config, log logging.Logger) *App {
	repo := norms.NewSQLRepository(conn)
	results := evaluation.NewSQLStore(conn, log)
	sel := selector.New(repo, selector.Config{
		PrimaryRegion:   cfg.PrimaryRegion,
		SecondaryRegion: cfg.SecondaryRegion,
		TransitMinAge:   cfg.TransitMinAge,
	})
	engine := scoring.NewEngine(repo,
		scoring.WithIQPatterns(cfg.IQTablePatterns...),
		scoring.WithProxyRoute(cfg.ProxyRoute),
		scoring.WithMatrixItems(cfg.MatrixItems),
	)
	deductor := inventory.NewDeductor(nil, cfg.ExemptRole)
	orch := evaluation.NewOrchestrator(conn, results, repo, sel, engine, deductor, log, evaluation.Config{
		ReportPrefix: cfg.ReportPrefix,
		Driver:       driver,
	})
	return &App{
		DB:           conn,
		Driver:       driver,
		Repo:         repo,
		Results:      results,
		Selector:     sel,
		Engine:       engine,
		Deductor:     deductor,
		Stock:        inventory.NewStore(conn, driver),
		CalcLog:      calclog.NewRepo(conn),
		Orchestrator: orch,
		Log:          log,
	}
}

func (a *App) Close() error { return a.DB.Close() }
