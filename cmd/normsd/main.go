package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	api "github.com/mind-engage/mindengage-norms/internal/api/http"
	"github.com/mind-engage/mindengage-norms/internal/app"
	auth "github.com/mind-engage/mindengage-norms/internal/auth/middleware"
	"github.com/mind-engage/mindengage-norms/internal/config"
	"github.com/mind-engage/mindengage-norms/internal/logging"
)

func main() {
	cfg, err := config.Load("normsd", os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New("normsd", cfg.LogLevel)

	// --- DB + components ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	a, err := app.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}
	defer a.Close()

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		DB:           a.DB,
		Auth:         authSvc,
		Orchestrator: a.Orchestrator,
		Deductor:     a.Deductor,
		Stock:        a.Stock,
		Log:          logger,
		LocalLogin:   cfg.EnableLocalAuth,
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", readyHandler(a))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop, release := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer release()
	go func() {
		<-stop.Done()
		sctx, scancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}()

	logger.Infof("listening on %s (db=%s, region=%s)", cfg.HTTPAddr, a.Driver, cfg.PrimaryRegion)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
	logger.Infof("stopped")
}
