package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mind-engage/mindengage-norms/internal/app"
)

type readiness struct {
	Database         string `json:"database"`
	RecordsTableUsed bool   `json:"records_table_used"`
	AuditFailures    int64  `json:"audit_failures"`
}

// readyHandler reports 503 while the database is unreachable. Calculation
// log failures are surfaced but never make the service unready.
func readyHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := readiness{
			Database:         "ok",
			RecordsTableUsed: a.Results.RecordsTableUsed(),
			AuditFailures:    a.Orchestrator.AuditFailures(),
		}
		status := http.StatusOK
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.PingContext(ctx); err != nil {
			out.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(out)
	}
}
