package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/mind-engage/mindengage-norms/internal/app"
	"github.com/mind-engage/mindengage-norms/internal/config"
	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/db/dbtest"
	"github.com/mind-engage/mindengage-norms/internal/logging"
)

func TestReadyHandler(t *testing.T) {
	conn := dbtest.Open(t)
	cfg, err := config.Load("normsd", nil)
	require.NoError(t, err)
	a := app.Wire(conn, db.DriverSQLite, cfg, logging.Discard())

	rec := httptest.NewRecorder()
	readyHandler(a)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "database").String())
	assert.Equal(t, int64(0), gjson.Get(rec.Body.String(), "audit_failures").Int())

	require.NoError(t, conn.Close())
	rec = httptest.NewRecorder()
	readyHandler(a)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
