package http

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	authmw "github.com/mind-engage/mindengage-norms/internal/auth/middleware"
	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/db/dbtest"
	"github.com/mind-engage/mindengage-norms/internal/evaluation"
	"github.com/mind-engage/mindengage-norms/internal/inventory"
	"github.com/mind-engage/mindengage-norms/internal/logging"
	"github.com/mind-engage/mindengage-norms/internal/norms"
	"github.com/mind-engage/mindengage-norms/internal/rbac"
	"github.com/mind-engage/mindengage-norms/internal/scoring"
	"github.com/mind-engage/mindengage-norms/internal/selector"
)

const memoreBody = `{"raw_input":{"vp":18,"vn":6,"fn":6,"fp":6}}`

type server struct {
	t    *testing.T
	conn *sql.DB
	auth *authmw.AuthService
	h    http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	conn := dbtest.Open(t)
	log := logging.Discard()
	repo := norms.NewSQLRepository(conn)
	store := evaluation.NewSQLStore(conn, log)
	require.NoError(t, store.Probe(context.Background()))
	sel := selector.New(repo, selector.Config{PrimaryRegion: "Ecuador", SecondaryRegion: "Latinoamérica", TransitMinAge: 18})
	deductor := inventory.NewDeductor(nil, rbac.RoleExternalProfessional)
	orch := evaluation.NewOrchestrator(conn, store, repo, sel, scoring.NewEngine(repo), deductor, log,
		evaluation.Config{ReportPrefix: "PSI", Driver: db.DriverSQLite})
	orch.WithClock(func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) })

	a := authmw.NewAuthService("test-secret")
	h := NewRouter(Deps{
		DB:           conn,
		Auth:         a,
		Orchestrator: orch,
		Deductor:     deductor,
		Stock:        inventory.NewStore(conn, db.DriverSQLite),
		Log:          log,
		LocalLogin:   true,
	})
	return &server{t: t, conn: conn, auth: a, h: h}
}

// user seeds a user and returns a bearer token for it.
func (s *server) user(name, role string) (int64, string) {
	s.t.Helper()
	id := dbtest.User(s.t, s.conn, name, role)
	tok, err := s.auth.IssueJWT(id, role)
	require.NoError(s.t, err)
	return id, tok
}

func (s *server) do(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func TestScore_Unlinked(t *testing.T) {
	s := newServer(t)
	dbtest.Table(t, s.conn, string(norms.Memore), "MEMORE Población general", "")
	_, tok := s.user("psy", rbac.RolePsychologist)

	rec := s.do(http.MethodPost, "/tests/memore/score", tok, memoreBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Equal(t, int64(50), gjson.Get(body, "score_result.percentile").Int())
	assert.Equal(t, "Median", gjson.Get(body, "score_result.classification").String())
	assert.Equal(t, "MEMORE Población general", gjson.Get(body, "table_used").String())
	assert.Equal(t, "unlinked", gjson.Get(body, "mode").String())
	assert.False(t, gjson.Get(body, "saved").Bool())
}

func TestScore_ErrorMapping(t *testing.T) {
	s := newServer(t)
	dbtest.Table(t, s.conn, string(norms.ConcentratedAttention), "Atención concentrada", "")
	_, tok := s.user("psy", rbac.RolePsychologist)

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown test type", "/tests/tarot/score", memoreBody, http.StatusNotFound},
		{"bad json", "/tests/memore/score", `{`, http.StatusBadRequest},
		{"missing raw input", "/tests/memore/score", `{}`, http.StatusBadRequest},
		{"bad mode", "/tests/memore/score", `{"raw_input":{},"mode":"shared"}`, http.StatusBadRequest},
		{"bad date", "/tests/memore/score", `{"raw_input":{},"evaluation":{"application_date":"05/03/2026"}}`, http.StatusBadRequest},
		{"negative age", "/tests/memore/score", `{"raw_input":{},"examinee_profile":{"age":-3}}`, http.StatusBadRequest},
		{"no table", "/tests/memore/score", memoreBody, http.StatusNotFound},
		{"non-object input", "/tests/concentrated_attention/score", `{"raw_input":[1,2]}`, http.StatusUnprocessableEntity},
		{"linked without examinee", "/tests/concentrated_attention/score",
			`{"raw_input":{"correct":30},"mode":"linked"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, tc.path, tok, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, gjson.Get(rec.Body.String(), "error").String())
		})
	}
}

func TestScore_InvalidResultCarriesScore(t *testing.T) {
	s := newServer(t)
	dbtest.Table(t, s.conn, string(norms.ConcentratedAttention), "Atención concentrada", "")
	_, tok := s.user("psy", rbac.RolePsychologist)

	rec := s.do(http.MethodPost, "/tests/concentrated_attention/score", tok,
		`{"raw_input":{"correct":3,"incorrect":4,"omitted":1}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, scoring.ClassInvalid, gjson.Get(rec.Body.String(), "score_result.classification").String())
	assert.Equal(t, gjson.Null, gjson.Get(rec.Body.String(), "score_result.percentile").Type)
}

func TestScore_PersistenceErrorKeepsResult(t *testing.T) {
	s := newServer(t)
	dbtest.Table(t, s.conn, string(norms.Memore), "MEMORE Población general", "")
	_, tok := s.user("psy", rbac.RolePsychologist)
	examinee := dbtest.Examinee(t, s.conn, "Ana")
	dbtest.Exec(t, s.conn, `DROP TABLE test_results`)

	rec := s.do(http.MethodPost, "/tests/memore/score", tok,
		fmt.Sprintf(`{"raw_input":{"vp":18,"vn":6,"fn":6,"fp":6},"mode":"linked","evaluation":{"examinee_id":%d}}`, examinee))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.True(t, gjson.Get(body, "saved").Exists())
	assert.False(t, gjson.Get(body, "saved").Bool())
	assert.Equal(t, int64(50), gjson.Get(body, "score_result.percentile").Int())
	assert.NotEmpty(t, gjson.Get(body, "error").String())
}

func TestScore_AuthAndPermissions(t *testing.T) {
	s := newServer(t)
	dbtest.Table(t, s.conn, string(norms.Memore), "MEMORE Población general", "")
	_, assistant := s.user("aux", rbac.RoleAssistant)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/tests/memore/score", "", memoreBody).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/tests/memore/score", assistant, memoreBody).Code)

	// token for a user that does not exist
	ghost, err := s.auth.IssueJWT(404, rbac.RolePsychologist)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/tests/memore/score", ghost, memoreBody).Code)
}

func TestSuggestions(t *testing.T) {
	s := newServer(t)
	general := dbtest.Table(t, s.conn, string(norms.Memore), "MEMORE Población general", "")
	transit := dbtest.Table(t, s.conn, string(norms.Memore), "MEMORE Renovación de licencia", "Ecuador")
	_, tok := s.user("aux", rbac.RoleAssistant)

	rec := s.do(http.MethodGet, "/tests/memore/suggestions?age=30&transit_context=renewal&region=Ecuador", tok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Equal(t, transit, gjson.Get(body, "table_id").Int())
	ids := gjson.Get(body, "candidates.#.table_id").Array()
	require.Len(t, ids, 2)
	assert.Equal(t, general, ids[1].Int())

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/tests/nope/suggestions", tok, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/tests/memore/suggestions?age=old", tok, "").Code)

	rec = s.do(http.MethodGet, "/tests/reasoning_r1/suggestions", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, gjson.Get(rec.Body.String(), "candidates").Array())
}

func TestCatalog(t *testing.T) {
	s := newServer(t)
	_, tok := s.user("psy", rbac.RolePsychologist)

	rec := s.do(http.MethodGet, "/tests", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Len(t, gjson.Get(body, "@this").Array(), 8)
	assert.Equal(t, int64(3), gjson.Get(body, `#(type=="multi_route_attention").sheets`).Int())
	assert.True(t, gjson.Get(body, `#(type=="concentrated_attention").row_shape.education`).Bool())
}

func TestGetEvaluation(t *testing.T) {
	s := newServer(t)
	dbtest.Table(t, s.conn, string(norms.Memore), "MEMORE Población general", "")
	_, owner := s.user("psy", rbac.RolePsychologist)
	_, other := s.user("psy2", rbac.RolePsychologist)
	_, admin := s.user("root", rbac.RoleAdmin)
	examinee := dbtest.Examinee(t, s.conn, "Ana")

	rec := s.do(http.MethodPost, "/tests/memore/score", owner,
		fmt.Sprintf(`{"raw_input":{"vp":18,"vn":6,"fn":6,"fp":6},"mode":"linked","deduct_stock":false,"evaluation":{"examinee_id":%d,"report_number":"R-7"}}`, examinee))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, gjson.Get(rec.Body.String(), "saved").Bool())
	assert.Equal(t, "stock deduction not requested", gjson.Get(rec.Body.String(), "stock.reason").String())
	evalID := gjson.Get(rec.Body.String(), "evaluation_id").Int()

	path := fmt.Sprintf("/evaluations/%d", evalID)
	rec = s.do(http.MethodGet, path, owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "R-7", gjson.Get(rec.Body.String(), "report_number").String())
	assert.Equal(t, "memore", gjson.Get(rec.Body.String(), "results.0.test_type").String())

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, other, "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, path, admin, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/evaluations/999", admin, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/evaluations/abc", admin, "").Code)
}

func TestStock(t *testing.T) {
	s := newServer(t)
	_, aux := s.user("aux", rbac.RoleAssistant)
	_, psy := s.user("psy", rbac.RolePsychologist)

	rec := s.do(http.MethodGet, "/stock", psy, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/stock/restock", psy, `{"name":"MEMORE answer sheet","quantity":5}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/stock/restock", aux, `{"name":"MEMORE answer sheet","quantity":0}`).Code)

	rec = s.do(http.MethodPost, "/stock/restock", aux, `{"name":"MEMORE answer sheet","quantity":5,"note":"delivery"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	itemID := gjson.Get(rec.Body.String(), "id").Int()
	assert.Equal(t, int64(5), gjson.Get(rec.Body.String(), "quantity").Int())

	rec = s.do(http.MethodGet, "/stock", psy, "")
	assert.Equal(t, "MEMORE answer sheet", gjson.Get(rec.Body.String(), "0.name").String())

	rec = s.do(http.MethodGet, fmt.Sprintf("/stock/%d/movements", itemID), aux, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inbound", gjson.Get(rec.Body.String(), "0.direction").String())
	assert.Equal(t, int64(5), gjson.Get(rec.Body.String(), "0.quantity").Int())
}

func TestLoginRoute(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodPost, "/auth/login", "", `{"username":"nobody","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
