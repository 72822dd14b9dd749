package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-norms/internal/db/dbtest"
	"github.com/mind-engage/mindengage-norms/internal/rbac"
)

type seen struct {
	id   int64
	ok   bool
	role string
}

func capture(s *seen) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.id, s.ok = UserIDFromContext(r.Context())
		s.role = rbac.RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func bearer(req *http.Request, tok string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func TestJWT_RoundTrip(t *testing.T) {
	a := NewAuthService("secret")
	tok, err := a.IssueJWT(42, rbac.RolePsychologist)
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "42", c.Subject)
	assert.Equal(t, rbac.RolePsychologist, c.Role)

	_, err = NewAuthService("other").Parse(tok)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret")
	var s seen
	h := JWTMiddleware(a)(capture(&s))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, bearer(httptest.NewRequest(http.MethodGet, "/", nil), "garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := a.IssueJWT(7, rbac.RoleAssistant)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, bearer(httptest.NewRequest(http.MethodGet, "/", nil), tok))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, s.ok)
	assert.Equal(t, int64(7), s.id)
	assert.Equal(t, rbac.RoleAssistant, s.role)
}

func TestAttachRoleFromDB(t *testing.T) {
	conn := dbtest.Open(t)
	a := NewAuthService("secret")
	id := dbtest.User(t, conn, "ana", rbac.RoleAdmin)

	var s seen
	strict := JWTMiddleware(a)(AttachRoleFromDB(conn, false)(capture(&s)))

	// stored role overrides the stale claim
	tok, _ := a.IssueJWT(id, rbac.RoleAssistant)
	rec := httptest.NewRecorder()
	strict.ServeHTTP(rec, bearer(httptest.NewRequest(http.MethodGet, "/", nil), tok))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, rbac.RoleAdmin, s.role)

	// unknown user
	tok, _ = a.IssueJWT(999, rbac.RolePsychologist)
	rec = httptest.NewRecorder()
	strict.ServeHTTP(rec, bearer(httptest.NewRequest(http.MethodGet, "/", nil), tok))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	lenient := JWTMiddleware(a)(AttachRoleFromDB(conn, true)(capture(&s)))
	rec = httptest.NewRecorder()
	lenient.ServeHTTP(rec, bearer(httptest.NewRequest(http.MethodGet, "/", nil), tok))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, rbac.RolePsychologist, s.role)
}

func TestLoginHandler(t *testing.T) {
	conn := dbtest.Open(t)
	a := NewAuthService("secret")
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	id := dbtest.Insert(t, conn, `INSERT INTO users (username, password_hash, role) VALUES ($1,$2,$3)`,
		"lucia", string(hash), rbac.RolePsychologist)

	h := LoginHandler(a, conn)
	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, post(`{`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"username":"lucia"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(`{"username":"lucia","password":"nope"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(`{"username":"nobody","password":"x"}`).Code)

	rec := post(`{"username":"lucia","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"psychologist"`)

	var s seen
	tok := gjson.Get(rec.Body.String(), "access_token").String()
	require.NotEmpty(t, tok)
	mw := JWTMiddleware(a)(capture(&s))
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, bearer(httptest.NewRequest(http.MethodGet, "/", nil), tok))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, s.id)
}
