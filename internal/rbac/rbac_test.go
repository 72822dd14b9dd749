package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker_DefaultPolicy(t *testing.T) {
	c := NewChecker(nil)

	assert.True(t, c.Has(RolePsychologist, PermTestsScore))
	assert.True(t, c.Has(RolePsychologist, PermStockView))
	assert.False(t, c.Has(RolePsychologist, PermStockRestock))

	assert.True(t, c.Has(RoleExternalProfessional, PermTestsSuggest))
	assert.False(t, c.Has(RoleExternalProfessional, PermStockView))

	assert.True(t, c.Has(RoleAssistant, PermStockRestock))
	assert.False(t, c.Has(RoleAssistant, PermTestsScore))

	assert.True(t, c.Has(RoleAdmin, "anything:at-all"))
	assert.False(t, c.Has("ghost", PermTestsView))
}

func TestChecker_Wildcards(t *testing.T) {
	c := NewChecker(map[string][]string{" Reviewer ": {"a:x", "b:*"}})
	assert.True(t, c.Has("REVIEWER", "b:anything"))
	assert.True(t, c.Has("reviewer", "a:x"))
	assert.False(t, c.Has("reviewer", "a:y"))
	assert.False(t, c.Has("ghost", "a:x"))
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require(PermStockRestock)(ok)

	cases := []struct {
		role string
		want int
	}{
		{"", http.StatusForbidden},
		{RolePsychologist, http.StatusForbidden},
		{RoleAssistant, http.StatusNoContent},
		{RoleAdmin, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/stock", nil)
		req = req.WithContext(WithRole(req.Context(), tc.role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "role %q", tc.role)
		if tc.want == http.StatusForbidden {
			assert.JSONEq(t, `{"error":"forbidden","permission":"stock:restock"}`, rec.Body.String())
		}
	}
}
