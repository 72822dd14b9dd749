package rbac

import (
	"context"
	"strings"
)

// Checker answers permission questions against a role→permissions policy.
// Permissions are "resource:action"; a trailing "*" matches a prefix and a
// bare "*" matches everything.
type Checker struct {
	policy map[string][]string
}

// NewChecker uses RolePermissions when policy is nil.
func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	norm := make(map[string][]string, len(policy))
	for role, perms := range policy {
		norm[normRole(role)] = perms
	}
	return &Checker{policy: norm}
}

func normRole(role string) string { return strings.ToLower(strings.TrimSpace(role)) }

func (c *Checker) Has(role, perm string) bool {
	for _, p := range c.policy[normRole(role)] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(perm, prefix)
	}
	return false
}

type ctxKey struct{}

// WithRole stores the caller's effective role.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(ctxKey{}).(string)
	return role
}
