package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cbs/consultation-web/internal/core/domain"
)

func TestEdge(t *testing.T) {
	r := DefaultRoutes()
	tests := []struct {
		name  string
		class domain.RouteClass
		cred  bool
		want  Decision
	}{
		{"public without credential", domain.RoutePublic, false, Decision{Outcome: Allow}},
		{"public with credential", domain.RoutePublic, true, Decision{Outcome: Allow}},
		{"auth-only anonymous", domain.RouteAuthOnly, false, Decision{Outcome: Allow}},
		{"auth-only signed in", domain.RouteAuthOnly, true, Decision{Outcome: RedirectDefault, Location: "/dashboard"}},
		{"protected anonymous", domain.RouteProtected, false, Decision{Outcome: RedirectLogin, Location: "/login?callbackUrl=%2Fprofile"}},
		{"protected signed in", domain.RouteProtected, true, Decision{Outcome: Allow}},
		{"admin anonymous", domain.RouteAdmin, false, Decision{Outcome: RedirectLogin, Location: "/login?callbackUrl=%2Fprofile"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Edge(tt.class, tt.cred, "/profile", r))
		})
	}
}

func TestEdgeRole_FailsClosed(t *testing.T) {
	r := DefaultRoutes()
	assert.Equal(t, RedirectLogin, EdgeRole("", errors.New("timeout"), "/admin", r).Outcome)
	assert.Equal(t, RedirectLogin, EdgeRole("admin", errors.New("boom"), "/admin", r).Outcome)
	assert.Equal(t, RedirectLogin, EdgeRole("", nil, "/admin", r).Outcome)
	assert.Equal(t, Decision{Outcome: RedirectDefault, Location: "/dashboard"}, EdgeRole("user", nil, "/admin", r))
	assert.Equal(t, Allow, EdgeRole("admin", nil, "/admin", r).Outcome)
}

func TestAuthorize(t *testing.T) {
	r := DefaultRoutes()
	user := &domain.User{ID: "u1", Role: domain.RoleUser}
	admin := &domain.User{ID: "a1", Role: domain.RoleAdmin}

	assert.Equal(t, Loading, Authorize(domain.StateInitializing, nil, nil, "/dashboard", r).Outcome)
	assert.Equal(t, Loading, Authorize(domain.StateInitializing, admin, []string{"admin"}, "/admin", r).Outcome,
		"initializing never allows, even with a user present")

	d := Authorize(domain.StateAnonymous, nil, nil, "/dashboard", r)
	assert.Equal(t, RedirectLogin, d.Outcome)
	assert.Equal(t, "/login?callbackUrl=%2Fdashboard", d.Location)

	assert.Equal(t, Allow, Authorize(domain.StateAuthenticated, user, nil, "/dashboard", r).Outcome)
	assert.Equal(t, Decision{Outcome: Fallback, Location: "/dashboard"}, Authorize(domain.StateAuthenticated, user, []string{"admin"}, "/admin", r))
	assert.Equal(t, Allow, Authorize(domain.StateAuthenticated, admin, []string{"admin"}, "/admin", r).Outcome)
}

func TestSafeCallback(t *testing.T) {
	assert.Equal(t, "/booking?x=1", SafeCallback("/booking?x=1", "/dashboard"))
	for _, bad := range []string{"", "https://evil.example", "//evil.example", "/\\evil.example", "dashboard"} {
		assert.Equal(t, "/dashboard", SafeCallback(bad, "/dashboard"), bad)
	}
}
