// Package guard holds the route authorization policy shared by the edge
// check and the render-time check. It decides; the HTTP middleware acts.
package guard

import (
	"net/url"

	"github.com/cbs/consultation-web/internal/core/domain"
)

// Outcome is the result of a guard decision.
type Outcome string

const (
	Allow           Outcome = "allow"
	RedirectLogin   Outcome = "redirect_login"
	RedirectDefault Outcome = "redirect_default"
	Fallback        Outcome = "fallback"
	Loading         Outcome = "loading"
)

// Routes names the redirect targets.
type Routes struct {
	Login    string
	Default  string
	Fallback string
}

// DefaultRoutes are the application's redirect targets.
func DefaultRoutes() Routes {
	return Routes{Login: "/login", Default: "/dashboard", Fallback: "/dashboard"}
}

// Decision is an outcome with the location to send the browser to, if any.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Edge decides for the pre-render check, which only knows whether the
// request carries a credential.
func Edge(class domain.RouteClass, hasCredential bool, requested string, r Routes) Decision {
	switch class {
	case domain.RouteAuthOnly:
		if hasCredential {
			return Decision{Outcome: RedirectDefault, Location: r.Default}
		}
	case domain.RouteProtected, domain.RouteAdmin:
		if !hasCredential {
			return Decision{Outcome: RedirectLogin, Location: LoginURL(r.Login, requested)}
		}
	}
	return Decision{Outcome: Allow}
}

// EdgeRole refines an Edge decision for admin routes with the role obtained
// from a verification round-trip. A failed verification is treated as no
// credential.
func EdgeRole(role string, verifyErr error, requested string, r Routes) Decision {
	if verifyErr != nil || role == "" {
		return Decision{Outcome: RedirectLogin, Location: LoginURL(r.Login, requested)}
	}
	if role != domain.RoleAdmin {
		return Decision{Outcome: RedirectDefault, Location: r.Default}
	}
	return Decision{Outcome: Allow}
}

// Authorize decides for the render-time check from the live session. With
// no roles any authenticated user is allowed.
func Authorize(state domain.SessionState, user *domain.User, roles []string, requested string, r Routes) Decision {
	switch {
	case state == domain.StateInitializing:
		return Decision{Outcome: Loading}
	case user == nil:
		return Decision{Outcome: RedirectLogin, Location: LoginURL(r.Login, requested)}
	case len(roles) > 0 && !user.HasRole(roles...):
		return Decision{Outcome: Fallback, Location: r.Fallback}
	}
	return Decision{Outcome: Allow}
}

// LoginURL builds the login location preserving requested for the
// post-login return.
func LoginURL(login, requested string) string {
	if requested == "" {
		return login
	}
	return login + "?" + url.Values{"callbackUrl": {requested}}.Encode()
}

// SafeCallback returns target when it is a local path, otherwise def. It
// keeps the post-login return from becoming an open redirect.
func SafeCallback(target, def string) string {
	if target == "" || target[0] != '/' || (len(target) > 1 && (target[1] == '/' || target[1] == '\\')) {
		return def
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return def
	}
	return target
}
