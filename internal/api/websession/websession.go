// Package websession carries the per-request view of one browser session
// between the session middleware and the handlers.
package websession

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cbs/consultation-web/internal/core/ports"
	"github.com/cbs/consultation-web/internal/core/service"
)

const contextKey = "websession"

// CookieConfig describes the session cookie. The cookie only ever holds the
// opaque session id.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Session is everything a handler needs to act for one browser context.
type Session struct {
	// ID is the raw session id from (or destined for) the cookie.
	ID string
	// HasCookie reports whether the request presented a well-formed cookie.
	HasCookie bool

	Auth *service.AuthContext
	API  ports.APIClient

	cookie CookieConfig
}

// New builds a Session. It is called by the session middleware.
func New(id string, hasCookie bool, auth *service.AuthContext, api ports.APIClient, cookie CookieConfig) *Session {
	return &Session{ID: id, HasCookie: hasCookie, Auth: auth, API: api, cookie: cookie}
}

// Attach stores s on c.
func Attach(c echo.Context, s *Session) { c.Set(contextKey, s) }

// From returns the Session attached to c, or nil.
func From(c echo.Context) *Session {
	s, _ := c.Get(contextKey).(*Session)
	return s
}

// Establish writes the session cookie so the browser presents this id from
// now on.
func (s *Session) Establish(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.cookie.Name,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(s.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.HasCookie = true
}

// End expires the session cookie.
func (s *Session) End(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.HasCookie = false
}
