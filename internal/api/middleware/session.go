package middleware

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/api/websession"
	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
	"github.com/cbs/consultation-web/internal/core/service"
	"github.com/cbs/consultation-web/internal/pkg/sessionid"
)

// BindFunc returns an API client bound to store that calls onUnauthorized
// after the store has been cleared on a 401.
type BindFunc func(store ports.SessionStore, onUnauthorized func(ctx context.Context)) ports.APIClient

// SessionDeps wires the per-request session.
type SessionDeps struct {
	Stores     ports.SessionStores
	Lock       ports.TransitionLock
	Bind       BindFunc
	Validate   *validator.Validate
	ProfileTTL time.Duration
	Routes     service.AuthContextConfig
	Listeners  []service.TransitionListener
	Cookie     websession.CookieConfig
	Log        zerolog.Logger
}

// Session resolves the browser session of every request and attaches it for
// the guards and handlers. A missing or malformed cookie gets a fresh id that
// is only written back once the user signs in.
func Session(d SessionDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid, hasCookie := "", false
			if ck, err := c.Cookie(d.Cookie.Name); err == nil && sessionid.Valid(ck.Value) {
				sid, hasCookie = ck.Value, true
			} else {
				sid = sessionid.New()
			}

			key := sessionid.Key(sid)
			store := d.Stores.Scope(sid)
			log := d.Log.With().Str("session", key).Logger()

			var ac *service.AuthContext
			api := d.Bind(store, func(ctx context.Context) { ac.Invalidate(ctx) })
			auth := service.NewAuthService(api, store, d.Validate, d.ProfileTTL, log)
			ac = service.NewAuthContext(key, auth, d.Lock, d.Routes, log, d.Listeners...)

			ws := websession.New(sid, hasCookie, ac, api, d.Cookie)
			websession.Attach(c, ws)

			// A backend rejection during this request leaves a dead cookie
			// behind; drop it with the response.
			c.Response().Before(func() {
				if ws.HasCookie && ac.State() == domain.StateAnonymous {
					ws.End(c)
				}
			})

			return next(c)
		}
	}
}
