package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cbs/consultation-web/internal/api/metrics"
	"github.com/cbs/consultation-web/internal/api/websession"
	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/guard"
	"github.com/cbs/consultation-web/internal/core/service"
)

// Mode selects how a render-time refusal is expressed.
type Mode int

const (
	// Page answers with redirects, like a navigation would.
	Page Mode = iota
	// API answers with 401/403 JSON errors.
	API
)

const loadingRetryAfter = time.Second

// loadingResponse is the neutral body served while the session is unresolved.
type loadingResponse struct {
	Status string `json:"status"`
}

// RenderConfig configures the render-time check.
type RenderConfig struct {
	Routes guard.Routes
	// ResolveTimeout bounds how long a request waits for the session to be
	// resolved before the loading response is served. Zero waits for as long
	// as resolution takes.
	ResolveTimeout time.Duration
}

// RequireSession is the render-time, role-aware check. It resolves the
// session, then allows the handler only for an authenticated user holding
// one of roles (any role when none are given). Must run after Session.
func RequireSession(mode Mode, cfg RenderConfig, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ws := websession.From(c)
			if ws == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "session middleware not installed")
			}

			ac := ws.Auth
			resolve(c, ac, cfg.ResolveTimeout)

			d := guard.Authorize(ac.State(), ac.User(), roles, c.Request().URL.RequestURI(), cfg.Routes)
			metrics.GuardDecisionsTotal.WithLabelValues("render", string(d.Outcome)).Inc()

			switch d.Outcome {
			case guard.Allow:
				return next(c)
			case guard.Loading:
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(loadingRetryAfter.Seconds())))
				c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
				return c.JSON(http.StatusServiceUnavailable, loadingResponse{Status: "loading"})
			case guard.RedirectLogin:
				if mode == API {
					return &domain.APIError{Kind: domain.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "Please log in to continue"}
				}
				return c.Redirect(http.StatusFound, d.Location)
			default:
				if mode == API {
					return &domain.APIError{Kind: domain.ErrForbidden, Status: http.StatusForbidden, Message: "You do not have permission to perform this action"}
				}
				return c.Redirect(http.StatusFound, d.Location)
			}
		}
	}
}

func resolve(c echo.Context, ac *service.AuthContext, timeout time.Duration) {
	ctx := c.Request().Context()
	if timeout <= 0 {
		ac.Initialize(ctx)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ac.Initialize(ctx)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
	}
}
