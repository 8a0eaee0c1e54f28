package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/api/metrics"
	"github.com/cbs/consultation-web/internal/api/websession"
	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/guard"
	"github.com/cbs/consultation-web/internal/core/ports"
)

const verifyTimeout = 5 * time.Second

// EdgeConfig configures the pre-render route check.
type EdgeConfig struct {
	Table  *domain.RouteTable
	Routes guard.Routes
	// Stores and Verifier serve the admin verification round-trip.
	Stores   ports.SessionStores
	Verifier ports.TokenVerifier
	Log      zerolog.Logger
}

// EdgeGuard classifies the request path and redirects before any handler
// runs. It only knows whether a session cookie was presented, except on
// admin routes where the credential is verified and any failure counts as
// signed out. Must run after Session.
func EdgeGuard(cfg EdgeConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ws := websession.From(c)
			if ws == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "session middleware not installed")
			}

			path := c.Request().URL.Path
			requested := c.Request().URL.RequestURI()
			class := cfg.Table.Classify(path)

			d := guard.Edge(class, ws.HasCookie, requested, cfg.Routes)
			if d.Outcome == guard.Allow && class == domain.RouteAdmin {
				role, err := cfg.verify(c.Request().Context(), ws.ID)
				if err != nil {
					cfg.Log.Info().Err(err).Str("path", path).Msg("admin verification failed")
				}
				d = guard.EdgeRole(role, err, requested, cfg.Routes)
			}

			metrics.GuardDecisionsTotal.WithLabelValues("edge", string(d.Outcome)).Inc()
			if d.Outcome != guard.Allow {
				return c.Redirect(http.StatusFound, d.Location)
			}
			return next(c)
		}
	}
}

func (cfg EdgeConfig) verify(ctx context.Context, sid string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	sess, err := cfg.Stores.Scope(sid).Load(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", domain.ErrUnauthorized
	}
	return cfg.Verifier.VerifyRole(ctx, sess.Token)
}
