package api

import (
	"context"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/cbs/consultation-web/docs"
	"github.com/cbs/consultation-web/internal/api/handler"
	"github.com/cbs/consultation-web/internal/api/metrics"
	"github.com/cbs/consultation-web/internal/api/middleware"
	"github.com/cbs/consultation-web/internal/api/websession"
	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/guard"
	"github.com/cbs/consultation-web/internal/core/ports"
	"github.com/cbs/consultation-web/internal/core/service"
	"github.com/cbs/consultation-web/internal/infrastructure/apiclient"
	"github.com/cbs/consultation-web/internal/pkg/config"
	"github.com/cbs/consultation-web/internal/pkg/validation"
)

// Deps are the long-lived collaborators of the HTTP layer.
type Deps struct {
	Config   *config.Config
	Stores   ports.SessionStores
	Lock     ports.TransitionLock
	API      *apiclient.Client
	Verifier ports.TokenVerifier
	// Audit is nil when the audit trail is disabled.
	Audit ports.AuthEventRecorder
	// Health lists the dependencies probed by /health/ready.
	Health map[string]handler.Pinger
	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	cfg := d.Config
	validate := validation.New()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator(validate)
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestContext())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  metrics.Namespace,
		Registerer: d.Registerer,
		Skipper:    infraPath,
	}))

	// --- Operational endpoints (no session) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Health)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Dependencies ---
	routes := guard.Routes{Login: cfg.Routes.Login, Default: cfg.Routes.Landing, Fallback: cfg.Routes.Fallback}

	listeners := []service.TransitionListener{metricsListener}
	if d.Audit != nil {
		listeners = append(listeners, service.AuditListener(d.Audit))
	}

	session := middleware.Session(middleware.SessionDeps{
		Stores: d.Stores,
		Lock:   d.Lock,
		Bind: func(store ports.SessionStore, onUnauthorized func(context.Context)) ports.APIClient {
			return d.API.Bind(store, onUnauthorized)
		},
		Validate:   validate,
		ProfileTTL: cfg.Session.ProfileTTL,
		Routes: service.AuthContextConfig{
			LandingRoute: cfg.Routes.Landing,
			PublicRoute:  cfg.Routes.Public,
			LockTTL:      cfg.Session.LockTTL,
		},
		Listeners: listeners,
		Cookie: websession.CookieConfig{
			Name:   cfg.Session.CookieName,
			TTL:    cfg.Session.TTL,
			Secure: cfg.Session.Secure,
		},
		Log: d.Log,
	})
	edge := middleware.EdgeGuard(middleware.EdgeConfig{
		Table:    domain.DefaultRouteTable(),
		Routes:   routes,
		Stores:   d.Stores,
		Verifier: d.Verifier,
		Log:      d.Log,
	})

	render := middleware.RenderConfig{Routes: routes, ResolveTimeout: cfg.Session.ResolveTimeout}
	page := middleware.RequireSession(middleware.Page, render)
	adminPage := middleware.RequireSession(middleware.Page, render, domain.RoleAdmin)
	api := middleware.RequireSession(middleware.API, render)
	adminAPI := middleware.RequireSession(middleware.API, render, domain.RoleAdmin)

	bookings := func(client ports.APIClient) ports.BookingService {
		return service.NewBookingService(client, service.DefaultPageSize, d.Log)
	}
	payments := func(client ports.APIClient) ports.PaymentService {
		return service.NewPaymentService(client, service.PaymentConfig{
			Amount:        cfg.Payment.Amount,
			Currency:      cfg.Payment.Currency,
			ReturnURLBase: cfg.Payment.ReturnURLBase,
		}, d.Log)
	}

	authHandler := handler.NewAuthHandler(routes)
	profileHandler := handler.NewProfileHandler()
	bookingHandler := handler.NewBookingHandler(bookings)
	paymentHandler := handler.NewPaymentHandler(payments)
	pageHandler := handler.NewPageHandler(handler.PageConfig{
		Routes:   routes,
		Amount:   cfg.Payment.Amount,
		Currency: cfg.Payment.Currency,
	}, bookings, payments)

	app := e.Group("", session, edge)

	// --- Pages ---
	app.GET("/", pageHandler.Home)
	app.GET("/about", pageHandler.About)
	app.GET("/contact", pageHandler.Contact)
	app.GET("/login", pageHandler.Login)
	app.GET("/register", pageHandler.Register)
	app.GET("/dashboard", pageHandler.Dashboard, page)
	app.GET("/profile", pageHandler.Profile, page)
	app.GET("/booking", pageHandler.Booking, page)
	app.GET("/payment", pageHandler.Payment, page)
	app.GET("/payment-status/:orderId", pageHandler.PaymentStatus, page)
	app.GET("/admin", pageHandler.Admin, adminPage)

	// --- Auth routes ---
	app.POST("/api/auth/login", authHandler.Login)
	app.POST("/api/auth/register", authHandler.Register)
	app.POST("/api/auth/logout", authHandler.Logout)
	app.GET("/api/session", authHandler.Session)

	// --- Protected API ---
	app.GET("/api/profile", profileHandler.Get, api)
	app.PATCH("/api/profile", profileHandler.Update, api)
	app.GET("/api/bookings", bookingHandler.List, api)
	app.POST("/api/bookings", bookingHandler.Create, api)
	app.PATCH("/api/bookings/:id", bookingHandler.UpdateStatus, api)
	app.DELETE("/api/bookings/:id", bookingHandler.Cancel, api)
	app.POST("/api/payments/session", paymentHandler.CreateSession, api)
	app.POST("/api/payments/:orderId/verify", paymentHandler.Verify, api)
	app.GET("/api/admin/bookings", bookingHandler.AdminList, adminAPI)

	return e
}

func metricsListener(_ context.Context, t service.Transition) {
	metrics.AuthTransitionsTotal.WithLabelValues(t.Action, string(t.To)).Inc()
}

func infraPath(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
}
