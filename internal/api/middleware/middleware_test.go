package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/api/websession"
	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/guard"
	"github.com/cbs/consultation-web/internal/core/ports"
	"github.com/cbs/consultation-web/internal/infrastructure/memory"
	"github.com/cbs/consultation-web/internal/pkg/sessionid"
)

const cookieName = "cbs_session"

// fakeAPI answers backend calls through handle. The bound 401 hook is kept
// so tests can simulate a rejection.
type fakeAPI struct {
	handle         func(method, path string) (any, error)
	store          ports.SessionStore
	onUnauthorized func(context.Context)
}

func (f *fakeAPI) call(ctx context.Context, method, path string, out any) error {
	if f.handle == nil {
		return &domain.APIError{Kind: domain.ErrUnreachable}
	}
	resp, err := f.handle(method, path)
	if errors.Is(err, domain.ErrUnauthorized) {
		_ = f.store.Clear(ctx)
		f.onUnauthorized(ctx)
	}
	if err != nil {
		return err
	}
	if out != nil && resp != nil {
		buf, _ := json.Marshal(resp)
		return json.Unmarshal(buf, out)
	}
	return nil
}

func (f *fakeAPI) Get(ctx context.Context, path string, out any, _ ...ports.CallOption) error {
	return f.call(ctx, "GET", path, out)
}

func (f *fakeAPI) Post(ctx context.Context, path string, _, out any, _ ...ports.CallOption) error {
	return f.call(ctx, "POST", path, out)
}

func (f *fakeAPI) Patch(ctx context.Context, path string, _, out any, _ ...ports.CallOption) error {
	return f.call(ctx, "PATCH", path, out)
}

func (f *fakeAPI) Delete(ctx context.Context, path string, out any, _ ...ports.CallOption) error {
	return f.call(ctx, "DELETE", path, out)
}

type fakeVerifier struct {
	role string
	err  error
}

func (v fakeVerifier) VerifyRole(context.Context, string) (string, error) { return v.role, v.err }

type harness struct {
	e          *echo.Echo
	stores     *memory.SessionStores
	profileTTL time.Duration
	api        func(method, path string) (any, error)
}

func newHarness() *harness {
	return &harness{e: echo.New(), stores: memory.NewSessionStores(time.Hour), profileTTL: time.Hour}
}

func (h *harness) sessionMiddleware() echo.MiddlewareFunc {
	return Session(SessionDeps{
		Stores: h.stores,
		Lock:   memory.NewTransitionLock(),
		Bind: func(store ports.SessionStore, hook func(context.Context)) ports.APIClient {
			return &fakeAPI{handle: h.api, store: store, onUnauthorized: hook}
		},
		ProfileTTL: h.profileTTL,
		Cookie:     websession.CookieConfig{Name: cookieName, TTL: time.Hour},
		Log:        zerolog.Nop(),
	})
}

// signIn stores a session for a fresh id and returns the id.
func (h *harness) signIn(t *testing.T, role string) string {
	t.Helper()
	sid := sessionid.New()
	user := &domain.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Role: role}
	if err := h.stores.Scope(sid).Save(context.Background(), user, "tok"); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return sid
}

func (h *harness) serve(t *testing.T, target, sid string, chain ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: sid})
	}
	rec := httptest.NewRecorder()
	c := h.e.NewContext(req, rec)

	called := false
	var handler echo.HandlerFunc = func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	if err := handler(c); err != nil {
		h.e.HTTPErrorHandler(err, c)
	}
	return rec, called
}

func (h *harness) edge(v ports.TokenVerifier) echo.MiddlewareFunc {
	return EdgeGuard(EdgeConfig{
		Table:    domain.DefaultRouteTable(),
		Routes:   guard.DefaultRoutes(),
		Stores:   h.stores,
		Verifier: v,
		Log:      zerolog.Nop(),
	})
}

func TestEdgeGuard_CookiePresence(t *testing.T) {
	h := newHarness()
	signed := h.signIn(t, domain.RoleUser)

	tests := []struct {
		name     string
		target   string
		sid      string
		location string
	}{
		{"public anonymous", "/about", "", ""},
		{"protected anonymous", "/dashboard", "", "/login?callbackUrl=%2Fdashboard"},
		{"protected keeps query", "/booking?slot=2", "", "/login?callbackUrl=%2Fbooking%3Fslot%3D2"},
		{"protected signed in", "/profile", signed, ""},
		{"auth-only signed in", "/login", signed, "/dashboard"},
		{"auth-only anonymous", "/register", "", ""},
		{"garbage cookie counts as none", "/dashboard", "not-a-session", "/login?callbackUrl=%2Fdashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, called := h.serve(t, tt.target, tt.sid, h.sessionMiddleware(), h.edge(fakeVerifier{}))
			if tt.location == "" {
				if !called || rec.Code != http.StatusOK {
					t.Fatalf("expected pass-through, got %d", rec.Code)
				}
				return
			}
			if called {
				t.Fatalf("handler must not run")
			}
			if rec.Code != http.StatusFound || rec.Header().Get("Location") != tt.location {
				t.Fatalf("expected redirect to %s, got %d %s", tt.location, rec.Code, rec.Header().Get("Location"))
			}
		})
	}
}

func TestEdgeGuard_AdminVerification(t *testing.T) {
	h := newHarness()
	signed := h.signIn(t, domain.RoleAdmin)
	orphan := sessionid.New()

	tests := []struct {
		name     string
		sid      string
		verifier fakeVerifier
		location string
	}{
		{"verified admin", signed, fakeVerifier{role: "admin"}, ""},
		{"verified non-admin", signed, fakeVerifier{role: "user"}, "/dashboard"},
		{"verifier failure fails closed", signed, fakeVerifier{err: errors.New("timeout")}, "/login?callbackUrl=%2Fadmin"},
		{"cookie without stored session", orphan, fakeVerifier{role: "admin"}, "/login?callbackUrl=%2Fadmin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, called := h.serve(t, "/admin", tt.sid, h.sessionMiddleware(), h.edge(tt.verifier))
			if tt.location == "" {
				if !called {
					t.Fatalf("expected admin to pass, got %d", rec.Code)
				}
				return
			}
			if called || rec.Header().Get("Location") != tt.location {
				t.Fatalf("expected redirect to %s, got %d %s", tt.location, rec.Code, rec.Header().Get("Location"))
			}
		})
	}
}

func TestRequireSession_Page(t *testing.T) {
	h := newHarness()
	user := h.signIn(t, domain.RoleUser)
	admin := h.signIn(t, domain.RoleAdmin)
	cfg := RenderConfig{Routes: guard.DefaultRoutes()}

	rec, called := h.serve(t, "/dashboard", "", h.sessionMiddleware(), RequireSession(Page, cfg))
	if called || rec.Header().Get("Location") != "/login?callbackUrl=%2Fdashboard" {
		t.Fatalf("expected login redirect, got %d %s", rec.Code, rec.Header().Get("Location"))
	}

	if _, called := h.serve(t, "/dashboard", user, h.sessionMiddleware(), RequireSession(Page, cfg)); !called {
		t.Fatalf("expected signed-in user to pass")
	}

	rec, called = h.serve(t, "/admin", user, h.sessionMiddleware(), RequireSession(Page, cfg, domain.RoleAdmin))
	if called || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected fallback redirect, got %d %s", rec.Code, rec.Header().Get("Location"))
	}

	if _, called := h.serve(t, "/admin", admin, h.sessionMiddleware(), RequireSession(Page, cfg, domain.RoleAdmin)); !called {
		t.Fatalf("expected admin to pass")
	}
}

func TestRequireSession_API(t *testing.T) {
	h := newHarness()
	user := h.signIn(t, domain.RoleUser)
	cfg := RenderConfig{Routes: guard.DefaultRoutes()}

	chain := func(roles ...string) []echo.MiddlewareFunc {
		return []echo.MiddlewareFunc{h.sessionMiddleware(), RequireSession(API, cfg, roles...)}
	}

	h.e.HTTPErrorHandler = func(err error, c echo.Context) {
		if ae := domain.AsAPIError(err); ae != nil {
			_ = c.JSON(ae.Status, map[string]string{"error": ae.Message})
			return
		}
		h.e.DefaultHTTPErrorHandler(err, c)
	}

	rec, called := h.serve(t, "/api/profile", "", chain()...)
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec, called = h.serve(t, "/api/admin/bookings", user, chain(domain.RoleAdmin)...)
	if called || rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireSession_LoadingWhileUnresolved(t *testing.T) {
	h := newHarness()
	h.profileTTL = time.Nanosecond
	user := h.signIn(t, domain.RoleUser)

	// The cached profile is stale, so resolution waits on the backend.
	release := make(chan struct{})
	defer close(release)
	h.api = func(string, string) (any, error) {
		<-release
		return nil, &domain.APIError{Kind: domain.ErrUnreachable}
	}

	rec, called := h.serve(t, "/dashboard", user, h.sessionMiddleware(),
		RequireSession(Page, RenderConfig{Routes: guard.DefaultRoutes(), ResolveTimeout: 20 * time.Millisecond}))
	if called {
		t.Fatalf("protected content must not render while unresolved")
	}
	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 503 loading with Retry-After, got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Fatalf("loading must not redirect")
	}
	if !strings.Contains(rec.Body.String(), `"loading"`) {
		t.Fatalf("expected loading body, got %s", rec.Body.String())
	}
}

func TestSession_InvalidationDropsCookie(t *testing.T) {
	h := newHarness()
	sid := h.signIn(t, domain.RoleUser)
	h.api = func(string, string) (any, error) {
		return nil, &domain.APIError{Kind: domain.ErrUnauthorized, Status: 401}
	}

	var state domain.SessionState
	probe := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ws := websession.From(c)
			ws.Auth.Initialize(c.Request().Context())
			_ = ws.API.Get(c.Request().Context(), "/bookings", nil)
			state = ws.Auth.State()
			return next(c)
		}
	}

	rec, _ := h.serve(t, "/dashboard", sid, h.sessionMiddleware(), probe)

	if state != domain.StateAnonymous {
		t.Fatalf("expected anonymous after 401, got %s", state)
	}
	if sess, _ := h.stores.Scope(sid).Load(context.Background()); sess != nil {
		t.Fatalf("expected store cleared, got %+v", sess)
	}
	cookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, cookieName+"=;") || !strings.Contains(cookie, "Max-Age=0") {
		t.Fatalf("expected expiring cookie, got %q", cookie)
	}
}

func TestSession_AssignsFreshIDWithoutCookie(t *testing.T) {
	h := newHarness()
	var ws *websession.Session
	probe := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ws = websession.From(c)
			return next(c)
		}
	}

	rec, _ := h.serve(t, "/", "", h.sessionMiddleware(), probe)
	if ws == nil || ws.HasCookie || !sessionid.Valid(ws.ID) {
		t.Fatalf("expected fresh unpersisted session, got %+v", ws)
	}
	if rec.Header().Get("Set-Cookie") != "" {
		t.Fatalf("anonymous visits must not set a cookie")
	}
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier("secret")
	exp := time.Now().Add(time.Hour).Unix()

	role, err := v.VerifyRole(context.Background(), signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"role": "admin", "exp": exp}))
	if err != nil || role != "admin" {
		t.Fatalf("expected admin, got %q (err %v)", role, err)
	}

	bad := map[string]string{
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"role": "admin", "exp": exp}),
		"wrong alg":    signToken(t, jwt.SigningMethodHS512, []byte("secret"), jwt.MapClaims{"role": "admin", "exp": exp}),
		"expired":      signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"role": "admin", "exp": time.Now().Add(-time.Minute).Unix()}),
		"no expiry":    signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"role": "admin"}),
		"no role":      signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"exp": exp}),
		"empty":        "",
	}
	for name, token := range bad {
		if _, err := v.VerifyRole(context.Background(), token); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
