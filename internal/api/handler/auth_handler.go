package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/guard"
	"github.com/cbs/consultation-web/internal/core/ports"
)

// AuthHandler exposes the session transitions of the browser's AuthContext.
type AuthHandler struct {
	routes guard.Routes
}

func NewAuthHandler(routes guard.Routes) *AuthHandler {
	return &AuthHandler{routes: routes}
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type authResponse struct {
	User       *domain.User `json:"user,omitempty"`
	RedirectTo string       `json:"redirectTo,omitempty"`
}

type sessionResponse struct {
	State           domain.SessionState `json:"state"`
	IsAuthenticated bool                `json:"isAuthenticated"`
	User            *domain.User        `json:"user,omitempty"`
}

// Login signs the browser in and sets the session cookie.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Failure      503   {object}  ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := ws.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	ws.Establish(c)

	return c.JSON(http.StatusOK, authResponse{User: user, RedirectTo: h.redirect(ws.Auth.Navigation, req.CallbackURL)})
}

// Register creates an account and signs the browser in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      ports.RegisterInput  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req ports.RegisterInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := ws.Auth.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	ws.Establish(c)

	return c.JSON(http.StatusCreated, authResponse{User: user, RedirectTo: h.redirect(ws.Auth.Navigation, "")})
}

// Logout ends the session. It succeeds even when the backend cannot be told.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  authResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	if err := ws.Auth.Logout(c.Request().Context()); err != nil {
		return err
	}
	ws.End(c)

	to, _ := ws.Auth.Navigation()
	return c.JSON(http.StatusOK, authResponse{RedirectTo: to})
}

// Session reports the resolved session of the browser.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	ws.Auth.Initialize(c.Request().Context())
	return c.JSON(http.StatusOK, sessionResponse{
		State:           ws.Auth.State(),
		IsAuthenticated: ws.Auth.IsAuthenticated(),
		User:            ws.Auth.User(),
	})
}

// redirect consumes the pending navigation; a safe callback from the login
// form takes precedence.
func (h *AuthHandler) redirect(navigation func() (string, bool), callback string) string {
	to, ok := navigation()
	if !ok {
		to = h.routes.Default
	}
	if callback != "" {
		return guard.SafeCallback(callback, to)
	}
	return to
}
