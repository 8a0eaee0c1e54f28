package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cbs/consultation-web/internal/api/websession"
)

// ctxSession returns the browser session attached by the session middleware
// and fails fast when the middleware did not run.
func ctxSession(c echo.Context) (*websession.Session, error) {
	ws := websession.From(c)
	if ws == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "session not available")
	}
	return ws, nil
}

// bindAndValidate decodes the request body into req and runs the registered
// validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

// ErrorResponse is the JSON envelope of every failed request.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}
