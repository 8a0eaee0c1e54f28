package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/api/handler"
	"github.com/cbs/consultation-web/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps the backend failure classifications to HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error", "code", "fields"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, handler.ErrorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, handler.ErrorResponse{Error: fmt.Sprintf("%v", he.Message), Code: httpCode(he.Code)}
	}

	if errors.Is(err, domain.ErrTransitionInFlight) {
		return http.StatusConflict, handler.ErrorResponse{
			Error: "Another sign-in or sign-out is still in progress",
			Code:  "transition_in_flight",
		}
	}

	if ae := domain.AsAPIError(err); ae != nil {
		status, code := classify(ae)
		if status >= http.StatusInternalServerError {
			log.Warn().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("backend failure")
		}
		return status, handler.ErrorResponse{Error: message(ae), Code: code, Fields: ae.Fields}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, handler.ErrorResponse{Error: "internal server error", Code: "internal"}
}

func classify(ae *domain.APIError) (int, string) {
	switch ae.Kind {
	case domain.ErrMissingCredentials:
		return http.StatusBadRequest, "missing_credentials"
	case domain.ErrValidationFailed:
		return http.StatusUnprocessableEntity, "validation_failed"
	case domain.ErrUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case domain.ErrForbidden:
		return http.StatusForbidden, "forbidden"
	case domain.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case domain.ErrRateLimited:
		return http.StatusTooManyRequests, "rate_limited"
	case domain.ErrUnreachable:
		if ae.Timeout {
			return http.StatusGatewayTimeout, "timeout"
		}
		return http.StatusServiceUnavailable, "unreachable"
	case domain.ErrInvalidServerResponse:
		return http.StatusBadGateway, "invalid_server_response"
	default:
		return http.StatusBadGateway, "server_error"
	}
}

func message(ae *domain.APIError) string {
	if ae.Message != "" {
		return ae.Message
	}
	switch ae.Kind {
	case domain.ErrInvalidServerResponse, domain.ErrServerError:
		return "An unexpected error occurred"
	}
	return ae.Kind.Error()
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	}
	if status >= http.StatusInternalServerError {
		return "internal"
	}
	return "error"
}
