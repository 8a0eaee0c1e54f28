package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/api/handler"
	"github.com/cbs/consultation-web/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"missing credentials", &domain.APIError{Kind: domain.ErrMissingCredentials, Message: "Email and password are required"}, 400, "missing_credentials", "Email and password are required"},
		{"validation", domain.NewValidationError("Please fill in all required fields", map[string]string{"name": "Name is required"}), 422, "validation_failed", "Please fill in all required fields"},
		{"unauthorized", &domain.APIError{Kind: domain.ErrUnauthorized, Status: 401, Message: "Your session has expired. Please log in again."}, 401, "unauthorized", "Your session has expired. Please log in again."},
		{"forbidden", &domain.APIError{Kind: domain.ErrForbidden, Status: 403}, 403, "forbidden", "access forbidden"},
		{"not found wrapped", fmt.Errorf("get booking: %w", &domain.APIError{Kind: domain.ErrNotFound, Message: "The requested resource was not found"}), 404, "not_found", "The requested resource was not found"},
		{"rate limited", &domain.APIError{Kind: domain.ErrRateLimited, Message: "Too many requests. Please try again later"}, 429, "rate_limited", "Too many requests. Please try again later"},
		{"unreachable", &domain.APIError{Kind: domain.ErrUnreachable, Message: "Network request failed. Please check your connection."}, 503, "unreachable", "Network request failed. Please check your connection."},
		{"timeout", &domain.APIError{Kind: domain.ErrUnreachable, Timeout: true, Message: "Request timed out. Please try again."}, 504, "timeout", "Request timed out. Please try again."},
		{"invalid response", &domain.APIError{Kind: domain.ErrInvalidServerResponse}, 502, "invalid_server_response", "An unexpected error occurred"},
		{"server error", &domain.APIError{Kind: domain.ErrServerError, Status: 500, Message: "boom"}, 502, "server_error", "boom"},
		{"transition in flight", domain.ErrTransitionInFlight, 409, "transition_in_flight", "Another sign-in or sign-out is still in progress"},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), 400, "bad_request", "invalid payload"},
		{"unexpected", errors.New("db exploded"), 500, "internal", "internal server error"},
	}

	h := NewHTTPErrorHandler(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/x", nil), rec)

			h(tt.err, c)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			var body handler.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Code != tt.code || body.Error != tt.msg {
				t.Fatalf("expected %s %q, got %s %q", tt.code, tt.msg, body.Code, body.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_CarriesFields(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/auth/register", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.NewValidationError("Please fill in all required fields", map[string]string{
		"email": "Please enter a valid email address",
	}), c)

	var body handler.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Fields["email"] != "Please enter a valid email address" {
		t.Fatalf("expected email field error, got %+v", body.Fields)
	}
}
