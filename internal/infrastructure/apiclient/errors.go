package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/cbs/consultation-web/internal/core/domain"
)

// errorBody is the permissive shape of a backend error payload. Field
// details arrive either as an object keyed by field or as a list.
type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
	Details json.RawMessage `json:"details"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func classifyStatus(status int, raw []byte) *domain.APIError {
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	fields := parseFields(body.Errors)
	if fields == nil {
		fields = parseFields(body.Details)
	}

	e := &domain.APIError{Status: status}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = domain.ErrUnauthorized
		e.Message = "Your session has expired. Please log in again."
	case status == http.StatusForbidden:
		e.Kind = domain.ErrForbidden
		e.Message = "You do not have permission to perform this action"
	case status == http.StatusNotFound:
		e.Kind = domain.ErrNotFound
		e.Message = "The requested resource was not found"
	case status == http.StatusUnprocessableEntity,
		status == http.StatusBadRequest && len(fields) > 0:
		e.Kind = domain.ErrValidationFailed
		e.Message = fallback(msg, "Validation failed")
		e.Fields = fields
	case status == http.StatusTooManyRequests:
		e.Kind = domain.ErrRateLimited
		e.Message = "Too many requests. Please try again later"
	default:
		e.Kind = domain.ErrServerError
		e.Message = fallback(msg, "An unexpected error occurred")
	}
	return e
}

func parseFields(raw json.RawMessage) map[string]string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var byName map[string]any
	if err := json.Unmarshal(raw, &byName); err == nil {
		out := make(map[string]string, len(byName))
		for k, v := range byName {
			switch m := v.(type) {
			case string:
				out[k] = m
			case []any:
				if len(m) > 0 {
					if s, ok := m[0].(string); ok {
						out[k] = s
					}
				}
			}
		}
		return nonEmpty(out)
	}

	var list []fieldError
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make(map[string]string, len(list))
		for _, fe := range list {
			if fe.Field != "" {
				out[fe.Field] = fe.Message
			}
		}
		return nonEmpty(out)
	}
	return nil
}

func transportError(ctx context.Context, err error) *domain.APIError {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	if timeout {
		return &domain.APIError{
			Kind:    domain.ErrUnreachable,
			Message: "Request timed out. Please try again.",
			Timeout: true,
			Err:     err,
		}
	}
	return &domain.APIError{
		Kind:    domain.ErrUnreachable,
		Message: "Network request failed. Please check your connection.",
		Err:     err,
	}
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func nonEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}
