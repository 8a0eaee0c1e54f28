// Package apiclient is the single HTTP boundary to the booking backend.
//
// Every call carries the bound browser context's bearer credential, runs under
// a timeout, and fails with a *domain.APIError whose Kind is one of the
// domain classification sentinels. A 401 clears the bound session store before
// the error is returned, so nothing downstream can observe a stale login.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cbs/consultation-web/internal/api/metrics"
	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
	"github.com/cbs/consultation-web/internal/pkg/requestid"
	"github.com/cbs/consultation-web/pkg/logger"
)

const (
	// DefaultTimeout applies when neither the config nor the call sets one.
	DefaultTimeout = 15 * time.Second

	maxBodyBytes = 1 << 20
	clearTimeout = 2 * time.Second
)

// Config holds the backend location and client-side limits.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps outbound requests per second; zero disables the limiter.
	RateLimit float64
	RateBurst int
}

// Client implements ports.APIClient. The zero binding has no credential;
// use Bind to attach a browser context.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger

	store          ports.SessionStore
	onUnauthorized func(ctx context.Context)
}

var _ ports.APIClient = (*Client)(nil)

// New creates an unbound Client. If httpClient is nil, a client without its
// own timeout is used (the per-call context deadline governs).
func New(cfg Config, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: limiter,
		log:     log.With().Str("component", "apiclient").Logger(),
	}
}

// Bind returns a copy of c attached to one browser context: the credential is
// read from store, and on a 401 the store is cleared and onUnauthorized runs.
func (c *Client) Bind(store ports.SessionStore, onUnauthorized func(ctx context.Context)) *Client {
	bound := *c
	bound.store = store
	bound.onUnauthorized = onUnauthorized
	return &bound
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...ports.CallOption) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opts)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...ports.CallOption) error {
	return c.do(ctx, http.MethodPost, path, body, out, opts)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...ports.CallOption) error {
	return c.do(ctx, http.MethodPatch, path, body, out, opts)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...ports.CallOption) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, opts)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, opts []ports.CallOption) error {
	o := ports.CallOptions{Timeout: c.cfg.Timeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	start := time.Now()
	status, err := c.roundTrip(callCtx, method, path, body, out, o)
	metrics.ObserveBackendCall(method, outcome(err), time.Since(start))

	log := logger.WithRequest(ctx, c.log)
	if err != nil {
		ev := log.Debug()
		if ae := domain.AsAPIError(err); ae != nil && ae.Kind != domain.ErrUnauthorized {
			ev = log.Warn()
		}
		ev.Err(err).Str("method", method).Str("path", path).Int("status", status).Msg("backend call failed")
		return err
	}

	log.Debug().Str("method", method).Str("path", path).Int("status", status).
		Dur("elapsed", time.Since(start)).Msg("backend call")
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any, o ports.CallOptions) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, &domain.APIError{Kind: domain.ErrServerError, Message: "encode request body", Err: err}
		}
		reader = bytes.NewReader(buf)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, transportError(ctx, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, &domain.APIError{Kind: domain.ErrServerError, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.credential(ctx, o); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id, ok := requestid.From(ctx); ok {
		req.Header.Set(requestid.Header, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, transportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := classifyStatus(resp.StatusCode, raw)
		if apiErr.Kind == domain.ErrUnauthorized {
			c.invalidate(ctx)
		}
		return resp.StatusCode, apiErr
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if err := decode(resp.Header.Get("Content-Type"), raw, out); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

func (c *Client) credential(ctx context.Context, o ports.CallOptions) string {
	if o.Bearer != "" {
		return o.Bearer
	}
	if c.store == nil {
		return ""
	}
	sess, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("load session for credential")
		return ""
	}
	if sess == nil {
		return ""
	}
	return sess.Token
}

// invalidate clears the bound store and notifies the owner. It runs on a
// context detached from the call deadline so an expiring call cannot leave the
// store half-cleared.
func (c *Client) invalidate(ctx context.Context) {
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()

	if c.store != nil {
		if err := c.store.Clear(clearCtx); err != nil {
			c.log.Error().Err(err).Msg("clear session after 401")
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(clearCtx)
	}
}

func decode(contentType string, raw []byte, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.Invalid("empty response body")
	}
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "json") {
		return domain.Invalid("unexpected content type %q", contentType)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.APIError{
			Kind:    domain.ErrInvalidServerResponse,
			Message: "Invalid JSON response from server",
			Err:     err,
		}
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if ae := domain.AsAPIError(err); ae != nil {
		return kindLabel(ae.Kind)
	}
	return "error"
}

func kindLabel(kind error) string {
	switch kind {
	case domain.ErrUnreachable:
		return "unreachable"
	case domain.ErrUnauthorized:
		return "unauthorized"
	case domain.ErrForbidden:
		return "forbidden"
	case domain.ErrNotFound:
		return "not_found"
	case domain.ErrValidationFailed:
		return "validation_failed"
	case domain.ErrRateLimited:
		return "rate_limited"
	case domain.ErrInvalidServerResponse:
		return "invalid_response"
	default:
		return "server_error"
	}
}

// String helps when logging the configured backend.
func (c Config) String() string {
	return fmt.Sprintf("%s (timeout %s)", c.BaseURL, c.Timeout)
}
