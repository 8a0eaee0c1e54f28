package ports

import (
	"context"
	"time"
)

// CallOptions tunes a single backend call.
type CallOptions struct {
	Timeout time.Duration
	// Bearer overrides the credential loaded from the bound session store.
	Bearer string
}

// CallOption mutates CallOptions.
type CallOption func(*CallOptions)

// WithTimeout overrides the client's default per-call timeout.
func WithTimeout(d time.Duration) CallOption {
	return func(o *CallOptions) { o.Timeout = d }
}

// WithBearer sends token instead of the stored credential.
func WithBearer(token string) CallOption {
	return func(o *CallOptions) { o.Bearer = token }
}

// APIClient is the only path to the backend REST API. Responses are decoded
// into out when it is non-nil; failures are always *domain.APIError.
type APIClient interface {
	Get(ctx context.Context, path string, out any, opts ...CallOption) error
	Post(ctx context.Context, path string, body, out any, opts ...CallOption) error
	Patch(ctx context.Context, path string, body, out any, opts ...CallOption) error
	Delete(ctx context.Context, path string, out any, opts ...CallOption) error
}
