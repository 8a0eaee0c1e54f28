// Package requestid carries the inbound request id through context so that
// outbound backend calls can be correlated with the request that caused them.
package requestid

import "context"

// Header is the correlation header used inbound and outbound.
const Header = "X-Request-ID"

type ctxKey struct{}

// With returns a child context carrying id.
func With(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the request id stored in ctx, if any.
func From(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
