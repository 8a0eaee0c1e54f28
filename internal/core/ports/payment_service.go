package ports

import (
	"context"

	"github.com/cbs/consultation-web/internal/core/domain"
)

// PaymentService runs the two-phase checkout handshake: open a session on
// the backend, then ask the backend (never the checkout callback) whether
// the order was paid.
type PaymentService interface {
	CreateSession(ctx context.Context, customer domain.Customer) (*domain.PaymentSession, error)
	Verify(ctx context.Context, orderID string) (*domain.PaymentVerification, error)
}
