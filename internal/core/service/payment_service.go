package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
)

// PaymentConfig holds the consultation price and where checkout returns.
type PaymentConfig struct {
	Amount        float64
	Currency      string
	ReturnURLBase string
}

type paymentSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"payment_session_id"`
	Message   string `json:"message"`
}

type verifyPaymentResponse struct {
	Success *bool  `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

// PaymentService implements ports.PaymentService.
type PaymentService struct {
	api        ports.APIClient
	cfg        PaymentConfig
	log        zerolog.Logger
	newOrderID func() string
}

var _ ports.PaymentService = (*PaymentService)(nil)

func NewPaymentService(api ports.APIClient, cfg PaymentConfig, log zerolog.Logger) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &PaymentService{
		api:        api,
		cfg:        cfg,
		log:        log.With().Str("component", "payment_service").Logger(),
		newOrderID: func() string { return "ORDER_" + uuid.NewString() },
	}
}

// CreateSession opens a hosted-checkout session for a new order.
func (s *PaymentService) CreateSession(ctx context.Context, customer domain.Customer) (*domain.PaymentSession, error) {
	if customer.ID == "" {
		customer.ID = "GUEST_" + uuid.NewString()
	}

	order := domain.PaymentOrder{
		OrderID:  s.newOrderID(),
		Amount:   s.cfg.Amount,
		Currency: s.cfg.Currency,
		Customer: customer,
	}

	var resp paymentSessionResponse
	if err := s.api.Post(ctx, "/payment", order, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		msg := resp.Message
		if msg == "" {
			msg = "Failed to get payment session ID"
		}
		return nil, domain.Invalid("%s", msg)
	}

	s.log.Info().Str("order_id", order.OrderID).Msg("payment session created")
	return &domain.PaymentSession{
		OrderID:   order.OrderID,
		SessionID: resp.SessionID,
		ReturnURL: strings.TrimRight(s.cfg.ReturnURLBase, "/") + "/payment-status/" + order.OrderID,
	}, nil
}

// Verify asks the backend for the settled state of orderID. Only the
// backend's answer counts; a checkout callback is never proof of payment.
func (s *PaymentService) Verify(ctx context.Context, orderID string) (*domain.PaymentVerification, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.NewValidationError("Order id is required", map[string]string{"orderId": "orderId is required"})
	}

	var resp verifyPaymentResponse
	if err := s.api.Post(ctx, "/verify", map[string]string{"orderId": orderID}, &resp); err != nil {
		return nil, err
	}
	if resp.Success == nil {
		return nil, domain.Invalid("Invalid verification response format")
	}

	v := &domain.PaymentVerification{
		OrderID: orderID,
		Status:  resp.Status,
		Paid:    *resp.Success && resp.Status == domain.PaymentStatusPaid,
		Message: resp.Message,
	}
	if v.Message == "" {
		if v.Paid {
			v.Message = "Payment successful!"
		} else {
			v.Message = "Payment verification failed. Please try again."
		}
	}
	return v, nil
}
