package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cbs/consultation-web/internal/api/metrics"
	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
)

// PaymentServiceFactory binds a payment service to the browser's API client.
type PaymentServiceFactory func(api ports.APIClient) ports.PaymentService

type PaymentHandler struct {
	payments PaymentServiceFactory
}

func NewPaymentHandler(payments PaymentServiceFactory) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type paymentSessionRequest struct {
	Phone string `json:"phone,omitempty"`
}

// CreateSession opens a hosted-checkout session for the signed-in user.
//
// @Summary      Open a payment session
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        body  body      paymentSessionRequest  false  "Contact overrides"
// @Success      201   {object}  domain.PaymentSession
// @Failure      401   {object}  ErrorResponse
// @Failure      502   {object}  ErrorResponse
// @Router       /api/payments/session [post]
func (h *PaymentHandler) CreateSession(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req paymentSessionRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
	}

	var customer domain.Customer
	if u := ws.Auth.User(); u != nil {
		customer = domain.Customer{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
	}
	if p := strings.TrimSpace(req.Phone); p != "" {
		customer.Phone = p
	}

	sess, err := h.payments(ws.API).CreateSession(c.Request().Context(), customer)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

// Verify asks the backend whether the order was paid. The checkout
// provider's redirect is never taken as proof.
//
// @Summary      Verify a payment
// @Tags         payments
// @Produce      json
// @Param        orderId  path      string  true  "Order id"
// @Success      200      {object}  domain.PaymentVerification
// @Failure      502      {object}  ErrorResponse
// @Router       /api/payments/{orderId}/verify [post]
func (h *PaymentHandler) Verify(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	v, err := verifyPayment(c, h.payments(ws.API), c.Param("orderId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func verifyPayment(c echo.Context, svc ports.PaymentService, orderID string) (*domain.PaymentVerification, error) {
	v, err := svc.Verify(c.Request().Context(), orderID)
	result := "error"
	switch {
	case err != nil:
	case v.Paid:
		result = "paid"
	default:
		result = "unpaid"
	}
	metrics.PaymentVerificationsTotal.WithLabelValues(result).Inc()
	return v, err
}
