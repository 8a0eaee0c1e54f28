package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/guard"
)

// PageConfig holds what the page view models show besides live data.
type PageConfig struct {
	Routes            guard.Routes
	Amount            float64
	Currency          string
	ConsultationTypes []string
}

// PageHandler serves the JSON view model of each navigable page. Guards run
// before these handlers, so a protected page never renders for a signed-out
// browser.
type PageHandler struct {
	cfg      PageConfig
	bookings BookingServiceFactory
	payments PaymentServiceFactory
	now      func() time.Time
}

func NewPageHandler(cfg PageConfig, bookings BookingServiceFactory, payments PaymentServiceFactory) *PageHandler {
	if len(cfg.ConsultationTypes) == 0 {
		cfg.ConsultationTypes = []string{"General Consultation"}
	}
	return &PageHandler{cfg: cfg, bookings: bookings, payments: payments, now: time.Now}
}

type pageView struct {
	Page            string       `json:"page"`
	Title           string       `json:"title"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *domain.User `json:"user,omitempty"`
	Data            any          `json:"data,omitempty"`
}

type loginPage struct {
	CallbackURL string `json:"callbackUrl"`
}

type bookingFormPage struct {
	Types   []string `json:"types"`
	MinDate string   `json:"minDate"`
}

type paymentPage struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type paymentStatusPage struct {
	Status  string                      `json:"status"` // success | failed
	Message string                      `json:"message"`
	Details *domain.PaymentVerification `json:"details,omitempty"`
}

func (h *PageHandler) render(c echo.Context, page, title string, data any) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}
	ws.Auth.Initialize(c.Request().Context())
	return c.JSON(http.StatusOK, pageView{
		Page:            page,
		Title:           title,
		IsAuthenticated: ws.Auth.IsAuthenticated(),
		User:            ws.Auth.User(),
		Data:            data,
	})
}

// Home godoc
//
// @Summary      Landing page
// @Tags         pages
// @Produce      json
// @Success      200  {object}  pageView
// @Router       / [get]
func (h *PageHandler) Home(c echo.Context) error {
	return h.render(c, "home", "Consultation Booking", nil)
}

func (h *PageHandler) About(c echo.Context) error {
	return h.render(c, "about", "About", nil)
}

func (h *PageHandler) Contact(c echo.Context) error {
	return h.render(c, "contact", "Contact", nil)
}

// Login godoc
//
// @Summary      Login page
// @Tags         pages
// @Produce      json
// @Param        callbackUrl  query     string  false  "Where to return after login"
// @Success      200          {object}  pageView
// @Router       /login [get]
func (h *PageHandler) Login(c echo.Context) error {
	cb := guard.SafeCallback(c.QueryParam("callbackUrl"), h.cfg.Routes.Default)
	return h.render(c, "login", "Login", loginPage{CallbackURL: cb})
}

func (h *PageHandler) Register(c echo.Context) error {
	return h.render(c, "register", "Register", nil)
}

// Dashboard godoc
//
// @Summary      Dashboard with the first page of bookings
// @Tags         pages
// @Produce      json
// @Success      200  {object}  pageView
// @Failure      503  {object}  ErrorResponse
// @Router       /dashboard [get]
func (h *PageHandler) Dashboard(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}
	res, err := h.bookings(ws.API).List(c.Request().Context(), listInput(c, false))
	if err != nil {
		return err
	}
	return h.render(c, "dashboard", "Dashboard", newBookingList(res))
}

func (h *PageHandler) Profile(c echo.Context) error {
	return h.render(c, "profile", "Profile", nil)
}

func (h *PageHandler) Booking(c echo.Context) error {
	return h.render(c, "booking", "Book a Consultation", bookingFormPage{
		Types:   h.cfg.ConsultationTypes,
		MinDate: h.now().Format("2006-01-02"),
	})
}

func (h *PageHandler) Payment(c echo.Context) error {
	return h.render(c, "payment", "Payment", paymentPage{Amount: h.cfg.Amount, Currency: h.cfg.Currency})
}

// PaymentStatus verifies the order with the backend before reporting it.
//
// @Summary      Payment status page
// @Tags         pages
// @Produce      json
// @Param        orderId  path      string  true  "Order id"
// @Success      200      {object}  pageView
// @Router       /payment-status/{orderId} [get]
func (h *PageHandler) PaymentStatus(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	view := paymentStatusPage{Status: "failed"}
	v, err := verifyPayment(c, h.payments(ws.API), c.Param("orderId"))
	switch {
	case err != nil:
		view.Message = "Unable to verify payment. Please contact support if payment was deducted."
	case v.Paid:
		view.Status, view.Message, view.Details = "success", v.Message, v
	default:
		view.Message, view.Details = v.Message, v
	}
	return h.render(c, "payment-status", "Payment Status", view)
}

func (h *PageHandler) Admin(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}
	res, err := h.bookings(ws.API).List(c.Request().Context(), listInput(c, true))
	if err != nil {
		return err
	}
	return h.render(c, "admin", "Admin", newBookingList(res))
}
