package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
)

// BookingServiceFactory binds a booking service to the browser's API client.
type BookingServiceFactory func(api ports.APIClient) ports.BookingService

type BookingHandler struct {
	bookings BookingServiceFactory
}

func NewBookingHandler(bookings BookingServiceFactory) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type bookingListResponse struct {
	Bookings   []domain.Booking `json:"bookings"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

type bookingResponse struct {
	Booking *domain.Booking `json:"booking"`
}

type updateBookingRequest struct {
	Status domain.BookingStatus `json:"status" validate:"required,oneof=Completed Cancelled"`
}

// List returns one page of the user's bookings.
//
// @Summary      List bookings
// @Tags         bookings
// @Produce      json
// @Param        status  query     string  false  "Upcoming, Completed, Cancelled or all"
// @Param        search  query     string  false  "Matches type or date"
// @Param        sort    query     string  false  "date or type"
// @Param        order   query     string  false  "asc or desc"
// @Param        page    query     int     false  "1-based page"
// @Success      200     {object}  bookingListResponse
// @Failure      401     {object}  ErrorResponse
// @Failure      503     {object}  ErrorResponse
// @Router       /api/bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	return h.list(c, false)
}

// AdminList returns one page of every user's bookings.
//
// @Summary      List all bookings
// @Tags         admin
// @Produce      json
// @Param        status  query     string  false  "Upcoming, Completed, Cancelled or all"
// @Param        search  query     string  false  "Matches type or date"
// @Param        sort    query     string  false  "date or type"
// @Param        order   query     string  false  "asc or desc"
// @Param        page    query     int     false  "1-based page"
// @Success      200     {object}  bookingListResponse
// @Failure      403     {object}  ErrorResponse
// @Router       /api/admin/bookings [get]
func (h *BookingHandler) AdminList(c echo.Context) error {
	return h.list(c, true)
}

func (h *BookingHandler) list(c echo.Context, admin bool) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	res, err := h.bookings(ws.API).List(c.Request().Context(), listInput(c, admin))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newBookingList(res))
}

// Create books a consultation slot.
//
// @Summary      Create a booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        body  body      ports.CreateBookingInput  true  "Booking details"
// @Success      201   {object}  bookingResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Router       /api/bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req ports.CreateBookingInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	b, err := h.bookings(ws.API).Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, bookingResponse{Booking: b})
}

// UpdateStatus marks an upcoming booking completed or cancelled.
//
// @Summary      Update booking status
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Booking id"
// @Param        body  body      updateBookingRequest  true  "New status"
// @Success      200   {object}  bookingResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Router       /api/bookings/{id} [patch]
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req updateBookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	b, err := h.bookings(ws.API).UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookingResponse{Booking: b})
}

// Cancel deletes a booking.
//
// @Summary      Cancel a booking
// @Tags         bookings
// @Param        id   path  string  true  "Booking id"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /api/bookings/{id} [delete]
func (h *BookingHandler) Cancel(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	if err := h.bookings(ws.API).Cancel(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func newBookingList(res *ports.ListBookingsResult) bookingListResponse {
	return bookingListResponse{
		Bookings:   res.Items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	}
}

func listInput(c echo.Context, admin bool) ports.ListBookingsInput {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return ports.ListBookingsInput{
		Status:    c.QueryParam("status"),
		Search:    c.QueryParam("search"),
		SortField: c.QueryParam("sort"),
		Ascending: strings.EqualFold(c.QueryParam("order"), "asc"),
		Page:      page,
		Limit:     limit,
		Admin:     admin,
	}
}
