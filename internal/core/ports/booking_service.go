package ports

import (
	"context"

	"github.com/cbs/consultation-web/internal/core/domain"
)

// ListBookingsInput carries the dashboard's filter, sort and page state.
type ListBookingsInput struct {
	Status    string // "" or "all" = no filter
	Search    string // matches type (case-insensitive) or date
	SortField string // "date" (default) or "type"
	Ascending bool
	Page      int // 1-based
	Limit     int
	// Admin lists every user's bookings through the admin endpoint.
	Admin bool
}

// ListBookingsResult is one page of bookings.
type ListBookingsResult struct {
	Items      []domain.Booking
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// CreateBookingInput is the booking form.
type CreateBookingInput struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required"`
	Type string `json:"type" validate:"required"`
}

// BookingService wraps the backend booking endpoints.
type BookingService interface {
	List(ctx context.Context, in ListBookingsInput) (*ListBookingsResult, error)
	Create(ctx context.Context, in CreateBookingInput) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error)
	Cancel(ctx context.Context, id string) error
}
