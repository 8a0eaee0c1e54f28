package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
)

// DefaultPageSize is the dashboard page length.
const DefaultPageSize = 10

// bookingList accepts either a bare array or {"bookings": [...]}.
type bookingList []domain.Booking

func (l *bookingList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, (*[]domain.Booking)(l))
	}
	var env struct {
		Bookings []domain.Booking `json:"bookings"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	if env.Bookings == nil {
		return domain.Invalid("bookings response is missing the list")
	}
	*l = env.Bookings
	return nil
}

// bookingEnvelope accepts either a bare booking or {"booking": {...}}.
type bookingEnvelope struct {
	domain.Booking
}

func (e *bookingEnvelope) UnmarshalJSON(b []byte) error {
	var wrapped struct {
		Booking *domain.Booking `json:"booking"`
	}
	if err := json.Unmarshal(b, &wrapped); err == nil && wrapped.Booking != nil {
		e.Booking = *wrapped.Booking
		return nil
	}
	return json.Unmarshal(b, &e.Booking)
}

// BookingService implements ports.BookingService over the backend API.
type BookingService struct {
	api      ports.APIClient
	pageSize int
	log      zerolog.Logger
}

var _ ports.BookingService = (*BookingService)(nil)

func NewBookingService(api ports.APIClient, pageSize int, log zerolog.Logger) *BookingService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &BookingService{api: api, pageSize: pageSize, log: log.With().Str("component", "booking_service").Logger()}
}

func (s *BookingService) List(ctx context.Context, in ports.ListBookingsInput) (*ports.ListBookingsResult, error) {
	path := "/bookings"
	if in.Admin {
		path = "/admin/bookings"
	}

	var items bookingList
	if err := s.api.Get(ctx, path, &items); err != nil {
		return nil, err
	}
	if in.Limit <= 0 {
		in.Limit = s.pageSize
	}
	res := QueryBookings(items, in)
	return &res, nil
}

func (s *BookingService) Create(ctx context.Context, in ports.CreateBookingInput) (*domain.Booking, error) {
	var out bookingEnvelope
	if err := s.api.Post(ctx, "/bookings", in, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, domain.Invalid("booking response is missing the id")
	}
	if out.Status == "" {
		out.Status = domain.BookingUpcoming
	}
	return &out.Booking, nil
}

func (s *BookingService) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	if !domain.BookingUpcoming.CanTransitionTo(status) {
		return nil, domain.NewValidationError("Unsupported booking status", map[string]string{
			"status": "status must be Completed or Cancelled",
		})
	}

	var out bookingEnvelope
	body := map[string]string{"status": string(status)}
	if err := s.api.Patch(ctx, "/bookings/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = domain.ID(id)
	}
	if out.Status == "" {
		out.Status = status
	}
	return &out.Booking, nil
}

func (s *BookingService) Cancel(ctx context.Context, id string) error {
	return s.api.Delete(ctx, "/bookings/"+url.PathEscape(id), nil)
}

// QueryBookings filters, sorts and pages items. Status "all" or empty keeps
// every status; Search matches the type case-insensitively or the date.
func QueryBookings(items []domain.Booking, in ports.ListBookingsInput) ports.ListBookingsResult {
	search := strings.ToLower(strings.TrimSpace(in.Search))
	status := strings.TrimSpace(in.Status)

	filtered := make([]domain.Booking, 0, len(items))
	for _, b := range items {
		if status != "" && !strings.EqualFold(status, "all") && string(b.Status) != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(b.Type), search) && !strings.Contains(b.Date, search) {
			continue
		}
		filtered = append(filtered, b)
	}

	byType := in.SortField == "type"
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if byType {
			if in.Ascending {
				return strings.ToLower(a.Type) < strings.ToLower(b.Type)
			}
			return strings.ToLower(a.Type) > strings.ToLower(b.Type)
		}
		if in.Ascending {
			return a.Day().Before(b.Day())
		}
		return a.Day().After(b.Day())
	})

	limit := in.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	page := in.Page
	if page < 1 {
		page = 1
	}

	total := len(filtered)
	res := ports.ListBookingsResult{
		Items:      []domain.Booking{},
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
	start := (page - 1) * limit
	if start < total {
		end := min(start+limit, total)
		res.Items = filtered[start:end]
	}
	return res
}
