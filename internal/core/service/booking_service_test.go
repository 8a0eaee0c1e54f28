package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
)

func sampleBookings() []domain.Booking {
	return []domain.Booking{
		{ID: "1", Date: "2024-03-20", Time: "10:00 AM", Type: "General Consultation", Status: domain.BookingCompleted},
		{ID: "2", Date: "2024-03-25", Time: "2:30 PM", Type: "Follow-up", Status: domain.BookingUpcoming},
		{ID: "3", Date: "2024-03-18", Time: "11:00 AM", Type: "Specialist Consultation", Status: domain.BookingCancelled},
		{ID: "4", Date: "2024-03-28", Time: "3:00 PM", Type: "General Consultation", Status: domain.BookingUpcoming},
		{ID: "5", Date: "2024-03-16", Time: "10:00 AM", Type: "Emergency", Status: domain.BookingCancelled},
	}
}

func ids(items []domain.Booking) []string {
	out := make([]string, len(items))
	for i, b := range items {
		out[i] = string(b.ID)
	}
	return out
}

func equalIDs(got []domain.Booking, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range want {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestQueryBookings_FilterAndSort(t *testing.T) {
	cases := []struct {
		name string
		in   ports.ListBookingsInput
		want []string
	}{
		{"all by date asc", ports.ListBookingsInput{Status: "all", Ascending: true}, []string{"5", "3", "1", "2", "4"}},
		{"all by date desc", ports.ListBookingsInput{}, []string{"4", "2", "1", "3", "5"}},
		{"status filter", ports.ListBookingsInput{Status: "Upcoming", Ascending: true}, []string{"2", "4"}},
		{"search type case-insensitive", ports.ListBookingsInput{Search: "GENERAL", Ascending: true}, []string{"1", "4"}},
		{"search date", ports.ListBookingsInput{Search: "2024-03-1", Ascending: true}, []string{"5", "3"}},
		{"sort by type asc", ports.ListBookingsInput{SortField: "type", Ascending: true}, []string{"5", "2", "1", "4", "3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := QueryBookings(sampleBookings(), tc.in)
			if !equalIDs(res.Items, tc.want...) {
				t.Fatalf("expected %v, got %v", tc.want, ids(res.Items))
			}
		})
	}
}

func TestQueryBookings_Pagination(t *testing.T) {
	var items []domain.Booking
	for i := 0; i < 23; i++ {
		items = append(items, domain.Booking{ID: domain.ID(string(rune('a' + i))), Date: "2024-01-01", Type: "General"})
	}

	res := QueryBookings(items, ports.ListBookingsInput{Page: 3})
	if res.Total != 23 || res.TotalPages != 3 || res.Limit != DefaultPageSize {
		t.Fatalf("unexpected page metadata %+v", res)
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 items on last page, got %d", len(res.Items))
	}

	res = QueryBookings(items, ports.ListBookingsInput{Page: 9})
	if len(res.Items) != 0 || res.Items == nil {
		t.Fatalf("expected empty non-nil page past the end, got %v", res.Items)
	}

	res = QueryBookings(nil, ports.ListBookingsInput{Page: 0})
	if res.Page != 1 || res.TotalPages != 0 {
		t.Fatalf("expected page 1 of 0, got %+v", res)
	}
}

func TestBookingService_List_AcceptsBothShapes(t *testing.T) {
	for name, body := range map[string]any{
		"array":    sampleBookings(),
		"envelope": map[string]any{"bookings": sampleBookings()},
	} {
		t.Run(name, func(t *testing.T) {
			api := &stubAPI{handle: func(method, path string, _ any) (any, error) {
				if path != "/bookings" {
					t.Fatalf("unexpected path %s", path)
				}
				return body, nil
			}}
			svc := NewBookingService(api, 0, zerolog.Nop())
			res, err := svc.List(context.Background(), ports.ListBookingsInput{})
			if err != nil {
				t.Fatalf("List returned error: %v", err)
			}
			if res.Total != 5 {
				t.Fatalf("expected 5 bookings, got %d", res.Total)
			}
		})
	}
}

func TestBookingService_List_AdminPath(t *testing.T) {
	api := &stubAPI{handle: func(string, string, any) (any, error) { return []domain.Booking{}, nil }}
	svc := NewBookingService(api, 0, zerolog.Nop())
	if _, err := svc.List(context.Background(), ports.ListBookingsInput{Admin: true}); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if api.lastCall().path != "/admin/bookings" {
		t.Fatalf("expected admin path, got %s", api.lastCall().path)
	}
}

func TestBookingService_List_NumericIDs(t *testing.T) {
	api := &stubAPI{handle: func(string, string, any) (any, error) {
		return []map[string]any{{"id": 7, "date": "2024-03-20", "time": "10:00 AM", "type": "Emergency", "status": "Upcoming"}}, nil
	}}
	svc := NewBookingService(api, 0, zerolog.Nop())
	res, err := svc.List(context.Background(), ports.ListBookingsInput{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if res.Items[0].ID != "7" {
		t.Fatalf("expected id 7, got %q", res.Items[0].ID)
	}
}

func TestBookingService_UpdateStatus(t *testing.T) {
	api := &stubAPI{handle: func(method, path string, body any) (any, error) {
		if method != "PATCH" || path != "/bookings/42" {
			t.Fatalf("unexpected call %s %s", method, path)
		}
		return map[string]any{"booking": map[string]any{"id": "42", "status": "Cancelled"}}, nil
	}}
	svc := NewBookingService(api, 0, zerolog.Nop())

	b, err := svc.UpdateStatus(context.Background(), "42", domain.BookingCancelled)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if b.Status != domain.BookingCancelled {
		t.Fatalf("expected Cancelled, got %s", b.Status)
	}

	if _, err := svc.UpdateStatus(context.Background(), "42", domain.BookingUpcoming); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for Upcoming, got %v", err)
	}
}

func TestBookingService_Create_RequiresID(t *testing.T) {
	api := &stubAPI{handle: func(string, string, any) (any, error) { return map[string]any{"date": "2024-03-20"}, nil }}
	svc := NewBookingService(api, 0, zerolog.Nop())

	_, err := svc.Create(context.Background(), ports.CreateBookingInput{Date: "2024-03-20", Time: "10:00 AM", Type: "General"})
	if !errors.Is(err, domain.ErrInvalidServerResponse) {
		t.Fatalf("expected ErrInvalidServerResponse, got %v", err)
	}
}
