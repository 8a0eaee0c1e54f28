package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// BookingStatus represents the lifecycle state of a consultation booking.
type BookingStatus string

const (
	BookingUpcoming  BookingStatus = "Upcoming"
	BookingCompleted BookingStatus = "Completed"
	BookingCancelled BookingStatus = "Cancelled"
)

// bookingTransitions defines which status changes the dashboard may request.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingUpcoming: {BookingCompleted, BookingCancelled},
}

// CanTransitionTo reports whether a booking in status s may move to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingUpcoming, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Booking is a consultation slot as returned by the backend.
type Booking struct {
	ID     ID            `json:"id"`
	UserID string        `json:"userId,omitempty"`
	Date   string        `json:"date"` // YYYY-MM-DD
	Time   string        `json:"time"`
	Type   string        `json:"type"`
	Status BookingStatus `json:"status"`
	Link   string        `json:"link,omitempty"`
}

// Day parses Date; the zero time is returned for malformed dates so they
// sort first.
func (b Booking) Day() time.Time {
	t, err := time.Parse("2006-01-02", b.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ID is a backend identifier that may arrive as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}
