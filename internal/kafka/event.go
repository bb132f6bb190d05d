package kafka

import (
	"strconv"
	"time"

	"github.com/Domenick1991/skyseat/internal/domain"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
	EventBookingRefunded  = "booking_refunded"
	EventScheduleCreated  = "schedule_created"
	EventScheduleUpdated  = "schedule_updated"
)

type BookingEvent struct {
	Type             string    `json:"type"`
	BookingID        int64     `json:"booking_id,omitempty"`
	BookingRef       string    `json:"booking_ref,omitempty"`
	ScheduleID       int64     `json:"schedule_id"`
	UserID           string    `json:"user_id,omitempty"`
	SeatIDs          []int64   `json:"seat_ids,omitempty"`
	TotalAmountCents int64     `json:"total_amount_cents,omitempty"`
	Status           string    `json:"status"`
	AvailableSeats   *int      `json:"available_seats,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Key partitions booking events by booking and schedule events by schedule.
func (e BookingEvent) Key() string {
	if e.BookingID != 0 {
		return "booking-" + strconv.FormatInt(e.BookingID, 10)
	}
	return "schedule-" + strconv.FormatInt(e.ScheduleID, 10)
}

func NewBookingEvent(eventType string, b *domain.Booking, reason string, at time.Time) BookingEvent {
	return BookingEvent{
		Type:             eventType,
		BookingID:        b.ID,
		BookingRef:       b.BookingRef,
		ScheduleID:       b.ScheduleID,
		UserID:           b.UserID,
		SeatIDs:          b.SeatIDs(),
		TotalAmountCents: b.TotalAmountCents,
		Status:           string(b.Status),
		Reason:           reason,
		OccurredAt:       at,
	}
}

func NewScheduleEvent(eventType string, s *domain.Schedule, at time.Time) BookingEvent {
	available := s.AvailableSeats
	return BookingEvent{
		Type:           eventType,
		ScheduleID:     s.ID,
		Status:         string(s.Status),
		AvailableSeats: &available,
		OccurredAt:     at,
	}
}
