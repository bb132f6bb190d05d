package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusRefunded  BookingStatus = "REFUNDED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusRefunded:
		return true
	default:
		return false
	}
}

// Active reports whether the booking still holds its seats.
func (s BookingStatus) Active() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed:
		return true
	default:
		return false
	}
}

// CanTransitionTo encodes PENDING -> CONFIRMED -> CANCELLED -> REFUNDED.
// Nothing ever moves back out of CANCELLED or REFUNDED.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCancelled
	case BookingStatusCancelled:
		return next == BookingStatusRefunded
	case BookingStatusRefunded:
		return false
	default:
		return false
	}
}

func ParseBookingStatus(v string) (BookingStatus, error) {
	s := BookingStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown booking status %q", ErrInvalidInput, v)
	}
	return s, nil
}

type Booking struct {
	ID               int64
	UserID           string
	ScheduleID       int64
	BookingRef       string
	Status           BookingStatus
	TotalAmountCents int64
	Items            []BookingItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ItemsTotal sums the fare snapshots of all line items.
func (b *Booking) ItemsTotal() int64 {
	var total int64
	for _, item := range b.Items {
		total += item.PriceAtBookingCents
	}
	return total
}

func (b *Booking) SeatIDs() []int64 {
	ids := make([]int64, 0, len(b.Items))
	for _, item := range b.Items {
		ids = append(ids, item.SeatID)
	}
	return ids
}

type BookingItem struct {
	ID                  int64
	BookingID           int64
	SeatID              int64
	SeatNumber          string
	PassengerID         string
	PriceAtBookingCents int64
}

type BookingCancellation struct {
	ID            int64
	BookingID     int64
	CancelledByID string
	Reason        string
	CancelledAt   time.Time
}
