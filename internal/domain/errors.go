package domain

import (
	"errors"
	"fmt"
)

var (
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrScheduleHasBookings  = errors.New("schedule has active bookings")
	ErrScheduleClosed       = errors.New("schedule is not open for booking")
	ErrInvalidScheduleTimes = errors.New("arrival time must be after departure time")

	ErrSeatNotFound        = errors.New("seat not found in schedule")
	ErrSeatUnavailable     = errors.New("seat is already booked")
	ErrSeatConflict        = errors.New("seat conflict")
	ErrDuplicateSeatNumber = errors.New("duplicate seat number")

	ErrBookingNotFound     = errors.New("booking not found")
	ErrAlreadyCancelled    = errors.New("booking is already cancelled")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrDuplicateBookingRef = errors.New("duplicate booking reference")

	ErrRouteNotFound    = errors.New("route not found")
	ErrAircraftNotFound = errors.New("aircraft not found")

	ErrInvalidInput = errors.New("invalid input")
)

// SeatConflictError names the seat that stopped a booking. It matches
// ErrSeatConflict as well as the underlying inventory error.
type SeatConflictError struct {
	SeatID int64
	Err    error
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat conflict on seat %d: %v", e.SeatID, e.Err)
}

func (e *SeatConflictError) Unwrap() error { return e.Err }

func (e *SeatConflictError) Is(target error) bool { return target == ErrSeatConflict }

// IsNotFound reports lookups that found nothing. A seat missing from the
// requested schedule during a booking is a conflict, not a lookup miss.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrSeatConflict) {
		return false
	}
	return errors.Is(err, ErrScheduleNotFound) ||
		errors.Is(err, ErrSeatNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrRouteNotFound) ||
		errors.Is(err, ErrAircraftNotFound)
}
