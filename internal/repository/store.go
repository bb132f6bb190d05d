package repository

import (
	"context"

	"github.com/Domenick1991/skyseat/internal/domain"
)

// Store is the persistence boundary. Every multi-row mutation runs inside
// WithinTx; when fn returns an error nothing it did is kept.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetSchedule(ctx context.Context, id int64) (*domain.Schedule, error)
	ListScheduleIDs(ctx context.Context) ([]int64, error)
	ListSeats(ctx context.Context, scheduleID int64) ([]domain.Seat, error)
	GetSeat(ctx context.Context, id int64) (*domain.Seat, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	Ping(ctx context.Context) error
}

// Tx is the set of operations available inside one transaction.
//
// Lock order is seats before schedule; callers that touch both must follow it.
type Tx interface {
	GetRoute(ctx context.Context, id int64) (*domain.Route, error)
	GetAircraft(ctx context.Context, id int64) (*domain.Aircraft, error)

	// GetSchedule reads a schedule and keeps it from being deleted until the tx ends.
	GetSchedule(ctx context.Context, id int64) (*domain.Schedule, error)
	// LockSchedule serialises writers of the schedule row (counter, status).
	LockSchedule(ctx context.Context, id int64) (*domain.Schedule, error)
	// LockScheduleForDelete excludes every other transaction touching the schedule.
	LockScheduleForDelete(ctx context.Context, id int64) (*domain.Schedule, error)
	InsertSchedule(ctx context.Context, schedule *domain.Schedule) error
	UpdateScheduleStatus(ctx context.Context, id int64, status domain.ScheduleStatus) error
	SetScheduleCapacity(ctx context.Context, id int64, capacity int) error
	SetAvailableSeats(ctx context.Context, scheduleID int64, available int) error
	DeleteSchedule(ctx context.Context, id int64) error
	CountActiveBookings(ctx context.Context, scheduleID int64) (int, error)

	ListSeats(ctx context.Context, scheduleID int64) ([]domain.Seat, error)
	GetSeat(ctx context.Context, id int64) (*domain.Seat, error)
	CountUnbookedSeats(ctx context.Context, scheduleID int64) (int, error)
	// InsertSeats assigns IDs; returns ErrDuplicateSeatNumber on a (schedule, number) clash.
	InsertSeats(ctx context.Context, seats []domain.Seat) error
	// UpdateSeat rewrites number, class and price of an unbooked seat.
	// ErrSeatUnavailable if the seat is booked.
	UpdateSeat(ctx context.Context, seat *domain.Seat) error
	// MarkSeatBooked flips is_booked false->true for a seat of the schedule.
	// ErrSeatUnavailable if it is already booked, ErrSeatNotFound if it is not in the schedule.
	MarkSeatBooked(ctx context.Context, scheduleID, seatID int64) (*domain.Seat, error)
	MarkSeatReleased(ctx context.Context, seatID int64) error

	// InsertBooking stores the booking and its items, assigning IDs to both.
	InsertBooking(ctx context.Context, booking *domain.Booking) error
	GetBookingForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error
	InsertCancellation(ctx context.Context, cancellation *domain.BookingCancellation) error
}
