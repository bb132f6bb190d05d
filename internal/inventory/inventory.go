// Package inventory owns seat booked-state and the per-schedule
// available-seat counter. Every function works inside a caller-supplied
// transaction so that reservation, release and the counter move together.
package inventory

import (
	"context"
	"fmt"

	"github.com/Domenick1991/skyseat/internal/domain"
)

// SeatTx is the part of a storage transaction the inventory needs.
type SeatTx interface {
	LockSchedule(ctx context.Context, id int64) (*domain.Schedule, error)
	SetAvailableSeats(ctx context.Context, scheduleID int64, available int) error
	CountUnbookedSeats(ctx context.Context, scheduleID int64) (int, error)
	ListSeats(ctx context.Context, scheduleID int64) ([]domain.Seat, error)
	InsertSeats(ctx context.Context, seats []domain.Seat) error
	MarkSeatBooked(ctx context.Context, scheduleID, seatID int64) (*domain.Seat, error)
	MarkSeatReleased(ctx context.Context, seatID int64) error
}

// TryReserve books a seat of the schedule. It checks the seat row itself,
// never the cached counter.
func TryReserve(ctx context.Context, tx SeatTx, scheduleID, seatID int64) (*domain.Seat, error) {
	seat, err := tx.MarkSeatBooked(ctx, scheduleID, seatID)
	if err != nil {
		return nil, err
	}
	return seat, nil
}

// Release marks a seat unbooked. Releasing a free seat is a no-op.
func Release(ctx context.Context, tx SeatTx, seatID int64) error {
	if err := tx.MarkSeatReleased(ctx, seatID); err != nil {
		return fmt.Errorf("release seat %d: %w", seatID, err)
	}
	return nil
}

// RecomputeAvailable rewrites the schedule's counter from its seat rows and
// reports whether the stored value was different.
func RecomputeAvailable(ctx context.Context, tx SeatTx, scheduleID int64) (available int, changed bool, err error) {
	sched, err := tx.LockSchedule(ctx, scheduleID)
	if err != nil {
		return 0, false, err
	}
	available, err = tx.CountUnbookedSeats(ctx, scheduleID)
	if err != nil {
		return 0, false, err
	}
	if available == sched.AvailableSeats {
		return available, false, nil
	}
	if err := tx.SetAvailableSeats(ctx, scheduleID, available); err != nil {
		return 0, false, err
	}
	return available, true, nil
}

// AddSeats inserts seats after checking that no seat number repeats inside
// the batch or against the schedule's existing seats. The storage unique
// constraint still backs the check up against concurrent writers.
func AddSeats(ctx context.Context, tx SeatTx, seats []domain.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	existing := make(map[int64]map[string]struct{})
	for _, seat := range seats {
		if !seat.Class.Valid() {
			return fmt.Errorf("%w: seat %s has unknown class %q", domain.ErrInvalidInput, seat.SeatNumber, seat.Class)
		}
		if seat.SeatNumber == "" {
			return fmt.Errorf("%w: seat number is required", domain.ErrInvalidInput)
		}
		if seat.PriceCents < 0 {
			return fmt.Errorf("%w: seat %s has negative price", domain.ErrInvalidInput, seat.SeatNumber)
		}
		numbers, ok := existing[seat.ScheduleID]
		if !ok {
			stored, err := tx.ListSeats(ctx, seat.ScheduleID)
			if err != nil {
				return err
			}
			numbers = make(map[string]struct{}, len(stored))
			for _, s := range stored {
				numbers[s.SeatNumber] = struct{}{}
			}
			existing[seat.ScheduleID] = numbers
		}
		if _, dup := numbers[seat.SeatNumber]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateSeatNumber, seat.SeatNumber)
		}
		numbers[seat.SeatNumber] = struct{}{}
	}
	return tx.InsertSeats(ctx, seats)
}
