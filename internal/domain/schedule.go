package domain

import (
	"fmt"
	"time"
)

type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "SCHEDULED"
	ScheduleStatusDelayed   ScheduleStatus = "DELAYED"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
	ScheduleStatusCompleted ScheduleStatus = "COMPLETED"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusDelayed, ScheduleStatusCancelled, ScheduleStatusCompleted:
		return true
	default:
		return false
	}
}

// Bookable reports whether new seats may be reserved on a schedule in this state.
func (s ScheduleStatus) Bookable() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusDelayed:
		return true
	default:
		return false
	}
}

// CanTransitionTo treats CANCELLED and COMPLETED as terminal.
func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	if !next.Valid() || s == next {
		return false
	}
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusDelayed:
		return true
	case ScheduleStatusCancelled, ScheduleStatusCompleted:
		return false
	default:
		return false
	}
}

func ParseScheduleStatus(v string) (ScheduleStatus, error) {
	s := ScheduleStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown schedule status %q", ErrInvalidInput, v)
	}
	return s, nil
}

type Schedule struct {
	ID             int64
	RouteID        int64
	DepartureTime  time.Time
	ArrivalTime    time.Time
	SeatCapacity   int
	AvailableSeats int
	Status         ScheduleStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
