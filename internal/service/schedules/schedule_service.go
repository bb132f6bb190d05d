package schedules

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/skyseat/internal/domain"
	"github.com/Domenick1991/skyseat/internal/inventory"
	"github.com/Domenick1991/skyseat/internal/kafka"
	"github.com/Domenick1991/skyseat/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type ScheduleUseCase interface {
	CreateSchedule(ctx context.Context, input CreateScheduleInput) (*domain.Schedule, error)
	GetByID(ctx context.Context, id int64) (*domain.Schedule, error)
	ListSeats(ctx context.Context, scheduleID int64) ([]domain.Seat, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ScheduleStatus) (*domain.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error
	AddSeat(ctx context.Context, input AddSeatInput) (*domain.Seat, error)
	UpdateSeat(ctx context.Context, input UpdateSeatInput) (*domain.Seat, error)
	ReconcileAvailability(ctx context.Context) (int, error)
}

type ScheduleCache interface {
	GetSchedule(ctx context.Context, id int64) (*domain.Schedule, error)
	SetSchedule(ctx context.Context, schedule *domain.Schedule) error
	InvalidateSchedule(ctx context.Context, id int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type ScheduleService struct {
	store    repository.Store
	cache    ScheduleCache
	producer Producer
	topic    string
	logger   *zap.Logger
	now      func() time.Time
	loads    singleflight.Group
	events   sync.WaitGroup
}

const (
	// loadTimeout bounds a coalesced store read, which no single caller owns.
	loadTimeout    = 5 * time.Second
	publishTimeout = 10 * time.Second
)

type ScheduleServiceOption func(*ScheduleService)

// WithEvents publishes schedule_created and schedule_updated to topic.
func WithEvents(producer Producer, topic string) ScheduleServiceOption {
	return func(s *ScheduleService) {
		s.producer = producer
		s.topic = topic
	}
}

func WithLogger(logger *zap.Logger) ScheduleServiceOption {
	return func(s *ScheduleService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewScheduleService(store repository.Store, cache ScheduleCache, opts ...ScheduleServiceOption) *ScheduleService {
	s := &ScheduleService{
		store:  store,
		cache:  cache,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateScheduleInput struct {
	RouteID       int64     `json:"route_id"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
}

type AddSeatInput struct {
	ScheduleID int64            `json:"schedule_id"`
	SeatNumber string           `json:"seat_number"`
	Class      domain.SeatClass `json:"class"`
	PriceCents int64            `json:"price_cents"`
}

// UpdateSeatInput changes only the fields that are set.
type UpdateSeatInput struct {
	SeatID     int64             `json:"seat_id"`
	SeatNumber *string           `json:"seat_number,omitempty"`
	Class      *domain.SeatClass `json:"class,omitempty"`
	PriceCents *int64            `json:"price_cents,omitempty"`
}

// CreateSchedule stores the schedule and its generated seat pool in one
// transaction. A route without an aircraft gets an empty pool.
func (s *ScheduleService) CreateSchedule(ctx context.Context, input CreateScheduleInput) (*domain.Schedule, error) {
	if input.RouteID <= 0 {
		return nil, fmt.Errorf("%w: route id must be positive", domain.ErrInvalidInput)
	}
	if input.DepartureTime.IsZero() || input.ArrivalTime.IsZero() {
		return nil, fmt.Errorf("%w: departure and arrival times are required", domain.ErrInvalidInput)
	}
	if !input.ArrivalTime.After(input.DepartureTime) {
		return nil, domain.ErrInvalidScheduleTimes
	}

	schedule := &domain.Schedule{
		RouteID:       input.RouteID,
		DepartureTime: input.DepartureTime.UTC(),
		ArrivalTime:   input.ArrivalTime.UTC(),
		Status:        domain.ScheduleStatusScheduled,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		route, err := tx.GetRoute(ctx, input.RouteID)
		if err != nil {
			return err
		}
		var aircraft *domain.Aircraft
		if route.AircraftID != nil {
			if aircraft, err = tx.GetAircraft(ctx, *route.AircraftID); err != nil {
				return err
			}
		} else {
			s.logger.Warn("route has no aircraft, schedule gets no seats", zap.Int64("route_id", route.ID))
		}

		capacity := 0
		if aircraft != nil {
			capacity = aircraft.TotalSeats()
		}
		schedule.SeatCapacity = capacity
		schedule.AvailableSeats = capacity
		if err := tx.InsertSchedule(ctx, schedule); err != nil {
			return err
		}
		return inventory.AddSeats(ctx, tx, inventory.GeneratePool(schedule, route, aircraft))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule created",
		zap.Int64("schedule_id", schedule.ID),
		zap.Int64("route_id", schedule.RouteID),
		zap.Int("seats", schedule.SeatCapacity),
	)
	s.publish(ctx, kafka.NewScheduleEvent(kafka.EventScheduleCreated, schedule, s.now()))
	return schedule, nil
}

// GetByID reads through the cache. Cache failures fall back to the store.
// Concurrent misses for one schedule share a single store read; a caller
// that gives up does not cancel it for the others.
func (s *ScheduleService) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	if s.cache != nil {
		cached, err := s.cache.GetSchedule(ctx, id)
		if err != nil {
			s.logger.Warn("schedule cache read failed", zap.Int64("schedule_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	ch := s.loads.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.load(ctx, id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		schedule := *res.Val.(*domain.Schedule)
		return &schedule, nil
	}
}

// load reads the schedule and fills the cache. A write that committed
// between the read and the fill has already invalidated the key, so the
// row is read again and a stale fill is dropped.
func (s *ScheduleService) load(ctx context.Context, id int64) (*domain.Schedule, error) {
	schedule, err := s.store.GetSchedule(ctx, id)
	if err != nil || s.cache == nil {
		return schedule, err
	}
	if err := s.cache.SetSchedule(ctx, schedule); err != nil {
		s.logger.Warn("schedule cache write failed", zap.Int64("schedule_id", id), zap.Error(err))
		return schedule, nil
	}

	current, err := s.store.GetSchedule(ctx, id)
	switch {
	case errors.Is(err, domain.ErrScheduleNotFound):
		s.invalidate(ctx, id)
		return nil, err
	case err != nil:
		s.logger.Warn("schedule recheck failed", zap.Int64("schedule_id", id), zap.Error(err))
		s.invalidate(ctx, id)
	case !sameVersion(schedule, current):
		s.logger.Debug("dropping stale schedule cache entry", zap.Int64("schedule_id", id))
		s.invalidate(ctx, id)
		return current, nil
	}
	return schedule, nil
}

func sameVersion(a, b *domain.Schedule) bool {
	return a.AvailableSeats == b.AvailableSeats &&
		a.SeatCapacity == b.SeatCapacity &&
		a.Status == b.Status &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

func (s *ScheduleService) ListSeats(ctx context.Context, scheduleID int64) ([]domain.Seat, error) {
	if _, err := s.store.GetSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}
	return s.store.ListSeats(ctx, scheduleID)
}

func (s *ScheduleService) UpdateStatus(ctx context.Context, id int64, status domain.ScheduleStatus) (*domain.Schedule, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown schedule status %q", domain.ErrInvalidInput, status)
	}

	var schedule *domain.Schedule
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		schedule, err = tx.LockSchedule(ctx, id)
		if err != nil {
			return err
		}
		if !schedule.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: schedule %d cannot move from %s to %s", domain.ErrInvalidTransition, id, schedule.Status, status)
		}
		if err := tx.UpdateScheduleStatus(ctx, id, status); err != nil {
			return err
		}
		schedule.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule status changed", zap.Int64("schedule_id", id), zap.String("status", string(status)))
	s.invalidate(ctx, id)
	s.publish(ctx, kafka.NewScheduleEvent(kafka.EventScheduleUpdated, schedule, s.now()))
	return schedule, nil
}

// DeleteSchedule removes the schedule with its seats and past bookings.
// It refuses while a pending or confirmed booking still references it.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, id int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.LockScheduleForDelete(ctx, id); err != nil {
			return err
		}
		active, err := tx.CountActiveBookings(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: %d active", domain.ErrScheduleHasBookings, active)
		}
		return tx.DeleteSchedule(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("schedule deleted", zap.Int64("schedule_id", id))
	s.invalidate(ctx, id)
	return nil
}

func (s *ScheduleService) AddSeat(ctx context.Context, input AddSeatInput) (*domain.Seat, error) {
	input.SeatNumber = strings.TrimSpace(input.SeatNumber)
	seat := domain.Seat{
		ScheduleID: input.ScheduleID,
		SeatNumber: input.SeatNumber,
		Class:      input.Class,
		PriceCents: input.PriceCents,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetSchedule(ctx, input.ScheduleID); err != nil {
			return err
		}
		batch := []domain.Seat{seat}
		if err := inventory.AddSeats(ctx, tx, batch); err != nil {
			return err
		}
		seat = batch[0]
		return s.resize(ctx, tx, input.ScheduleID)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, input.ScheduleID)
	return &seat, nil
}

// UpdateSeat edits a seat that nobody holds. Booked seats are frozen.
func (s *ScheduleService) UpdateSeat(ctx context.Context, input UpdateSeatInput) (*domain.Seat, error) {
	var seat *domain.Seat
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		seat, err = tx.GetSeat(ctx, input.SeatID)
		if err != nil {
			return err
		}
		if seat.IsBooked {
			return fmt.Errorf("%w: seat %s is booked", domain.ErrSeatUnavailable, seat.SeatNumber)
		}
		if input.SeatNumber != nil {
			seat.SeatNumber = strings.TrimSpace(*input.SeatNumber)
		}
		if input.Class != nil {
			seat.Class = *input.Class
		}
		if input.PriceCents != nil {
			seat.PriceCents = *input.PriceCents
		}
		switch {
		case seat.SeatNumber == "":
			return fmt.Errorf("%w: seat number is required", domain.ErrInvalidInput)
		case !seat.Class.Valid():
			return fmt.Errorf("%w: unknown seat class %q", domain.ErrInvalidInput, seat.Class)
		case seat.PriceCents < 0:
			return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
		}
		if err := tx.UpdateSeat(ctx, seat); err != nil {
			return err
		}
		_, _, err = inventory.RecomputeAvailable(ctx, tx, seat.ScheduleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, seat.ScheduleID)
	return seat, nil
}

// ReconcileAvailability recomputes every schedule's counter from its seats
// and returns how many counters had drifted.
func (s *ScheduleService) ReconcileAvailability(ctx context.Context) (int, error) {
	ids, err := s.store.ListScheduleIDs(ctx)
	if err != nil {
		return 0, err
	}
	corrected := 0
	for _, id := range ids {
		var (
			available int
			changed   bool
		)
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			var err error
			available, changed, err = inventory.RecomputeAvailable(ctx, tx, id)
			return err
		})
		if errors.Is(err, domain.ErrScheduleNotFound) {
			continue
		}
		if err != nil {
			return corrected, fmt.Errorf("reconcile schedule %d: %w", id, err)
		}
		if changed {
			corrected++
			s.logger.Warn("available seat counter corrected", zap.Int64("schedule_id", id), zap.Int("available", available))
			s.invalidate(ctx, id)
		}
	}
	return corrected, nil
}

func (s *ScheduleService) resize(ctx context.Context, tx repository.Tx, scheduleID int64) error {
	seats, err := tx.ListSeats(ctx, scheduleID)
	if err != nil {
		return err
	}
	if _, err := tx.LockSchedule(ctx, scheduleID); err != nil {
		return err
	}
	if err := tx.SetScheduleCapacity(ctx, scheduleID, len(seats)); err != nil {
		return err
	}
	_, _, err = inventory.RecomputeAvailable(ctx, tx, scheduleID)
	return err
}

func (s *ScheduleService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSchedule(ctx, id); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.Int64("schedule_id", id), zap.Error(err))
	}
}

// publish sends the event in the background; the caller never waits on the broker.
func (s *ScheduleService) publish(ctx context.Context, event kafka.BookingEvent) {
	if s.producer == nil || s.topic == "" {
		return
	}
	s.events.Add(1)
	go func() {
		defer s.events.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := s.producer.Publish(ctx, s.topic, event.Key(), event); err != nil {
			s.logger.Warn("failed to publish event", zap.String("type", event.Type), zap.Int64("schedule_id", event.ScheduleID), zap.Error(err))
		}
	}()
}

// Wait blocks until background event publishes have finished.
func (s *ScheduleService) Wait() {
	s.events.Wait()
}

var _ ScheduleUseCase = (*ScheduleService)(nil)
