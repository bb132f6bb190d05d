package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/skyseat/internal/domain"
	"github.com/Domenick1991/skyseat/internal/inventory"
	"github.com/Domenick1991/skyseat/internal/kafka"
	"github.com/Domenick1991/skyseat/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	CancelBooking(ctx context.Context, input CancelBookingInput) (*domain.BookingCancellation, error)
	MarkRefunded(ctx context.Context, id int64) (*domain.Booking, error)
}

type Cache interface {
	InvalidateSchedule(ctx context.Context, id int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	store              repository.Store
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	logger             *zap.Logger
	now                func() time.Time
	newRef             func() string
	publishTimeout     time.Duration
	events             sync.WaitGroup
}

const (
	defaultPublishTimeout = 10 * time.Second
	// a fresh reference is drawn when the generated one is already taken
	maxRefAttempts = 3
)

type SeatRequest struct {
	SeatID      int64  `json:"seat_id"`
	PassengerID string `json:"passenger_id"`
}

type CreateBookingInput struct {
	UserID     string        `json:"user_id"`
	ScheduleID int64         `json:"schedule_id"`
	Seats      []SeatRequest `json:"seats"`
}

type CancelBookingInput struct {
	BookingID     int64  `json:"booking_id"`
	CancelledByID string `json:"cancelled_by_id"`
	Reason        string `json:"reason"`
}

type BookingServiceOption func(*BookingService)

// WithPublishTimeout bounds one background event publish, retries included.
func WithPublishTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

// NewBookingService wires the engine. cache and producer may be nil.
func NewBookingService(
	store repository.Store,
	cache Cache,
	producer Producer,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		store:        store,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		logger:         zap.NewNop(),
		now:            time.Now,
		publishTimeout: defaultPublishTimeout,
	}
	service.newRef = service.newBookingRef
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (in CreateBookingInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if in.ScheduleID <= 0 {
		return fmt.Errorf("%w: schedule id must be positive", domain.ErrInvalidInput)
	}
	if len(in.Seats) == 0 {
		return fmt.Errorf("%w: at least one seat is required", domain.ErrInvalidInput)
	}
	seen := make(map[int64]struct{}, len(in.Seats))
	for _, s := range in.Seats {
		if s.SeatID <= 0 {
			return fmt.Errorf("%w: seat id must be positive", domain.ErrInvalidInput)
		}
		if strings.TrimSpace(s.PassengerID) == "" {
			return fmt.Errorf("%w: passenger id is required for seat %d", domain.ErrInvalidInput, s.SeatID)
		}
		if _, dup := seen[s.SeatID]; dup {
			return fmt.Errorf("%w: seat %d requested twice", domain.ErrInvalidInput, s.SeatID)
		}
		seen[s.SeatID] = struct{}{}
	}
	return nil
}

// CreateBooking reserves every requested seat or none of them. Seats are
// reserved in ascending id order so that overlapping requests queue on the
// same row first instead of deadlocking.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	requests := slices.Clone(input.Seats)
	slices.SortFunc(requests, func(a, b SeatRequest) int {
		switch {
		case a.SeatID < b.SeatID:
			return -1
		case a.SeatID > b.SeatID:
			return 1
		default:
			return 0
		}
	})

	var (
		booking *domain.Booking
		err     error
	)
	for attempt := 1; attempt <= maxRefAttempts; attempt++ {
		booking, err = s.reserve(ctx, input, requests)
		if !errors.Is(err, domain.ErrDuplicateBookingRef) {
			break
		}
		s.logger.Warn("booking reference collision", zap.Int("attempt", attempt), zap.Error(err))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.String("booking_ref", booking.BookingRef),
		zap.Int64("schedule_id", booking.ScheduleID),
		zap.Int("seats", len(booking.Items)),
		zap.Int64("total_cents", booking.TotalAmountCents),
	)
	s.invalidate(ctx, booking.ScheduleID)
	s.publish(ctx, kafka.NewBookingEvent(kafka.EventBookingCreated, booking, "", s.now()))
	return booking, nil
}

// reserve runs one booking transaction. Nothing it did survives an error.
func (s *BookingService) reserve(ctx context.Context, input CreateBookingInput, requests []SeatRequest) (*domain.Booking, error) {
	var booking *domain.Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		schedule, err := tx.GetSchedule(ctx, input.ScheduleID)
		if err != nil {
			return err
		}
		if !schedule.Status.Bookable() {
			return fmt.Errorf("%w: schedule %d is %s", domain.ErrScheduleClosed, schedule.ID, schedule.Status)
		}

		items := make([]domain.BookingItem, 0, len(requests))
		var total int64
		for _, req := range requests {
			seat, err := inventory.TryReserve(ctx, tx, input.ScheduleID, req.SeatID)
			if err != nil {
				if errors.Is(err, domain.ErrSeatUnavailable) || errors.Is(err, domain.ErrSeatNotFound) {
					return &domain.SeatConflictError{SeatID: req.SeatID, Err: err}
				}
				return err
			}
			items = append(items, domain.BookingItem{
				SeatID:              seat.ID,
				SeatNumber:          seat.SeatNumber,
				PassengerID:         req.PassengerID,
				PriceAtBookingCents: seat.PriceCents,
			})
			total += seat.PriceCents
		}

		booking = &domain.Booking{
			UserID:           input.UserID,
			ScheduleID:       input.ScheduleID,
			BookingRef:       s.newRef(),
			Status:           domain.BookingStatusConfirmed,
			TotalAmountCents: total,
			Items:            items,
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			return err
		}
		_, _, err = inventory.RecomputeAvailable(ctx, tx, input.ScheduleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: booking id must be positive", domain.ErrInvalidInput)
	}
	return s.store.GetBooking(ctx, id)
}

// CancelBooking releases every seat of the booking and records who
// cancelled it, the booking's user when no one else is named. A booking that
// is already cancelled or refunded is left as is.
func (s *BookingService) CancelBooking(ctx context.Context, input CancelBookingInput) (*domain.BookingCancellation, error) {
	if input.BookingID <= 0 {
		return nil, fmt.Errorf("%w: booking id must be positive", domain.ErrInvalidInput)
	}
	cancelledBy := strings.TrimSpace(input.CancelledByID)

	var (
		booking      *domain.Booking
		cancellation *domain.BookingCancellation
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		booking, err = tx.GetBookingForUpdate(ctx, input.BookingID)
		if err != nil {
			return err
		}
		if !booking.Status.CanTransitionTo(domain.BookingStatusCancelled) {
			return fmt.Errorf("%w: booking %d is %s", domain.ErrAlreadyCancelled, booking.ID, booking.Status)
		}

		if cancelledBy == "" {
			cancelledBy = booking.UserID
		}
		cancellation = &domain.BookingCancellation{
			BookingID:     booking.ID,
			CancelledByID: cancelledBy,
			Reason:        input.Reason,
			CancelledAt:   s.now(),
		}
		if err := tx.InsertCancellation(ctx, cancellation); err != nil {
			return err
		}
		for _, item := range booking.Items {
			if err := inventory.Release(ctx, tx, item.SeatID); err != nil {
				return err
			}
		}
		if err := tx.UpdateBookingStatus(ctx, booking.ID, domain.BookingStatusCancelled); err != nil {
			return err
		}
		booking.Status = domain.BookingStatusCancelled
		_, _, err = inventory.RecomputeAvailable(ctx, tx, booking.ScheduleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.String("cancelled_by", cancellation.CancelledByID),
		zap.Int("released_seats", len(booking.Items)),
	)
	s.invalidate(ctx, booking.ScheduleID)
	s.publish(ctx, kafka.NewBookingEvent(kafka.EventBookingCancelled, booking, cancellation.Reason, cancellation.CancelledAt))
	return cancellation, nil
}

// MarkRefunded closes a cancelled booking. Seats were already released on
// cancellation and are not touched.
func (s *BookingService) MarkRefunded(ctx context.Context, id int64) (*domain.Booking, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: booking id must be positive", domain.ErrInvalidInput)
	}

	var booking *domain.Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		booking, err = tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if booking.Status != domain.BookingStatusCancelled {
			return fmt.Errorf("%w: booking %d is %s, refund needs %s",
				domain.ErrInvalidTransition, booking.ID, booking.Status, domain.BookingStatusCancelled)
		}
		if err := tx.UpdateBookingStatus(ctx, id, domain.BookingStatusRefunded); err != nil {
			return err
		}
		booking.Status = domain.BookingStatusRefunded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking refunded", zap.Int64("booking_id", booking.ID))
	s.publish(ctx, kafka.NewBookingEvent(kafka.EventBookingRefunded, booking, "", s.now()))
	return booking, nil
}

// newBookingRef builds "BK" + UTC yyyymmddhhmmss + 8 uppercase hex chars.
func (s *BookingService) newBookingRef() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "BK" + s.now().UTC().Format("20060102150405") + strings.ToUpper(suffix)
}

func (s *BookingService) invalidate(ctx context.Context, scheduleID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSchedule(ctx, scheduleID); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.Int64("schedule_id", scheduleID), zap.Error(err))
	}
}

// publish hands the event to the broker in the background: the booking is
// committed regardless of the broker and the caller does not wait for it.
func (s *BookingService) publish(ctx context.Context, event kafka.BookingEvent) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	s.events.Add(1)
	go func() {
		defer s.events.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
		defer cancel()

		if err := s.producer.Publish(ctx, s.bookingTopic, event.Key(), event); err != nil {
			s.logger.Warn("failed to publish event", zap.String("type", event.Type), zap.Int64("booking_id", event.BookingID), zap.Error(err))
			return
		}
		if s.notificationsTopic != "" {
			if err := s.producer.Publish(ctx, s.notificationsTopic, event.Key(), event); err != nil {
				s.logger.Warn("failed to publish notification", zap.String("type", event.Type), zap.Int64("booking_id", event.BookingID), zap.Error(err))
			}
		}
	}()
}

// Wait blocks until every event handed to the broker so far is published or
// has failed. Call it before closing the producer.
func (s *BookingService) Wait() {
	s.events.Wait()
}

var _ BookingUseCase = (*BookingService)(nil)
