package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/skyseat/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	seatNumberKey       = "seats_schedule_number_key"
	bookingRefKey       = "bookings_booking_ref_key"
	scheduleColumns     = `id, route_id, departure_time, arrival_time, seat_capacity, available_seats, status, created_at, updated_at`
	seatColumns         = `id, schedule_id, seat_number, class, price_cents, is_booked, version`
	bookingColumns      = `id, user_id, schedule_id, booking_ref, status, total_amount_cents, created_at, updated_at`
	bookingItemsByOwner = `SELECT bi.id, bi.booking_id, bi.seat_id, s.seat_number, bi.passenger_id, bi.price_at_booking_cents
		FROM booking_items bi JOIN seats s ON s.id = bi.seat_id
		WHERE bi.booking_id = $1 ORDER BY bi.id`
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PGStore) GetSchedule(ctx context.Context, id int64) (*domain.Schedule, error) {
	return getSchedule(ctx, s.db, `SELECT `+scheduleColumns+` FROM schedules WHERE id=$1`, id)
}

func (s *PGStore) ListScheduleIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM schedules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (s *PGStore) ListSeats(ctx context.Context, scheduleID int64) ([]domain.Seat, error) {
	return listSeats(ctx, s.db, scheduleID)
}

func (s *PGStore) GetSeat(ctx context.Context, id int64) (*domain.Seat, error) {
	return getSeat(ctx, s.db, id)
}

func (s *PGStore) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBooking(ctx, s.db, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	var r domain.Route
	err := t.tx.QueryRow(ctx, `SELECT id, origin, destination, base_fare_cents, aircraft_id FROM routes WHERE id=$1`, id).
		Scan(&r.ID, &r.Origin, &r.Destination, &r.BaseFareCents, &r.AircraftID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return &r, nil
}

func (t *pgTx) GetAircraft(ctx context.Context, id int64) (*domain.Aircraft, error) {
	var a domain.Aircraft
	err := t.tx.QueryRow(ctx, `SELECT id, model, economy_seats, business_seats, first_class_seats FROM aircraft WHERE id=$1`, id).
		Scan(&a.ID, &a.Model, &a.EconomySeats, &a.BusinessSeats, &a.FirstClassSeats)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAircraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aircraft: %w", err)
	}
	return &a, nil
}

// GetSchedule takes FOR KEY SHARE: it blocks deletion but not counter updates.
func (t *pgTx) GetSchedule(ctx context.Context, id int64) (*domain.Schedule, error) {
	return getSchedule(ctx, t.tx, `SELECT `+scheduleColumns+` FROM schedules WHERE id=$1 FOR KEY SHARE`, id)
}

func (t *pgTx) LockSchedule(ctx context.Context, id int64) (*domain.Schedule, error) {
	return getSchedule(ctx, t.tx, `SELECT `+scheduleColumns+` FROM schedules WHERE id=$1 FOR NO KEY UPDATE`, id)
}

func (t *pgTx) LockScheduleForDelete(ctx context.Context, id int64) (*domain.Schedule, error) {
	return getSchedule(ctx, t.tx, `SELECT `+scheduleColumns+` FROM schedules WHERE id=$1 FOR UPDATE`, id)
}

func (t *pgTx) InsertSchedule(ctx context.Context, s *domain.Schedule) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO schedules (route_id, departure_time, arrival_time, seat_capacity, available_seats, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		s.RouteID, s.DepartureTime, s.ArrivalTime, s.SeatCapacity, s.AvailableSeats, s.Status).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (t *pgTx) updateSchedule(ctx context.Context, query string, args ...any) error {
	cmd, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func (t *pgTx) UpdateScheduleStatus(ctx context.Context, id int64, status domain.ScheduleStatus) error {
	return t.updateSchedule(ctx, `UPDATE schedules SET status=$2, updated_at=now() WHERE id=$1`, id, status)
}

func (t *pgTx) SetScheduleCapacity(ctx context.Context, id int64, capacity int) error {
	return t.updateSchedule(ctx, `UPDATE schedules SET seat_capacity=$2, updated_at=now() WHERE id=$1`, id, capacity)
}

func (t *pgTx) SetAvailableSeats(ctx context.Context, scheduleID int64, available int) error {
	return t.updateSchedule(ctx, `UPDATE schedules SET available_seats=$2, updated_at=now() WHERE id=$1`, scheduleID, available)
}

func (t *pgTx) DeleteSchedule(ctx context.Context, id int64) error {
	return t.updateSchedule(ctx, `DELETE FROM schedules WHERE id=$1`, id)
}

func (t *pgTx) CountActiveBookings(ctx context.Context, scheduleID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE schedule_id=$1 AND status = ANY($2)`,
		scheduleID, []string{string(domain.BookingStatusPending), string(domain.BookingStatusConfirmed)}).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}

func (t *pgTx) ListSeats(ctx context.Context, scheduleID int64) ([]domain.Seat, error) {
	return listSeats(ctx, t.tx, scheduleID)
}

func (t *pgTx) GetSeat(ctx context.Context, id int64) (*domain.Seat, error) {
	return getSeat(ctx, t.tx, id)
}

func (t *pgTx) CountUnbookedSeats(ctx context.Context, scheduleID int64) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT count(*) FROM seats WHERE schedule_id=$1 AND NOT is_booked`, scheduleID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count seats: %w", err)
	}
	return n, nil
}

func (t *pgTx) InsertSeats(ctx context.Context, seats []domain.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, seat := range seats {
		batch.Queue(`INSERT INTO seats (schedule_id, seat_number, class, price_cents, is_booked)
			VALUES ($1, $2, $3, $4, $5) RETURNING id, version`,
			seat.ScheduleID, seat.SeatNumber, seat.Class, seat.PriceCents, seat.IsBooked)
	}
	br := t.tx.SendBatch(ctx, batch)
	for i := range seats {
		if err := br.QueryRow().Scan(&seats[i].ID, &seats[i].Version); err != nil {
			_ = br.Close()
			return seatWriteError(err, seats[i].SeatNumber)
		}
	}
	return br.Close()
}

func (t *pgTx) UpdateSeat(ctx context.Context, seat *domain.Seat) error {
	err := t.tx.QueryRow(ctx, `UPDATE seats SET seat_number=$2, class=$3, price_cents=$4, version=version+1
		WHERE id=$1 AND NOT is_booked RETURNING `+seatColumns,
		seat.ID, seat.SeatNumber, seat.Class, seat.PriceCents).
		Scan(&seat.ID, &seat.ScheduleID, &seat.SeatNumber, &seat.Class, &seat.PriceCents, &seat.IsBooked, &seat.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM seats WHERE id=$1)`, seat.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check seat existence: %w", err)
		}
		if !exists {
			return domain.ErrSeatNotFound
		}
		return domain.ErrSeatUnavailable
	}
	if err != nil {
		return seatWriteError(err, seat.SeatNumber)
	}
	return nil
}

// MarkSeatBooked is a compare-and-swap on is_booked. The row lock taken by
// the UPDATE makes a concurrent contender wait, re-check NOT is_booked after
// this transaction commits and match nothing.
func (t *pgTx) MarkSeatBooked(ctx context.Context, scheduleID, seatID int64) (*domain.Seat, error) {
	var seat domain.Seat
	err := t.tx.QueryRow(ctx, `UPDATE seats SET is_booked=TRUE, version=version+1
		WHERE id=$1 AND schedule_id=$2 AND NOT is_booked
		RETURNING `+seatColumns, seatID, scheduleID).
		Scan(&seat.ID, &seat.ScheduleID, &seat.SeatNumber, &seat.Class, &seat.PriceCents, &seat.IsBooked, &seat.Version)
	if err == nil {
		return &seat, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to reserve seat: %w", err)
	}

	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM seats WHERE id=$1 AND schedule_id=$2)`, seatID, scheduleID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check seat existence: %w", err)
	}
	if !exists {
		return nil, domain.ErrSeatNotFound
	}
	return nil, domain.ErrSeatUnavailable
}

func (t *pgTx) MarkSeatReleased(ctx context.Context, seatID int64) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE seats SET is_booked=FALSE, version=version+1 WHERE id=$1 AND is_booked`, seatID)
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM seats WHERE id=$1)`, seatID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check seat existence: %w", err)
		}
		if !exists {
			return domain.ErrSeatNotFound
		}
	}
	return nil
}

func (t *pgTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO bookings (user_id, schedule_id, booking_ref, status, total_amount_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		b.UserID, b.ScheduleID, b.BookingRef, b.Status, b.TotalAmountCents).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if isUniqueViolation(err, bookingRefKey) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateBookingRef, b.BookingRef)
	}
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range b.Items {
		batch.Queue(`INSERT INTO booking_items (booking_id, seat_id, passenger_id, price_at_booking_cents)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			b.ID, item.SeatID, item.PassengerID, item.PriceAtBookingCents)
	}
	br := t.tx.SendBatch(ctx, batch)
	for i := range b.Items {
		if err := br.QueryRow().Scan(&b.Items[i].ID); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to create booking item: %w", err)
		}
		b.Items[i].BookingID = b.ID
	}
	return br.Close()
}

func (t *pgTx) GetBookingForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBooking(ctx, t.tx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id)
}

func (t *pgTx) UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE bookings SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (t *pgTx) InsertCancellation(ctx context.Context, c *domain.BookingCancellation) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO booking_cancellations (booking_id, cancelled_by_id, reason)
		VALUES ($1, $2, $3) RETURNING id, cancelled_at`,
		c.BookingID, c.CancelledByID, c.Reason).
		Scan(&c.ID, &c.CancelledAt)
	if err != nil {
		return fmt.Errorf("failed to record cancellation: %w", err)
	}
	return nil
}

func getSchedule(ctx context.Context, q querier, query string, id int64) (*domain.Schedule, error) {
	var s domain.Schedule
	err := q.QueryRow(ctx, query, id).
		Scan(&s.ID, &s.RouteID, &s.DepartureTime, &s.ArrivalTime, &s.SeatCapacity, &s.AvailableSeats, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &s, nil
}

func getSeat(ctx context.Context, q querier, id int64) (*domain.Seat, error) {
	var seat domain.Seat
	err := q.QueryRow(ctx, `SELECT `+seatColumns+` FROM seats WHERE id=$1`, id).
		Scan(&seat.ID, &seat.ScheduleID, &seat.SeatNumber, &seat.Class, &seat.PriceCents, &seat.IsBooked, &seat.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSeatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seat: %w", err)
	}
	return &seat, nil
}

func listSeats(ctx context.Context, q querier, scheduleID int64) ([]domain.Seat, error) {
	rows, err := q.Query(ctx, `SELECT `+seatColumns+` FROM seats WHERE schedule_id=$1 ORDER BY id`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)
	for rows.Next() {
		var seat domain.Seat
		if err := rows.Scan(&seat.ID, &seat.ScheduleID, &seat.SeatNumber, &seat.Class, &seat.PriceCents, &seat.IsBooked, &seat.Version); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func getBooking(ctx context.Context, q querier, query string, id int64) (*domain.Booking, error) {
	var (
		b      domain.Booking
		status string
	)
	err := q.QueryRow(ctx, query, id).
		Scan(&b.ID, &b.UserID, &b.ScheduleID, &b.BookingRef, &status, &b.TotalAmountCents, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if b.Status, err = domain.ParseBookingStatus(status); err != nil {
		return nil, fmt.Errorf("booking %d: %w", b.ID, err)
	}

	rows, err := q.Query(ctx, bookingItemsByOwner, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.BookingItem
		if err := rows.Scan(&item.ID, &item.BookingID, &item.SeatID, &item.SeatNumber, &item.PassengerID, &item.PriceAtBookingCents); err != nil {
			return nil, err
		}
		b.Items = append(b.Items, item)
	}
	return &b, rows.Err()
}

func seatWriteError(err error, seatNumber string) error {
	if isUniqueViolation(err, seatNumberKey) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSeatNumber, seatNumber)
	}
	return fmt.Errorf("failed to write seat: %w", err)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

var (
	_ Store = (*PGStore)(nil)
	_ Tx    = (*pgTx)(nil)
	_ Tx    = (*memTx)(nil)
)
