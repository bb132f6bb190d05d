package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Domenick1991/skyseat/internal/domain"
)

// MemoryStore implements Store in process memory.
// This is useful for tests and for running the API without PostgreSQL.
// Transactions hold the store mutex for their whole duration and keep an
// undo log, so a failed transaction leaves no trace.
type MemoryStore struct {
	mu sync.Mutex

	routes        map[int64]domain.Route
	aircraft      map[int64]domain.Aircraft
	schedules     map[int64]domain.Schedule
	seats         map[int64]domain.Seat
	bookings      map[int64]domain.Booking
	bookingRefs   map[string]int64
	cancellations map[int64]domain.BookingCancellation

	nextID int64
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		routes:        make(map[int64]domain.Route),
		aircraft:      make(map[int64]domain.Aircraft),
		schedules:     make(map[int64]domain.Schedule),
		seats:         make(map[int64]domain.Seat),
		bookings:      make(map[int64]domain.Booking),
		bookingRefs:   make(map[string]int64),
		cancellations: make(map[int64]domain.BookingCancellation),
		now:           time.Now,
	}
}

// PutRoute seeds a route. Routes are owned by route administration.
func (s *MemoryStore) PutRoute(route domain.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route.ID] = route
}

// PutAircraft seeds an aircraft.
func (s *MemoryStore) PutAircraft(aircraft domain.Aircraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aircraft[aircraft.ID] = aircraft
}

// Cancellations returns the audit records written for a booking.
func (s *MemoryStore) Cancellations(bookingID int64) []domain.BookingCancellation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BookingCancellation
	for _, c := range s.cancellations {
		if c.BookingID == bookingID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.BookingCancellation) int { return compareID(a.ID, b.ID) })
	return out
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) GetSchedule(_ context.Context, id int64) (*domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSchedule(id)
}

func (s *MemoryStore) ListScheduleIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.schedules))
	for id := range s.schedules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) ListSeats(_ context.Context, scheduleID int64) ([]domain.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listSeats(scheduleID), nil
}

func (s *MemoryStore) GetSeat(_ context.Context, id int64) (*domain.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSeat(id)
}

func (s *MemoryStore) GetBooking(_ context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBooking(id)
}

func (s *MemoryStore) getSchedule(id int64) (*domain.Schedule, error) {
	sc, ok := s.schedules[id]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	return &sc, nil
}

func (s *MemoryStore) getSeat(id int64) (*domain.Seat, error) {
	seat, ok := s.seats[id]
	if !ok {
		return nil, domain.ErrSeatNotFound
	}
	return &seat, nil
}

func (s *MemoryStore) getBooking(id int64) (*domain.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	b.Items = slices.Clone(b.Items)
	return &b, nil
}

func (s *MemoryStore) listSeats(scheduleID int64) []domain.Seat {
	seats := make([]domain.Seat, 0)
	for _, seat := range s.seats {
		if seat.ScheduleID == scheduleID {
			seats = append(seats, seat)
		}
	}
	slices.SortFunc(seats, func(a, b domain.Seat) int { return compareID(a.ID, b.ID) })
	return seats
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func compareID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// memTx runs with store.mu held.
type memTx struct {
	store *MemoryStore
	undo  []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) GetRoute(_ context.Context, id int64) (*domain.Route, error) {
	r, ok := t.store.routes[id]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	return &r, nil
}

func (t *memTx) GetAircraft(_ context.Context, id int64) (*domain.Aircraft, error) {
	a, ok := t.store.aircraft[id]
	if !ok {
		return nil, domain.ErrAircraftNotFound
	}
	return &a, nil
}

func (t *memTx) GetSchedule(_ context.Context, id int64) (*domain.Schedule, error) {
	return t.store.getSchedule(id)
}

func (t *memTx) LockSchedule(_ context.Context, id int64) (*domain.Schedule, error) {
	return t.store.getSchedule(id)
}

func (t *memTx) LockScheduleForDelete(_ context.Context, id int64) (*domain.Schedule, error) {
	return t.store.getSchedule(id)
}

func (t *memTx) InsertSchedule(_ context.Context, schedule *domain.Schedule) error {
	now := t.store.now()
	schedule.ID = t.store.id()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	t.store.schedules[schedule.ID] = *schedule
	id := schedule.ID
	t.undo = append(t.undo, func() { delete(t.store.schedules, id) })
	return nil
}

func (t *memTx) updateSchedule(id int64, mutate func(*domain.Schedule)) error {
	prev, ok := t.store.schedules[id]
	if !ok {
		return domain.ErrScheduleNotFound
	}
	next := prev
	mutate(&next)
	next.UpdatedAt = t.store.now()
	t.store.schedules[id] = next
	t.undo = append(t.undo, func() { t.store.schedules[id] = prev })
	return nil
}

func (t *memTx) UpdateScheduleStatus(_ context.Context, id int64, status domain.ScheduleStatus) error {
	return t.updateSchedule(id, func(s *domain.Schedule) { s.Status = status })
}

func (t *memTx) SetScheduleCapacity(_ context.Context, id int64, capacity int) error {
	return t.updateSchedule(id, func(s *domain.Schedule) { s.SeatCapacity = capacity })
}

func (t *memTx) SetAvailableSeats(_ context.Context, scheduleID int64, available int) error {
	return t.updateSchedule(scheduleID, func(s *domain.Schedule) { s.AvailableSeats = available })
}

func (t *memTx) DeleteSchedule(_ context.Context, id int64) error {
	st := t.store
	sched, ok := st.schedules[id]
	if !ok {
		return domain.ErrScheduleNotFound
	}
	delete(st.schedules, id)
	t.undo = append(t.undo, func() { st.schedules[id] = sched })

	for seatID, seat := range st.seats {
		if seat.ScheduleID == id {
			delete(st.seats, seatID)
			t.undo = append(t.undo, func() { st.seats[seatID] = seat })
		}
	}
	for bookingID, b := range st.bookings {
		if b.ScheduleID != id {
			continue
		}
		delete(st.bookings, bookingID)
		delete(st.bookingRefs, b.BookingRef)
		t.undo = append(t.undo, func() {
			st.bookings[bookingID] = b
			st.bookingRefs[b.BookingRef] = bookingID
		})
		for cid, c := range st.cancellations {
			if c.BookingID == bookingID {
				delete(st.cancellations, cid)
				t.undo = append(t.undo, func() { st.cancellations[cid] = c })
			}
		}
	}
	return nil
}

func (t *memTx) CountActiveBookings(_ context.Context, scheduleID int64) (int, error) {
	n := 0
	for _, b := range t.store.bookings {
		if b.ScheduleID == scheduleID && b.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ListSeats(_ context.Context, scheduleID int64) ([]domain.Seat, error) {
	return t.store.listSeats(scheduleID), nil
}

func (t *memTx) GetSeat(_ context.Context, id int64) (*domain.Seat, error) {
	return t.store.getSeat(id)
}

func (t *memTx) CountUnbookedSeats(_ context.Context, scheduleID int64) (int, error) {
	n := 0
	for _, seat := range t.store.seats {
		if seat.ScheduleID == scheduleID && !seat.IsBooked {
			n++
		}
	}
	return n, nil
}

func (t *memTx) seatNumberTaken(scheduleID int64, number string, exceptID int64) bool {
	for _, seat := range t.store.seats {
		if seat.ScheduleID == scheduleID && seat.SeatNumber == number && seat.ID != exceptID {
			return true
		}
	}
	return false
}

func (t *memTx) InsertSeats(_ context.Context, seats []domain.Seat) error {
	st := t.store
	for i := range seats {
		if _, ok := st.schedules[seats[i].ScheduleID]; !ok {
			return domain.ErrScheduleNotFound
		}
		if t.seatNumberTaken(seats[i].ScheduleID, seats[i].SeatNumber, 0) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateSeatNumber, seats[i].SeatNumber)
		}
		seats[i].ID = st.id()
		st.seats[seats[i].ID] = seats[i]
		id := seats[i].ID
		t.undo = append(t.undo, func() { delete(st.seats, id) })
	}
	return nil
}

func (t *memTx) UpdateSeat(_ context.Context, seat *domain.Seat) error {
	st := t.store
	prev, ok := st.seats[seat.ID]
	if !ok {
		return domain.ErrSeatNotFound
	}
	if prev.IsBooked {
		return domain.ErrSeatUnavailable
	}
	if t.seatNumberTaken(prev.ScheduleID, seat.SeatNumber, seat.ID) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSeatNumber, seat.SeatNumber)
	}
	next := prev
	next.SeatNumber = seat.SeatNumber
	next.Class = seat.Class
	next.PriceCents = seat.PriceCents
	next.Version++
	st.seats[seat.ID] = next
	*seat = next
	t.undo = append(t.undo, func() { st.seats[prev.ID] = prev })
	return nil
}

func (t *memTx) MarkSeatBooked(_ context.Context, scheduleID, seatID int64) (*domain.Seat, error) {
	st := t.store
	prev, ok := st.seats[seatID]
	if !ok || prev.ScheduleID != scheduleID {
		return nil, domain.ErrSeatNotFound
	}
	if prev.IsBooked {
		return nil, domain.ErrSeatUnavailable
	}
	next := prev
	next.IsBooked = true
	next.Version++
	st.seats[seatID] = next
	t.undo = append(t.undo, func() { st.seats[seatID] = prev })
	return &next, nil
}

func (t *memTx) MarkSeatReleased(_ context.Context, seatID int64) error {
	st := t.store
	prev, ok := st.seats[seatID]
	if !ok {
		return domain.ErrSeatNotFound
	}
	if !prev.IsBooked {
		return nil
	}
	next := prev
	next.IsBooked = false
	next.Version++
	st.seats[seatID] = next
	t.undo = append(t.undo, func() { st.seats[seatID] = prev })
	return nil
}

func (t *memTx) InsertBooking(_ context.Context, booking *domain.Booking) error {
	st := t.store
	if _, ok := st.schedules[booking.ScheduleID]; !ok {
		return domain.ErrScheduleNotFound
	}
	if _, taken := st.bookingRefs[booking.BookingRef]; taken {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateBookingRef, booking.BookingRef)
	}
	now := st.now()
	booking.ID = st.id()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	for i := range booking.Items {
		booking.Items[i].ID = st.id()
		booking.Items[i].BookingID = booking.ID
	}
	stored := *booking
	stored.Items = slices.Clone(booking.Items)
	st.bookings[booking.ID] = stored
	st.bookingRefs[booking.BookingRef] = booking.ID

	id, ref := booking.ID, booking.BookingRef
	t.undo = append(t.undo, func() {
		delete(st.bookings, id)
		delete(st.bookingRefs, ref)
	})
	return nil
}

func (t *memTx) GetBookingForUpdate(_ context.Context, id int64) (*domain.Booking, error) {
	return t.store.getBooking(id)
}

func (t *memTx) UpdateBookingStatus(_ context.Context, id int64, status domain.BookingStatus) error {
	st := t.store
	prev, ok := st.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	next := prev
	next.Status = status
	next.UpdatedAt = st.now()
	st.bookings[id] = next
	t.undo = append(t.undo, func() { st.bookings[id] = prev })
	return nil
}

func (t *memTx) InsertCancellation(_ context.Context, c *domain.BookingCancellation) error {
	st := t.store
	if _, ok := st.bookings[c.BookingID]; !ok {
		return domain.ErrBookingNotFound
	}
	c.ID = st.id()
	if c.CancelledAt.IsZero() {
		c.CancelledAt = st.now()
	}
	st.cancellations[c.ID] = *c
	id := c.ID
	t.undo = append(t.undo, func() { delete(st.cancellations, id) })
	return nil
}

var _ Store = (*MemoryStore)(nil)
