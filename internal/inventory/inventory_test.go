package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/skyseat/internal/domain"
	"github.com/Domenick1991/skyseat/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSchedule(t *testing.T, store *repository.MemoryStore, aircraft *domain.Aircraft) (*domain.Schedule, []domain.Seat) {
	t.Helper()
	ctx := context.Background()
	sched := &domain.Schedule{
		RouteID:       1,
		DepartureTime: time.Date(2026, 12, 1, 6, 0, 0, 0, time.UTC),
		ArrivalTime:   time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC),
		Status:        domain.ScheduleStatusScheduled,
	}
	var seats []domain.Seat
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.InsertSchedule(ctx, sched); err != nil {
			return err
		}
		seats = GeneratePool(sched, &domain.Route{BaseFareCents: 100}, aircraft)
		if err := AddSeats(ctx, tx, seats); err != nil {
			return err
		}
		_, _, err := RecomputeAvailable(ctx, tx, sched.ID)
		return err
	})
	require.NoError(t, err)
	return sched, seats
}

func available(t *testing.T, store *repository.MemoryStore, id int64) int {
	t.Helper()
	s, err := store.GetSchedule(context.Background(), id)
	require.NoError(t, err)
	return s.AvailableSeats
}

func TestTryReserve(t *testing.T) {
	store := repository.NewMemoryStore()
	sched, seats := newSchedule(t, store, &domain.Aircraft{EconomySeats: 2})
	other, otherSeats := newSchedule(t, store, &domain.Aircraft{EconomySeats: 1})
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		seat, err := TryReserve(ctx, tx, sched.ID, seats[0].ID)
		require.NoError(t, err)
		assert.True(t, seat.IsBooked)

		_, err = TryReserve(ctx, tx, sched.ID, seats[0].ID)
		assert.ErrorIs(t, err, domain.ErrSeatUnavailable)

		_, err = TryReserve(ctx, tx, sched.ID, otherSeats[0].ID)
		assert.ErrorIs(t, err, domain.ErrSeatNotFound)

		_, err = TryReserve(ctx, tx, other.ID, seats[1].ID)
		assert.ErrorIs(t, err, domain.ErrSeatNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestRelease_Idempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	sched, seats := newSchedule(t, store, &domain.Aircraft{EconomySeats: 1})
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := TryReserve(ctx, tx, sched.ID, seats[0].ID)
		require.NoError(t, err)
		require.NoError(t, Release(ctx, tx, seats[0].ID))
		require.NoError(t, Release(ctx, tx, seats[0].ID))
		return nil
	})
	require.NoError(t, err)

	seat, err := store.GetSeat(ctx, seats[0].ID)
	require.NoError(t, err)
	assert.False(t, seat.IsBooked)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return Release(ctx, tx, 12345)
	})
	assert.ErrorIs(t, err, domain.ErrSeatNotFound)
}

func TestRecomputeAvailable_TracksSeatRows(t *testing.T) {
	store := repository.NewMemoryStore()
	sched, seats := newSchedule(t, store, &domain.Aircraft{EconomySeats: 2, BusinessSeats: 1, FirstClassSeats: 1})
	ctx := context.Background()
	assert.Equal(t, 4, available(t, store, sched.ID))

	steps := []struct {
		reserve []int
		release []int
		want    int
	}{
		{reserve: []int{0, 2}, want: 2},
		{reserve: []int{3}, want: 1},
		{release: []int{0}, want: 2},
		{release: []int{0, 2, 3}, want: 4},
		{reserve: []int{0, 1, 2, 3}, want: 0},
	}
	for _, step := range steps {
		err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			for _, i := range step.reserve {
				if _, err := TryReserve(ctx, tx, sched.ID, seats[i].ID); err != nil {
					return err
				}
			}
			for _, i := range step.release {
				if err := Release(ctx, tx, seats[i].ID); err != nil {
					return err
				}
			}
			_, _, err := RecomputeAvailable(ctx, tx, sched.ID)
			return err
		})
		require.NoError(t, err)

		list, err := store.ListSeats(ctx, sched.ID)
		require.NoError(t, err)
		free := 0
		for _, s := range list {
			if !s.IsBooked {
				free++
			}
		}
		assert.Equal(t, step.want, free)
		assert.Equal(t, free, available(t, store, sched.ID))
	}
}

func TestRecomputeAvailable_ReportsChange(t *testing.T) {
	store := repository.NewMemoryStore()
	sched, _ := newSchedule(t, store, &domain.Aircraft{EconomySeats: 3})
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		n, changed, err := RecomputeAvailable(ctx, tx, sched.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.False(t, changed)

		require.NoError(t, tx.SetAvailableSeats(ctx, sched.ID, 1))
		n, changed, err = RecomputeAvailable(ctx, tx, sched.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.True(t, changed)
		return nil
	})
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, _, err := RecomputeAvailable(ctx, tx, 404)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
}

func TestAddSeats_RejectsDuplicates(t *testing.T) {
	store := repository.NewMemoryStore()
	sched, _ := newSchedule(t, store, &domain.Aircraft{EconomySeats: 2})
	ctx := context.Background()

	cases := []struct {
		name  string
		seats []domain.Seat
		want  error
	}{
		{
			name:  "clashes with stored seat",
			seats: []domain.Seat{{ScheduleID: sched.ID, SeatNumber: "E2", Class: domain.SeatClassEconomy, PriceCents: 100}},
			want:  domain.ErrDuplicateSeatNumber,
		},
		{
			name: "clashes inside batch",
			seats: []domain.Seat{
				{ScheduleID: sched.ID, SeatNumber: "X1", Class: domain.SeatClassEconomy, PriceCents: 100},
				{ScheduleID: sched.ID, SeatNumber: "X1", Class: domain.SeatClassFirst, PriceCents: 200},
			},
			want: domain.ErrDuplicateSeatNumber,
		},
		{
			name:  "unknown class",
			seats: []domain.Seat{{ScheduleID: sched.ID, SeatNumber: "P1", Class: "PREMIUM"}},
			want:  domain.ErrInvalidInput,
		},
		{
			name:  "empty number",
			seats: []domain.Seat{{ScheduleID: sched.ID, Class: domain.SeatClassEconomy}},
			want:  domain.ErrInvalidInput,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
				return AddSeats(ctx, tx, tc.seats)
			})
			assert.ErrorIs(t, err, tc.want)

			list, err := store.ListSeats(ctx, sched.ID)
			require.NoError(t, err)
			assert.Len(t, list, 2)
		})
	}
}
