package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Domenick1991/skyseat/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewPGStore(t *testing.T) {
	pool := &pgxpool.Pool{}
	store := NewPGStore(pool)
	assert.NotNil(t, store)
}

func TestSeatWriteError(t *testing.T) {
	dup := fmt.Errorf("batch: %w", &pgconn.PgError{Code: uniqueViolation, ConstraintName: seatNumberKey})
	err := seatWriteError(dup, "E1")
	assert.ErrorIs(t, err, domain.ErrDuplicateSeatNumber)
	assert.Contains(t, err.Error(), "E1")

	other := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "bookings_booking_ref_key"}
	assert.NotErrorIs(t, seatWriteError(other, "E1"), domain.ErrDuplicateSeatNumber)

	assert.NotErrorIs(t, seatWriteError(errors.New("conn reset"), "E1"), domain.ErrDuplicateSeatNumber)
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "anything"}
	assert.True(t, isUniqueViolation(err, ""))
	assert.False(t, isUniqueViolation(err, seatNumberKey))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(errors.New("plain"), ""))
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schemaSQL, "CONSTRAINT "+seatNumberKey)
	assert.Contains(t, schemaSQL, "booking_ref        TEXT NOT NULL UNIQUE")
}
