package notify

import (
	"context"
	"testing"

	"github.com/Domenick1991/skyseat/internal/kafka"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRender(t *testing.T) {
	text, ok := Render(kafka.BookingEvent{
		Type:             kafka.EventBookingCreated,
		BookingRef:       "BK1",
		ScheduleID:       3,
		SeatIDs:          []int64{1, 2},
		TotalAmountCents: 25050,
	})
	assert.True(t, ok)
	assert.Equal(t, "Booking BK1 confirmed: 2 seat(s) on schedule 3, total 250.50.", text)

	text, ok = Render(kafka.BookingEvent{Type: kafka.EventBookingCancelled, BookingRef: "BK1", Reason: "illness"})
	assert.True(t, ok)
	assert.Equal(t, "Booking BK1 was cancelled. Reason: illness.", text)

	_, ok = Render(kafka.BookingEvent{Type: kafka.EventScheduleCreated})
	assert.False(t, ok)
}

func TestSender_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewSender(zap.New(core))

	err := sender.Send(context.Background(), kafka.BookingEvent{Type: kafka.EventBookingRefunded, BookingRef: "BK9", UserID: "u"})
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("notification sent").Len())

	err = sender.Send(context.Background(), kafka.BookingEvent{Type: kafka.EventScheduleUpdated})
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.Len())
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.05", formatCents(5))
	assert.Equal(t, "-1.50", formatCents(-150))
}
