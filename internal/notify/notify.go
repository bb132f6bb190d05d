package notify

import (
	"context"
	"fmt"

	"github.com/Domenick1991/skyseat/internal/kafka"
	"go.uber.org/zap"
)

// Sender turns booking events into customer notifications. Delivery is a
// structured log line; a mail or SMS gateway plugs in behind the same method.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	text, ok := Render(event)
	if !ok {
		return nil
	}
	s.logger.Info("notification sent",
		zap.String("user_id", event.UserID),
		zap.String("type", event.Type),
		zap.String("booking_ref", event.BookingRef),
		zap.String("text", text))
	return nil
}

// Render builds the message for events a customer cares about.
func Render(event kafka.BookingEvent) (string, bool) {
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Booking %s confirmed: %d seat(s) on schedule %d, total %s.",
			event.BookingRef, len(event.SeatIDs), event.ScheduleID, formatCents(event.TotalAmountCents)), true
	case kafka.EventBookingCancelled:
		msg := fmt.Sprintf("Booking %s was cancelled.", event.BookingRef)
		if event.Reason != "" {
			msg += " Reason: " + event.Reason + "."
		}
		return msg, true
	case kafka.EventBookingRefunded:
		return fmt.Sprintf("Refund for booking %s has been processed.", event.BookingRef), true
	default:
		return "", false
	}
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
