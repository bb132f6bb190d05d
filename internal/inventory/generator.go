package inventory

import (
	"strconv"

	"github.com/Domenick1991/skyseat/internal/domain"
)

// GeneratePool materialises the seat rows of a schedule from the aircraft
// flying its route. Seats are numbered per class in the order economy,
// business, first (E1.., B1.., F1..) and priced from the route's base fare.
// A nil aircraft yields no seats.
func GeneratePool(schedule *domain.Schedule, route *domain.Route, aircraft *domain.Aircraft) []domain.Seat {
	if aircraft == nil {
		return nil
	}
	seats := make([]domain.Seat, 0, aircraft.TotalSeats())
	for _, class := range domain.SeatClasses {
		price := class.Price(route.BaseFareCents)
		for i := 1; i <= aircraft.SeatsOf(class); i++ {
			seats = append(seats, domain.Seat{
				ScheduleID: schedule.ID,
				SeatNumber: class.Prefix() + strconv.Itoa(i),
				Class:      class,
				PriceCents: price,
			})
		}
	}
	return seats
}
