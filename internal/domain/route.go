package domain

// Route and Aircraft are maintained by route administration; this module only reads them.
type Route struct {
	ID            int64
	Origin        string
	Destination   string
	BaseFareCents int64
	AircraftID    *int64
}

type Aircraft struct {
	ID              int64
	Model           string
	EconomySeats    int
	BusinessSeats   int
	FirstClassSeats int
}

func (a *Aircraft) TotalSeats() int {
	return a.EconomySeats + a.BusinessSeats + a.FirstClassSeats
}

// SeatsOf returns the configured capacity for one class.
func (a *Aircraft) SeatsOf(class SeatClass) int {
	switch class {
	case SeatClassEconomy:
		return a.EconomySeats
	case SeatClassBusiness:
		return a.BusinessSeats
	case SeatClassFirst:
		return a.FirstClassSeats
	default:
		return 0
	}
}
