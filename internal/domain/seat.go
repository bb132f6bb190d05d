package domain

import "fmt"

type SeatClass string

const (
	SeatClassEconomy  SeatClass = "ECONOMY"
	SeatClassBusiness SeatClass = "BUSINESS"
	SeatClassFirst    SeatClass = "FIRST"
)

// SeatClasses lists the classes in seat-numbering order.
var SeatClasses = []SeatClass{SeatClassEconomy, SeatClassBusiness, SeatClassFirst}

func (c SeatClass) Valid() bool {
	switch c {
	case SeatClassEconomy, SeatClassBusiness, SeatClassFirst:
		return true
	default:
		return false
	}
}

// Prefix is the letter seat numbers of this class start with.
func (c SeatClass) Prefix() string {
	switch c {
	case SeatClassEconomy:
		return "E"
	case SeatClassBusiness:
		return "B"
	case SeatClassFirst:
		return "F"
	default:
		return ""
	}
}

// Price applies the fixed class multiplier (1.0, 1.5, 2.0) to a base fare.
// Half cents round up.
func (c SeatClass) Price(baseFareCents int64) int64 {
	switch c {
	case SeatClassEconomy:
		return baseFareCents
	case SeatClassBusiness:
		return (baseFareCents*3 + 1) / 2
	case SeatClassFirst:
		return baseFareCents * 2
	default:
		return 0
	}
}

func ParseSeatClass(v string) (SeatClass, error) {
	c := SeatClass(v)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown seat class %q", ErrInvalidInput, v)
	}
	return c, nil
}

type Seat struct {
	ID         int64
	ScheduleID int64
	SeatNumber string
	Class      SeatClass
	PriceCents int64
	IsBooked   bool
	Version    int64
}
