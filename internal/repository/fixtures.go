package repository

import (
	"fmt"

	"github.com/Domenick1991/skyseat/internal/domain"
	"gopkg.in/yaml.v3"
)

type fixtures struct {
	Aircraft []struct {
		ID              int64  `yaml:"id"`
		Model           string `yaml:"model"`
		EconomySeats    int    `yaml:"economy_seats"`
		BusinessSeats   int    `yaml:"business_seats"`
		FirstClassSeats int    `yaml:"first_class_seats"`
	} `yaml:"aircraft"`
	Routes []struct {
		ID            int64  `yaml:"id"`
		Origin        string `yaml:"origin"`
		Destination   string `yaml:"destination"`
		BaseFareCents int64  `yaml:"base_fare_cents"`
		AircraftID    *int64 `yaml:"aircraft_id"`
	} `yaml:"routes"`
}

// LoadFixtures seeds aircraft and routes from YAML. Routes may only
// reference aircraft defined in the same document.
func (s *MemoryStore) LoadFixtures(data []byte) error {
	var f fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse fixtures: %w", err)
	}

	known := make(map[int64]bool, len(f.Aircraft))
	for _, a := range f.Aircraft {
		if a.ID <= 0 || a.EconomySeats < 0 || a.BusinessSeats < 0 || a.FirstClassSeats < 0 {
			return fmt.Errorf("%w: aircraft %d", domain.ErrInvalidInput, a.ID)
		}
		known[a.ID] = true
	}
	for _, r := range f.Routes {
		if r.ID <= 0 || r.BaseFareCents < 0 {
			return fmt.Errorf("%w: route %d", domain.ErrInvalidInput, r.ID)
		}
		if r.AircraftID != nil && !known[*r.AircraftID] {
			return fmt.Errorf("route %d: %w", r.ID, domain.ErrAircraftNotFound)
		}
	}

	for _, a := range f.Aircraft {
		s.PutAircraft(domain.Aircraft{
			ID:              a.ID,
			Model:           a.Model,
			EconomySeats:    a.EconomySeats,
			BusinessSeats:   a.BusinessSeats,
			FirstClassSeats: a.FirstClassSeats,
		})
	}
	for _, r := range f.Routes {
		s.PutRoute(domain.Route{
			ID:            r.ID,
			Origin:        r.Origin,
			Destination:   r.Destination,
			BaseFareCents: r.BaseFareCents,
			AircraftID:    r.AircraftID,
		})
	}
	return nil
}
