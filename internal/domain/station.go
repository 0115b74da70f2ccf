package domain

import (
	"errors"
	"fmt"
)

// StationProfile describes a monitoring station.
type StationProfile struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Registry is the fixed set of stations monitored by the service. Stations are
// kept in load order so every cycle visits them in the same sequence.
type Registry struct {
	stations []StationProfile
	byID     map[string]StationProfile
}

// DefaultStations returns the built-in station set for network IV.
func DefaultStations() []StationProfile {
	return []StationProfile{
		{ID: "TRIV", Name: "Trivento", Latitude: 41.7666, Longitude: 14.5502},
		{ID: "SACR", Name: "S. Croce del Sannio", Latitude: 41.3974, Longitude: 14.7057},
		{ID: "CIGN", Name: "Sant'Elia a Pianisi", Latitude: 41.65418, Longitude: 14.90502},
	}
}

// NewRegistry validates the profiles and builds a registry from them.
func NewRegistry(profiles []StationProfile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, errors.New("station registry is empty")
	}
	r := &Registry{
		stations: make([]StationProfile, 0, len(profiles)),
		byID:     make(map[string]StationProfile, len(profiles)),
	}
	for _, p := range profiles {
		if p.ID == "" {
			return nil, errors.New("station id is required")
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate station %q", p.ID)
		}
		if p.Latitude < -90 || p.Latitude > 90 {
			return nil, fmt.Errorf("station %q: latitude %v out of range", p.ID, p.Latitude)
		}
		if p.Longitude < -180 || p.Longitude > 180 {
			return nil, fmt.Errorf("station %q: longitude %v out of range", p.ID, p.Longitude)
		}
		r.stations = append(r.stations, p)
		r.byID[p.ID] = p
	}
	return r, nil
}

// Stations returns the profiles in registry order.
func (r *Registry) Stations() []StationProfile {
	out := make([]StationProfile, len(r.stations))
	copy(out, r.stations)
	return out
}

// IDs returns the station identifiers in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.stations))
	for i, s := range r.stations {
		ids[i] = s.ID
	}
	return ids
}

// Lookup returns the profile for id.
func (r *Registry) Lookup(id string) (StationProfile, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Len returns the number of registered stations.
func (r *Registry) Len() int {
	return len(r.stations)
}
