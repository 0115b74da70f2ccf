package config

import (
	"fmt"
	"os"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type stationsFile struct {
	Stations []stationEntry `yaml:"stations"`
}

type stationEntry struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// LoadStations builds the station registry from path, or from the built-in
// stations when path is empty.
//
//	stations:
//	  - id: TRIV
//	    name: Trivento
//	    latitude: 41.7666
//	    longitude: 14.5502
func LoadStations(path string) (*domain.Registry, error) {
	if path == "" {
		return domain.NewRegistry(domain.DefaultStations())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read STATIONS_FILE: %w", err)
	}
	var f stationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse STATIONS_FILE %s: %w", path, err)
	}

	profiles := make([]domain.StationProfile, len(f.Stations))
	for i, s := range f.Stations {
		profiles[i] = domain.StationProfile{ID: s.ID, Name: s.Name, Latitude: s.Latitude, Longitude: s.Longitude}
	}
	reg, err := domain.NewRegistry(profiles)
	if err != nil {
		return nil, fmt.Errorf("STATIONS_FILE %s: %w", path, err)
	}
	return reg, nil
}
