package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_DefaultStations(t *testing.T) {
	reg, err := NewRegistry(DefaultStations())
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"TRIV", "SACR", "CIGN"}, reg.IDs())

	triv, ok := reg.Lookup("TRIV")
	require.True(t, ok)
	assert.Equal(t, "Trivento", triv.Name)
	assert.Equal(t, 41.7666, triv.Latitude)
	assert.Equal(t, 14.5502, triv.Longitude)
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name     string
		profiles []StationProfile
	}{
		{"empty", nil},
		{"missing id", []StationProfile{{Name: "x"}}},
		{"duplicate", []StationProfile{{ID: "A"}, {ID: "A"}}},
		{"latitude", []StationProfile{{ID: "A", Latitude: 91}}},
		{"longitude", []StationProfile{{ID: "A", Longitude: -181}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.profiles)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_StationsReturnsCopy(t *testing.T) {
	reg, err := NewRegistry(DefaultStations())
	require.NoError(t, err)

	s := reg.Stations()
	s[0].ID = "MUTATED"

	assert.Equal(t, "TRIV", reg.Stations()[0].ID)
}
