package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearing(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 int32
		expected               float64
		tolerance              float64
	}{
		{
			name: "north",
			lat1: 52000000, lon1: 13000000,
			lat2: 53000000, lon2: 13000000,
			expected: 0, tolerance: 0.5,
		},
		{
			name: "east",
			lat1: 0, lon1: 13000000,
			lat2: 0, lon2: 14000000,
			expected: 90, tolerance: 0.5,
		},
		{
			name: "south west",
			lat1: 52525589, lon1: 13369549,
			lat2: 52391640, lon2: 13066702,
			expected: 235, tolerance: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Bearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2), tt.tolerance)
		})
	}
}

func TestBearingToCompass(t *testing.T) {
	tests := []struct {
		bearing  float64
		expected string
	}{
		{0, "N"},
		{22.4, "N"},
		{22.5, "NE"},
		{90, "E"},
		{180, "S"},
		{270, "W"},
		{337.5, "N"},
		{359.9, "N"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BearingToCompass(tt.bearing), "bearing %v", tt.bearing)
	}
}

func TestCompassDirection(t *testing.T) {
	// Berlin Hbf to Potsdam Hbf
	assert.Equal(t, "SW", CompassDirection(52525589, 13369549, 52391640, 13066702))
	assert.Equal(t, "NE", CompassDirection(52391640, 13066702, 52525589, 13369549))
	assert.Equal(t, "", CompassDirection(52525589, 13369549, 52525589, 13369549))
}

func TestDegrees(t *testing.T) {
	assert.InDelta(t, 52.525589, Degrees(52525589), 1e-9)
	assert.InDelta(t, -0.5, Degrees(-500000), 1e-9)
}
