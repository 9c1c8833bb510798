package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		units    string
		expected float64
	}{
		{"10 m/s to mph", 10.0, MPH, 22.3694},
		{"10 m/s to kmph", 10.0, KMPH, 36.0},
		{"10 m/s to kph", 10.0, KPH, 36.0},
		{"10 m/s to mps", 10.0, MPS, 10.0},
		{"unknown units default to mps", 10.0, "unknown", 10.0},
		{"city speed 13.89 m/s to kmph", 13.89, KMPH, 50.004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ConvertSpeed(tt.speedMPS, tt.units), 0.01)
		})
	}
}

func TestConvertFromKMPH(t *testing.T) {
	tests := []struct {
		units    string
		expected float64
	}{
		{KMPH, 18},
		{KPH, 18},
		{MPS, 5},
		{MPH, 11.1847},
	}
	for _, tt := range tests {
		t.Run(tt.units, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ConvertFromKMPH(18, tt.units), 0.001)
		})
	}
}

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		assert.True(t, IsValid(u), u)
	}
	assert.False(t, IsValid("knots"))
	assert.False(t, IsValid(""))
	assert.Equal(t, "mps, mph, kmph, kph", GetValidUnitsString())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "km/h", Label(KMPH))
	assert.Equal(t, "mph", Label(MPH))
	assert.Equal(t, "m/s", Label(MPS))
}
