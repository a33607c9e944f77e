// internal/weather/codes_test.go
package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		wantDesc string
		wantEmoj string
	}{
		{"clear sky", 0, "Clear sky", "☀️"},
		{"slight rain", 61, "Slight rain", "🌧️"},
		{"thunderstorm with heavy hail", 99, "Thunderstorm with heavy hail", "⛈️"},
		{"fog", 45, "Fog", "🌫️"},
		{"unknown code falls back to clear", 999, "Clear", "☀️"},
		{"negative code falls back to clear", -1, "Clear", "☀️"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := Describe(tt.code)
			assert.Equal(t, tt.wantDesc, cond.Description)
			assert.Equal(t, tt.wantEmoj, cond.Emoji)
		})
	}
}
